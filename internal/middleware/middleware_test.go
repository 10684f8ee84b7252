package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret"

// =====================
// UserRepository モック
// =====================

type userRepoMock struct {
	mock.Mock
}

func (m *userRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *userRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *userRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

var _ repository.UserRepository = (*userRepoMock)(nil)

// =====================
// helper
// =====================

type okResponse struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Guest  bool   `json:"guest"`
}

func mustMakeJWT(t *testing.T, secret string, sub any, role string, method jwt.SigningMethod) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"iat":  1,
		"exp":  9999999999,
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

// ctxの中身をそのまま返すhandler
func echoContextHandler(c echo.Context) error {
	userID, ok := c.Get(CtxUserIDKey).(int64)
	role, _ := c.Get(CtxUserRoleKey).(string)
	return c.JSON(http.StatusOK, okResponse{UserID: userID, Role: role, Guest: !ok})
}

func runRequest(t *testing.T, e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var r errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&r))
	return r
}

func decodeOK(t *testing.T, rec *httptest.ResponseRecorder) okResponse {
	t.Helper()
	var r okResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&r))
	return r
}

// =====================
// AuthJWT
// =====================

func TestAuthJWT_Unauthorized(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "ヘッダなし", header: ""},
		{name: "Bearer以外", header: "Token abc.def.ghi"},
		{name: "空トークン", header: "Bearer "},
		{name: "署名違い", header: "Bearer " + mustMakeJWT(t, "wrong-secret", "1", "customer", jwt.SigningMethodHS256)},
		{name: "アルゴリズム違い", header: "Bearer " + mustMakeJWT(t, testSecret, "1", "customer", jwt.SigningMethodHS512)},
		{name: "subが不正", header: "Bearer " + mustMakeJWT(t, testSecret, "abc", "customer", jwt.SigningMethodHS256)},
		{name: "roleなし", header: "Bearer " + mustMakeJWT(t, testSecret, "1", "", jwt.SigningMethodHS256)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/protected", echoContextHandler, AuthJWT(testSecret))

			rec := runRequest(t, e, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", decodeError(t, rec).Error)
		})
	}
}

func TestAuthJWT_Success_SetsContext(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContextHandler, AuthJWT(testSecret))

	// subは文字列でも数値でも受け付ける
	for _, sub := range []any{"123", 123} {
		rec := runRequest(t, e, "Bearer "+mustMakeJWT(t, testSecret, sub, "admin", jwt.SigningMethodHS256))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeOK(t, rec)
		assert.Equal(t, int64(123), body.UserID)
		assert.Equal(t, "admin", body.Role)
	}
}

func TestOptionalAuthJWT(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContextHandler, OptionalAuthJWT(testSecret))

	t.Run("トークンなしはゲストとして通す", func(t *testing.T) {
		rec := runRequest(t, e, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeOK(t, rec).Guest)
	})

	t.Run("有効なトークン", func(t *testing.T) {
		rec := runRequest(t, e, "Bearer "+mustMakeJWT(t, testSecret, "5", "customer", jwt.SigningMethodHS256))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeOK(t, rec)
		assert.False(t, body.Guest)
		assert.Equal(t, int64(5), body.UserID)
	})

	t.Run("不正なトークンは401", func(t *testing.T) {
		rec := runRequest(t, e, "Bearer broken")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// =====================
// AdminRoleGuard
// =====================

func TestAdminRoleGuard(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContextHandler, AuthJWT(testSecret), AdminRoleGuard())

	rec := runRequest(t, e, "Bearer "+mustMakeJWT(t, testSecret, "1", "customer", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "forbidden", body.Error)
	assert.Equal(t, "admin only", body.Message)

	rec = runRequest(t, e, "Bearer "+mustMakeJWT(t, testSecret, "1", "admin", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =====================
// ActiveUserGuard
// =====================

func TestActiveUserGuard(t *testing.T) {
	token := "Bearer " + mustMakeJWT(t, testSecret, "7", "admin", jwt.SigningMethodHS256)

	t.Run("roleはDBの値で上書き", func(t *testing.T) {
		users := new(userRepoMock)
		users.On("FindByID", mock.Anything, int64(7)).Return(&model.User{ID: 7, Role: model.RoleCustomer}, nil)

		e := echo.New()
		e.GET("/protected", echoContextHandler, AuthJWT(testSecret), ActiveUserGuard(users))

		rec := runRequest(t, e, token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "customer", decodeOK(t, rec).Role)
		users.AssertExpectations(t)
	})

	t.Run("削除されたユーザーは401", func(t *testing.T) {
		users := new(userRepoMock)
		users.On("FindByID", mock.Anything, int64(7)).Return(nil, repository.ErrNotFound)

		e := echo.New()
		e.GET("/protected", echoContextHandler, AuthJWT(testSecret), ActiveUserGuard(users))

		rec := runRequest(t, e, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("DBエラーは500", func(t *testing.T) {
		users := new(userRepoMock)
		users.On("FindByID", mock.Anything, int64(7)).Return(nil, errors.New("db down"))

		e := echo.New()
		e.GET("/protected", echoContextHandler, AuthJWT(testSecret), ActiveUserGuard(users))

		rec := runRequest(t, e, token)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("ゲストは問い合わせずに通す", func(t *testing.T) {
		users := new(userRepoMock)

		e := echo.New()
		e.GET("/protected", echoContextHandler, OptionalAuthJWT(testSecret), ActiveUserGuard(users))

		rec := runRequest(t, e, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeOK(t, rec).Guest)
		users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})
}

// =====================
// RequestLogger
// =====================

func TestRequestLogger_LevelsByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/bad", func(c echo.Context) error { return c.NoContent(http.StatusBadRequest) })
	e.GET("/boom", func(c echo.Context) error {
		c.Set(CtxErrorKey, errors.New("db exploded"))
		return c.NoContent(http.StatusInternalServerError)
	})

	for _, path := range []string{"/ok", "/bad", "/boom"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "db exploded", entries[2].ContextMap()["error"])
	assert.Equal(t, "/boom", entries[2].ContextMap()["route"])
}
