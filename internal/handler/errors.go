package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// usecaseのエラー種別をHTTPに変換して返す
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := usecase.AsAppError(err); ok {
		if ae.Kind == usecase.KindInternal {
			// 中身はアクセスログにだけ残す
			c.Set(middleware.CtxErrorKey, err)
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: string(usecase.KindInternal), Message: "internal error"})
		}
		return c.JSON(ae.HTTPStatus(), ErrorResponse{Error: string(ae.Kind), Message: ae.Message})
	}

	//500
	c.Set(middleware.CtxErrorKey, err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: string(usecase.KindInternal), Message: "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(usecase.KindValidation), Message: msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: string(usecase.KindUnauthorized)})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	return model.Role(role) == model.RoleAdmin
}

// :id などのパスパラメータ（正の整数のみ）
func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
