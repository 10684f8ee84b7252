package validator

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/testutil/memstore"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kindOf(t *testing.T, err error) usecase.ErrorKind {
	t.Helper()
	ae, ok := usecase.AsAppError(err)
	require.True(t, ok, "expected *AppError, got %v", err)
	return ae.Kind
}

func TestAuthValidator_ValidateRegister(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	s.SeedUser(model.User{Name: "taken", Email: "taken@example.com", Role: model.RoleCustomer})
	v := NewAuthValidator(s.Users())

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		kind     usecase.ErrorKind
	}{
		{name: "ok", userName: "Taro", email: "taro@example.com", password: "password123"},
		{name: "名前なし", userName: " ", email: "taro@example.com", password: "password123", kind: usecase.KindValidation},
		{name: "emailなし", userName: "Taro", email: "", password: "password123", kind: usecase.KindValidation},
		{name: "email形式", userName: "Taro", email: "taro@", password: "password123", kind: usecase.KindValidation},
		{name: "短いパスワード", userName: "Taro", email: "taro@example.com", password: "short", kind: usecase.KindValidation},
		{name: "登録済み", userName: "Taro", email: "taken@example.com", password: "password123", kind: usecase.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRegister(ctx, tt.userName, tt.email, tt.password)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.kind, kindOf(t, err))
		})
	}
}

func TestAuthValidator_ValidateLogin(t *testing.T) {
	ctx := context.Background()
	v := NewAuthValidator(memstore.New().Users())

	assert.NoError(t, v.ValidateLogin(ctx, "a@example.com", "x"))

	err := v.ValidateLogin(ctx, "a@example.com", "")
	assert.True(t, errors.Is(err, usecase.ErrValidation))
	err = v.ValidateLogin(ctx, "not-an-email", "password123")
	assert.True(t, errors.Is(err, usecase.ErrValidation))
}
