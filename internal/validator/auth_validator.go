package validator

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"storefront/internal/repository"
	"storefront/internal/usecase"
)

// パスワード最低文字数
const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, name string, email string, password string) error {
	if strings.TrimSpace(name) == "" {
		return usecase.NewError(usecase.KindValidation, "name is required")
	}
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return usecase.NewError(usecase.KindValidation, "password must be at least 8 characters")
	}

	// email重複チェック（最終的にはユニーク制約で弾く）
	u, err := v.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err == nil && u != nil {
		return usecase.NewError(usecase.KindConflict, "email already used")
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return usecase.NewError(usecase.KindInternal, "internal error")
	}
	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	return validateCredentials(email, password)
}

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if email == "" || password == "" {
		return usecase.NewError(usecase.KindValidation, "email and password are required")
	}
	// email形式
	if !emailPattern.MatchString(email) {
		return usecase.NewError(usecase.KindValidation, "invalid email")
	}
	return nil
}
