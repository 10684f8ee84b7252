package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// 業務エラーの種類。handlerはKindからHTTPステータスを決める。
type ErrorKind string

const (
	KindNotFound             ErrorKind = "not_found"
	KindEmptyCheckout        ErrorKind = "empty_checkout"
	KindEmptyGuestCart       ErrorKind = "empty_guest_cart"
	KindInvalidPaymentStatus ErrorKind = "invalid_payment_status"
	KindAlreadyFinalized     ErrorKind = "already_finalized"
	KindNotPaid              ErrorKind = "not_paid"
	KindUnidentified         ErrorKind = "unidentified"
	KindValidation           ErrorKind = "validation"
	KindConflict             ErrorKind = "conflict"
	KindUnauthorized         ErrorKind = "unauthorized"
	KindForbidden            ErrorKind = "forbidden"
	// DB接続など基盤側の失敗
	KindInternal ErrorKind = "internal"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// errors.Is(err, usecase.ErrNotFound) のようにKindだけで比較できるようにする
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindEmptyCheckout, KindEmptyGuestCart, KindInvalidPaymentStatus, KindValidation:
		return http.StatusBadRequest
	case KindAlreadyFinalized, KindNotPaid, KindConflict:
		return http.StatusConflict
	case KindUnidentified, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// 比較用（メッセージなし）
var (
	ErrNotFound             = &AppError{Kind: KindNotFound}
	ErrEmptyCheckout        = &AppError{Kind: KindEmptyCheckout}
	ErrEmptyGuestCart       = &AppError{Kind: KindEmptyGuestCart}
	ErrInvalidPaymentStatus = &AppError{Kind: KindInvalidPaymentStatus}
	ErrAlreadyFinalized     = &AppError{Kind: KindAlreadyFinalized}
	ErrNotPaid              = &AppError{Kind: KindNotPaid}
	ErrUnidentified         = &AppError{Kind: KindUnidentified}
	ErrValidation           = &AppError{Kind: KindValidation}
	ErrConflict             = &AppError{Kind: KindConflict}
	ErrUnauthorized         = &AppError{Kind: KindUnauthorized}
	ErrForbidden            = &AppError{Kind: KindForbidden}
	ErrInternal             = &AppError{Kind: KindInternal}
)

func NewError(kind ErrorKind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

// 基盤エラーは中身を外に出さない（ログにだけ残す）
func internalError(op string, err error) error {
	return &AppError{Kind: KindInternal, Message: "internal error", Err: fmt.Errorf("%s: %w", op, err)}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}
