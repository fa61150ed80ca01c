package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound               ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden              ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest             ErrorCode = "BAD_REQUEST"
	ErrCodeConflict               ErrorCode = "CONFLICT"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation             ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError          ErrorCode = "DATABASE_ERROR"
	ErrCodeInvalidStateTransition ErrorCode = "INVALID_STATE_TRANSITION"
	ErrCodePaymentGateway         ErrorCode = "PAYMENT_GATEWAY_ERROR"
	ErrCodePayoutGateway          ErrorCode = "PAYOUT_GATEWAY_ERROR"
	ErrCodeRateLimited            ErrorCode = "RATE_LIMITED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation, InvalidTransition и Conflict сокращают самые частые конструкторы в доменном слое.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidTransition(message string) *AppError {
	return New(ErrCodeInvalidStateTransition, message)
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeInvalidStateTransition:
		return http.StatusUnprocessableEntity
	case ErrCodePaymentGateway, ErrCodePayoutGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As извлекает ошибку приложения из цепочки.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf возвращает код ошибки приложения или INTERNAL_ERROR для посторонних ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return Is(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return Is(err, ErrCodeValidation)
}

func IsConflict(err error) bool {
	return Is(err, ErrCodeConflict)
}

func IsInvalidTransition(err error) bool {
	return Is(err, ErrCodeInvalidStateTransition)
}

var (
	ErrOrderNotFound    = New(ErrCodeNotFound, "заказ не найден")
	ErrPaymentNotFound  = New(ErrCodeNotFound, "платеж не найден")
	ErrDisputeNotFound  = New(ErrCodeNotFound, "спор не найден")
	ErrServiceNotFound  = New(ErrCodeNotFound, "услуга не найдена")
	ErrUnauthorized     = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden        = New(ErrCodeForbidden, "недостаточно прав")
	ErrMediatorRequired = New(ErrCodeForbidden, "операция доступна только медиатору")
	ErrConcurrentUpdate = New(ErrCodeConflict, "запись изменена параллельным запросом, обновите данные")
)
