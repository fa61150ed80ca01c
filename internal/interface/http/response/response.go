package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo - тело ошибки. Retryable подсказывает клиенту, что ту же операцию
// можно повторить без риска двойного списания или двойной выплаты.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

type PaginatedResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func Paginated(c *gin.Context, data interface{}, total, limit, offset int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+limit < total,
		},
	})
}

const internalMessage = "внутренняя ошибка сервера"

// Error переводит ошибку сценария в ответ. Коды леджера (недопустимый переход,
// конфликт версий, ошибки шлюзов) уходят клиенту как есть, внутренние
// ошибки и ошибки базы маскируются.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		Fail(c, http.StatusInternalServerError, apperror.ErrCodeInternal, internalMessage)
		return
	}

	info := ErrorInfo{
		Code:      string(appErr.Code),
		Message:   appErr.Message,
		Retryable: retryable(appErr.Code),
	}
	switch appErr.Code {
	case apperror.ErrCodeInternal, apperror.ErrCodeDatabaseError:
		info.Code = string(apperror.ErrCodeInternal)
		info.Message = internalMessage
	}
	c.JSON(appErr.HTTPStatus, Response{Success: false, Error: &info})
}

// retryable: конфликт версий снимается повторным чтением, захват идемпотентен
// по заказу, а при ошибке выплаты платеж остается в held.
func retryable(code apperror.ErrorCode) bool {
	switch code {
	case apperror.ErrCodeConflict, apperror.ErrCodePaymentGateway,
		apperror.ErrCodePayoutGateway, apperror.ErrCodeRateLimited:
		return true
	}
	return false
}

// Fail пишет ошибку с явным статусом, минуя apperror.
func Fail(c *gin.Context, status int, code apperror.ErrorCode, message string) {
	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: string(code), Message: message},
	})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, apperror.ErrCodeBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, message)
}
