package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"commerce-backend/internal/shared/apperrors"
)

func detailsOf(err error) interface{} {
	var ae *apperrors.Error
	if errors.As(err, &ae) {
		return ae.Details
	}
	return nil
}

// Response is the JSON envelope used by every endpoint.
// Errors are flattened into error_code/error_message/error_details so the
// front-end can branch on a single field.
type Response struct {
	Success      bool        `json:"success"`
	Data         interface{} `json:"data,omitempty"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	ErrorDetails interface{} `json:"error_details,omitempty"`
	Meta         *Meta       `json:"meta,omitempty"`
}

type Meta struct {
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
	Total int `json:"total,omitempty"`
}

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Response{
		Success:      false,
		ErrorCode:    code,
		ErrorMessage: message,
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, Response{
		Success:      false,
		ErrorCode:    code,
		ErrorMessage: message,
		ErrorDetails: details,
	})
}

// Common error responses
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, "FORBIDDEN", message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, "NOT_FOUND", message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, "CONFLICT", message)
}

func InternalServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message)
}

// FromError maps a typed domain error to its HTTP representation.
// Untyped errors become 500s without leaking internals to the client.
func FromError(c *gin.Context, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindInsufficientStock:
		ErrorWithDetails(c, http.StatusConflict,
			string(apperrors.KindInsufficientStock),
			"Some items are no longer available in the requested quantity",
			apperrors.DeficitsOf(err))
	case apperrors.KindLockTimeout:
		Error(c, http.StatusServiceUnavailable,
			string(apperrors.KindLockTimeout),
			"The system is busy, please retry")
	case apperrors.KindGatewayUnreachable, apperrors.KindGatewayTimeout:
		Error(c, http.StatusBadGateway,
			string(apperrors.KindOf(err)),
			"Payment provider is temporarily unavailable")
	case apperrors.KindGatewayRejection:
		ErrorWithDetails(c, http.StatusBadRequest,
			string(apperrors.KindGatewayRejection),
			"Payment provider rejected the request", detailsOf(err))
	case apperrors.KindStateGuard:
		Error(c, http.StatusConflict,
			string(apperrors.KindStateGuard),
			"Operation is not allowed in the current order state")
	case apperrors.KindIntegrity:
		Error(c, http.StatusInternalServerError,
			string(apperrors.KindIntegrity),
			"Internal consistency error")
	case apperrors.KindNotFound:
		NotFound(c, "Resource not found")
	case apperrors.KindValidation:
		ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), detailsOf(err))
	default:
		InternalServerError(c, "Internal server error")
	}
}
