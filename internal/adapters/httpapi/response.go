package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradejournal/internal/ports"
)

// Error codes
const (
	ErrCodeInternalServer   = "INTERNAL_SERVER_ERROR"
	ErrCodeInvalidParameter = "INVALID_PARAMETER"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeImmutableField   = "IMMUTABLE_FIELD"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeDuplicateEntry   = "DUPLICATE_ENTRY"
	ErrCodeComputation      = "COMPUTATION_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
)

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Pagination describes one page of the trade list.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: GetRequestID(c),
	}})
}

// respondError maps a service error onto a status code and the error envelope.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var vErr *ports.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Code:      ErrCodeValidation,
			Message:   vErr.Error(),
			Field:     vErr.Field,
			RequestID: GetRequestID(c),
		}})
	case errors.Is(err, ports.ErrImmutableField):
		writeError(c, http.StatusBadRequest, ErrCodeImmutableField, err.Error())
	case errors.Is(err, ports.ErrInvalidRequest), errors.Is(err, ports.ErrValidation):
		writeError(c, http.StatusBadRequest, ErrCodeInvalidParameter, err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeError(c, http.StatusNotFound, ErrCodeNotFound, "trade not found")
	case errors.Is(err, ports.ErrTradeAlreadyClosed):
		writeError(c, http.StatusConflict, ErrCodeConflict, "trade is already closed")
	case errors.Is(err, ports.ErrDuplicateEntry):
		writeError(c, http.StatusConflict, ErrCodeDuplicateEntry, err.Error())
	case errors.Is(err, ports.ErrComputation):
		writeError(c, http.StatusUnprocessableEntity, ErrCodeComputation, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, ErrCodeInternalServer, "internal server error")
	}
}
