package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
	paymentdomain "github.com/smallbiznis/propera/internal/payment/domain"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isInvalidStateError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "invalid_state",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billdomain.ErrInvalidAmount),
		errors.Is(err, billdomain.ErrInvalidCurrency),
		errors.Is(err, billdomain.ErrInvalidBillType),
		errors.Is(err, billdomain.ErrInvalidDueDate),
		errors.Is(err, billdomain.ErrUnknownRecurrence),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidCurrency),
		errors.Is(err, paymentdomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, billdomain.ErrBillNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, propertydomain.ErrPropertyNotFound),
		errors.Is(err, propertydomain.ErrResidentNotFound),
		errors.Is(err, propertydomain.ErrServiceNotFound),
		errors.Is(err, propertydomain.ErrAttachmentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrDuplicateTransaction),
		errors.Is(err, billdomain.ErrBillingConflict):
		return true
	default:
		return false
	}
}

func isInvalidStateError(err error) bool {
	switch {
	case errors.Is(err, billdomain.ErrBillImmutable),
		errors.Is(err, billdomain.ErrBillCancelled),
		errors.Is(err, paymentdomain.ErrAlreadyRefunded),
		errors.Is(err, paymentdomain.ErrNotRefundable),
		errors.Is(err, paymentdomain.ErrRefundExceedsOriginal):
		return true
	default:
		return false
	}
}
