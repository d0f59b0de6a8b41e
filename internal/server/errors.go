package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/fieldreport/internal/ratelimit"
	reportdomain "github.com/smallbiznis/fieldreport/internal/report/domain"
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

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

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

// bindError keeps validator failures so their fields reach the client;
// anything else is a malformed request.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs
	}
	return invalidRequestError()
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  fromFieldErrors(fieldErrs),
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var persistErr *reportdomain.PersistenceError
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, reportdomain.ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, reportdomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, reportdomain.ErrConfiguration):
		return http.StatusConflict, errorPayload{
			Type:    "configuration_error",
			Message: "account is not assigned to an organization",
		}
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, ratelimit.ErrSubmissionInFlight):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code written to the
// request log line. It mirrors mapError without building a payload.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError {
		var persistErr *reportdomain.PersistenceError
		if errors.As(err, &persistErr) {
			code = persistErr.Op
		}
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func fromFieldErrors(fieldErrs validator.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Code:    fe.Tag(),
			Message: "invalid value",
		})
	}
	return out
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || reportdomain.IsValidationError(err)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, reportdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, reportdomain.ErrInvalidDate):
		return reportdomain.ErrInvalidDate.Error()
	case errors.Is(err, reportdomain.ErrInvalidRange):
		return reportdomain.ErrInvalidRange.Error()
	case errors.Is(err, reportdomain.ErrInvalidID):
		return reportdomain.ErrInvalidID.Error()
	case errors.Is(err, reportdomain.ErrNegativeAmount):
		return reportdomain.ErrNegativeAmount.Error()
	case errors.Is(err, reportdomain.ErrInvalidAmount):
		return reportdomain.ErrInvalidAmount.Error()
	case errors.Is(err, reportdomain.ErrNegativeCount):
		return reportdomain.ErrNegativeCount.Error()
	case errors.Is(err, reportdomain.ErrInvalidCategory):
		return reportdomain.ErrInvalidCategory.Error()
	case errors.Is(err, reportdomain.ErrTooManyLines):
		return reportdomain.ErrTooManyLines.Error()
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_line_count":
		return "lines"
	case "invalid_amount_precision":
		return "amount"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_date":
		return "date must be YYYY-MM-DD"
	case "invalid_range":
		return "start must not be after end"
	case "invalid_amount":
		return "amounts must not be negative"
	case "invalid_amount_precision":
		return "amounts allow two decimal places and must be below 10^18"
	case "invalid_count":
		return "counts must not be negative"
	case "invalid_line_count":
		return "too many lines in one submission"
	default:
		return "invalid value"
	}
}
