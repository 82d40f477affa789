package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/platform/apierr"
)

// Override replaces the default status/code for one aggregate error code on a
// single route (enroll reports a conflict as 400 already_enrolled).
type Override struct {
	Status int
	Code   string
}

type Overrides map[domainagg.ErrorCode]Override

type mapped struct {
	status  int
	code    string
	message string
}

var defaultStatus = map[domainagg.ErrorCode]Override{
	domainagg.CodeValidation:         {http.StatusBadRequest, "invalid_request"},
	domainagg.CodeNotFound:           {http.StatusNotFound, "not_found"},
	domainagg.CodeForbidden:          {http.StatusForbidden, "not_owner"},
	domainagg.CodeConflict:           {http.StatusConflict, "conflict"},
	domainagg.CodePreconditionFailed: {http.StatusPreconditionFailed, "precondition_failed"},
	domainagg.CodeRetryable:          {http.StatusServiceUnavailable, "retry_later"},
}

// StatusFor maps a service error onto the HTTP status, machine code and client
// message. Internal failures never expose their cause.
func StatusFor(err error, overrides Overrides) (int, string, string) {
	m := mapError(err, overrides)
	return m.status, m.code, m.message
}

func mapError(err error, overrides Overrides) mapped {
	if ae, ok := apierr.As(err); ok {
		msg := http.StatusText(ae.Status)
		if ae.Err != nil {
			msg = ae.Err.Error()
		}
		return mapped{status: ae.Status, code: ae.Code, message: msg}
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		if o, ok := overrides[aggErr.Code]; ok {
			return mapped{status: o.Status, code: o.Code, message: messageOf(aggErr)}
		}
		if o, ok := defaultStatus[aggErr.Code]; ok {
			return mapped{status: o.Status, code: o.Code, message: messageOf(aggErr)}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return mapped{status: http.StatusServiceUnavailable, code: "retry_later", message: "request timed out"}
	}
	return mapped{status: http.StatusInternalServerError, code: "internal_error", message: "internal error"}
}

func messageOf(e *domainagg.Error) string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// RespondServiceError writes the error envelope for err and returns the status.
func RespondServiceError(c *gin.Context, err error, overrides Overrides) int {
	m := mapError(err, overrides)
	c.JSON(m.status, ErrorEnvelope{Error: APIError{Message: m.message, Code: m.code}})
	return m.status
}
