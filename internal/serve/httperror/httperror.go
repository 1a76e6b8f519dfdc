// Package httperror maps the core's typed error taxonomy (spec §7) onto
// HTTP status codes and a uniform JSON error body.
package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stellar/go/support/log"
	"github.com/stellar/go/support/render/httpjson"
)

type HTTPError struct {
	StatusCode int            `json:"-"`
	Message    string         `json:"error"`
	ErrorCode  string         `json:"error_code,omitempty"`
	Extras     map[string]any `json:"extras,omitempty"`
	Err        error          `json:"-"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) WithErrorCode(code string) *HTTPError {
	e.ErrorCode = code
	return e
}

// WithExtras attaches field-level validation detail to the response body,
// the way a BadInput constructed from a validators.Validator's Errors map
// surfaces each rejected field to the caller.
func (e *HTTPError) WithExtras(extras map[string]any) *HTTPError {
	e.Extras = extras
	return e
}

func (e *HTTPError) Render(w http.ResponseWriter) {
	httpjson.RenderStatus(w, e.StatusCode, e, httpjson.JSON)
}

// ReportErrorFunc reports an unexpected error to the crash tracker; wired up
// at startup via SetDefaultReportErrorFunc so Internal never leaks a stack
// trace to the client but still reaches Sentry.
type ReportErrorFunc func(ctx context.Context, err error, msg string)

var defaultReportErrorFunc ReportErrorFunc = func(ctx context.Context, err error, msg string) {
	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	log.Ctx(ctx).Errorf("%+v", err)
}

func SetDefaultReportErrorFunc(fn ReportErrorFunc) {
	defaultReportErrorFunc = fn
}

func newHTTPError(statusCode int, msg string, originalErr error, errorCode string) *HTTPError {
	if msg == "" && originalErr != nil {
		var hErr *HTTPError
		if errors.As(originalErr, &hErr) && hErr.StatusCode == statusCode {
			return hErr
		}
	}
	return &HTTPError{StatusCode: statusCode, Message: msg, Err: originalErr, ErrorCode: errorCode}
}

// NotFound — entity id present in request but absent in store. HTTP 404.
func NotFound(msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "Resource not found."
	}
	return newHTTPError(http.StatusNotFound, msg, originalErr, "NOT_FOUND")
}

// BadInput — malformed id, missing/invalid field, unknown processor_type. HTTP 400.
func BadInput(msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "The request was invalid in some way."
	}
	return newHTTPError(http.StatusBadRequest, msg, originalErr, "BAD_INPUT")
}

// InsufficientFunds — wallet precondition violated. Surfaced as 400 with a
// typed code rather than the nonstandard 402 (spec §7).
func InsufficientFunds(msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "The wallet does not have enough balance for this operation."
	}
	return newHTTPError(http.StatusBadRequest, msg, originalErr, "INSUFFICIENT_FUNDS")
}

// BadState — illegal state transition (e.g., completing a terminal job). HTTP 400.
func BadState(msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "This operation is not valid for the resource's current state."
	}
	return newHTTPError(http.StatusBadRequest, msg, originalErr, "BAD_STATE")
}

// Unauthorized — missing/wrong key, or a principal accessing another
// principal's resource. HTTP 401.
func Unauthorized(msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "Not authorized."
	}
	return newHTTPError(http.StatusUnauthorized, msg, originalErr, "UNAUTHORIZED")
}

// Forbidden is the 403 counterpart to Unauthorized, used when the key is
// valid but doesn't own the requested resource.
func Forbidden(msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "You don't have permission to perform this action."
	}
	return newHTTPError(http.StatusForbidden, msg, originalErr, "FORBIDDEN")
}

// Transient — database or queue connectivity failure, timeout. HTTP 503.
func Transient(msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "A transient error occurred; please retry."
	}
	return newHTTPError(http.StatusServiceUnavailable, msg, originalErr, "TRANSIENT")
}

// Internal — unexpected invariant violation. HTTP 500. Reports through the
// crash tracker before constructing the client-safe body.
func Internal(ctx context.Context, msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "An internal error occurred while processing this request."
	}
	defaultReportErrorFunc(ctx, originalErr, msg)
	return newHTTPError(http.StatusInternalServerError, "An internal error occurred while processing this request.", originalErr, "INTERNAL")
}
