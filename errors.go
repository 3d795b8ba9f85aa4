package strand

import (
	"errors"
	"fmt"
	"net/http"
)

// Field error kinds reported in validation responses. A missing required
// input and a malformed input are distinct failures and stay distinct in
// the response body.
const (
	KindMissing    = "missing_error"
	KindType       = "type_error"
	KindEnum       = "enum_error"
	KindConstraint = "constraint_error"
)

// FieldError describes a single offending input field. Loc identifies the
// field by source and name, with nested body paths appended
// (e.g. ["body", "item", "name"]).
type FieldError struct {
	Loc     []string `json:"loc"`
	Message string   `json:"msg"`
	Kind    string   `json:"kind"`
}

// DuplicateRouteError reports a registration-time collision: either two
// routes with the same method and canonical pattern, or two patterns that
// would both match the same path with equal specificity. Registration
// panics with this error; a partially-registered route must never be
// reachable.
type DuplicateRouteError struct {
	Method  string
	Pattern string
}

func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("duplicate route: %s %s", e.Method, e.Pattern)
}

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ProblemDetail is an RFC 9457 problem details response.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type     string       `json:"type,omitempty"`
	Title    string       `json:"title,omitempty"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// Error returns the detail message (or title if detail is empty).
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// validationProblem aggregates every field failure of one request into a
// single 422 response. Validation is exhaustive: callers collect all errors
// before building this.
func validationProblem(errs []FieldError) *ProblemDetail {
	return &ProblemDetail{
		Type:   "about:blank",
		Title:  "Validation Failed",
		Status: http.StatusUnprocessableEntity,
		Detail: fmt.Sprintf("%d validation error(s)", len(errs)),
		Errors: errs,
	}
}

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// handlerPanic wraps a recovered handler panic so the pipeline can log the
// cause server-side while the client sees only an opaque 500.
type handlerPanic struct {
	value any
	stack []byte
}

func (e *handlerPanic) Error() string {
	return fmt.Sprintf("handler panic: %v", e.value)
}
