package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable, client-facing error identifier written to API responses.
type Code string

const (
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeForbidden              Code = "FORBIDDEN"
	CodeNotFound               Code = "NOT_FOUND"
	CodeConflict               Code = "CONFLICT"
	CodeStateConflict          Code = "STATE_CONFLICT"
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
	CodeIdempotency            Code = "IDEMPOTENCY_KEY_REUSED"
	CodePayloadTooLarge        Code = "PAYLOAD_TOO_LARGE"
	CodeInternal               Code = "INTERNAL_ERROR"
	CodeDependency             Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	// DetailsAllowed gates whether Error.Details reaches the client.
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:             {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeUnauthorized:           {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
	CodeForbidden:              {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
	CodeNotFound:               {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:               {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected", DetailsAllowed: true},
	CodeStateConflict:          {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true},
	CodeConcurrentModification: {HTTPStatus: http.StatusConflict, Retryable: true, PublicMessage: "resource was modified concurrently", DetailsAllowed: true},
	CodeIdempotency:            {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
	CodePayloadTooLarge:        {HTTPStatus: http.StatusRequestEntityTooLarge, PublicMessage: "request body too large", DetailsAllowed: true},
	CodeInternal:               {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:             {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},
}

// MetadataFor returns the rendering rules for code. Unknown codes render as
// internal errors.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error carries a code, a client-safe message and optional details. The cause
// is kept for logs and errors.Is/As but never rendered.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

// Coder is implemented by typed domain errors that know their API representation.
type Coder interface {
	error
	APIError() *Error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails returns a copy carrying details; e is left untouched so shared
// error values stay safe to reuse.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.details = details
	return &clone
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts the coded error from err. Typed domain errors anywhere in the
// chain are converted through their APIError method.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	var coder Coder
	if !stdErrors.As(err, &coder) {
		return nil
	}
	apiErr := coder.APIError()
	if apiErr != nil && apiErr.cause == nil {
		apiErr.cause = coder
	}
	return apiErr
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
