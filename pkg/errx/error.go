package errx

import (
	"errors"
	"fmt"
)

// Error is the error type every module surfaces to callers: a stable
// machine-readable code plus human detail, never silently swallowed.
type Error struct {
	// Code is the registered, prefix-qualified error code.
	Code string `json:"code"`

	// Detail is the human-readable message.
	Detail string `json:"detail"`

	// Kind classifies the error.
	Kind Kind `json:"kind"`

	// HTTPStatus is the status a transport layer should answer with.
	HTTPStatus int `json:"-"`

	// Fields carries additional context about the error.
	Fields map[string]any `json:"fields,omitempty"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Detail)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality, so errors.Is(err, errx.New("", KindRevoked, ...))
// style sentinels and registry-made errors compare by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithField attaches one context field and returns the error for chaining.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// WithDetail replaces the human-readable message.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// New creates an unregistered error of the given kind. Modules should prefer
// their Registry; New is for one-off wiring and tests.
func New(detail string, kind Kind) *Error {
	return &Error{
		Code:       string(kind),
		Detail:     detail,
		Kind:       kind,
		HTTPStatus: kind.HTTPStatus(),
	}
}

// Wrap wraps err with a message and kind. Returns nil when err is nil.
// When err is already an *Error its code and fields are preserved.
func Wrap(err error, detail string, kind Kind) *Error {
	if err == nil {
		return nil
	}
	var inner *Error
	if errors.As(err, &inner) {
		return &Error{
			Code:       inner.Code,
			Detail:     detail,
			Kind:       kind,
			HTTPStatus: inner.HTTPStatus,
			Fields:     inner.Fields,
			Err:        err,
		}
	}
	return &Error{
		Code:       string(kind),
		Detail:     detail,
		Kind:       kind,
		HTTPStatus: kind.HTTPStatus(),
		Err:        err,
	}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) *Error {
	return Wrap(err, fmt.Sprintf(format, args...), kind)
}

// KindOf extracts the kind from any error. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
