package errx

import (
	"fmt"
	"sync"
)

// Code is an error code registered by a module.
type Code struct {
	Code       string
	Kind       Kind
	HTTPStatus int
	Detail     string
}

// Registry holds the error codes of one module under a shared prefix.
type Registry struct {
	prefix string
	mu     sync.RWMutex
	codes  map[string]*Code
}

// NewRegistry creates an error registry. Codes register as PREFIX_NAME.
func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix: prefix,
		codes:  make(map[string]*Code),
	}
}

// Register adds a code to the registry. The zero httpStatus falls back to the
// kind's default mapping.
func (r *Registry) Register(name string, kind Kind, httpStatus int, detail string) *Code {
	r.mu.Lock()
	defer r.mu.Unlock()

	if httpStatus == 0 {
		httpStatus = kind.HTTPStatus()
	}
	c := &Code{
		Code:       fmt.Sprintf("%s_%s", r.prefix, name),
		Kind:       kind,
		HTTPStatus: httpStatus,
		Detail:     detail,
	}
	r.codes[name] = c
	return c
}

// New creates an error from a registered code.
func (r *Registry) New(c *Code) *Error {
	return &Error{
		Code:       c.Code,
		Detail:     c.Detail,
		Kind:       c.Kind,
		HTTPStatus: c.HTTPStatus,
	}
}

// NewWithDetail creates an error from a registered code with a custom message.
func (r *Registry) NewWithDetail(c *Code, detail string) *Error {
	e := r.New(c)
	e.Detail = detail
	return e
}

// NewWithCause creates an error from a registered code wrapping a cause.
func (r *Registry) NewWithCause(c *Code, cause error) *Error {
	e := r.New(c)
	e.Err = cause
	return e
}

// Get looks up a registered code by its unprefixed name.
func (r *Registry) Get(name string) (*Code, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codes[name]
	return c, ok
}
