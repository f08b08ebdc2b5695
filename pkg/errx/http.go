package errx

import "errors"

// Response is the wire shape of an error body. Every service answers errors
// as {"detail": ..., "code": ..., "kind": ...} so the gateway can echo the
// detail of an upstream failure verbatim.
type Response struct {
	Detail string         `json:"detail"`
	Code   string         `json:"code,omitempty"`
	Kind   string         `json:"kind,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// ToResponse converts any error into a status code and a response body.
// Unknown errors become opaque 500s; internals never leak to the wire.
func ToResponse(err error) (int, Response) {
	var e *Error
	if !errors.As(err, &e) {
		return KindInternal.HTTPStatus(), Response{
			Detail: "internal server error",
			Kind:   string(KindInternal),
		}
	}
	return e.HTTPStatus, Response{
		Detail: e.Detail,
		Code:   e.Code,
		Kind:   string(e.Kind),
		Fields: e.Fields,
	}
}
