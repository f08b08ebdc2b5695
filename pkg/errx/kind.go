package errx

import "net/http"

// Kind categorizes an error with a stable, machine-readable class.
type Kind string

const (
	// KindNotFound means the referenced entity does not exist.
	KindNotFound Kind = "NOT_FOUND"

	// KindConflict means an invariant rejected the write (duplicate key,
	// outstanding challenge, lost conditional update).
	KindConflict Kind = "CONFLICT"

	// KindInvalid means a malformed credential or payload.
	KindInvalid Kind = "INVALID"

	// KindExpired means a credential whose own lifetime has elapsed.
	KindExpired Kind = "EXPIRED"

	// KindRevoked means a credential or session explicitly invalidated
	// before its natural expiry.
	KindRevoked Kind = "REVOKED"

	// KindUnauthorized means a missing or unusable credential on a
	// protected path.
	KindUnauthorized Kind = "UNAUTHORIZED"

	// KindValidation means the request body failed validation.
	KindValidation Kind = "VALIDATION"

	// KindUpstream means a transport failure talking to the store, the
	// identity service, or the notification sink.
	KindUpstream Kind = "UPSTREAM_UNAVAILABLE"

	// KindInternal is everything else.
	KindInternal Kind = "INTERNAL"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// HTTPStatus maps a kind to its default HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalid, KindValidation:
		return http.StatusBadRequest
	case KindExpired, KindRevoked, KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
