// Package gateway is the authorization perimeter: every request to a
// downstream service passes through it. Public paths forward untouched;
// everything else requires a successful validate round-trip against the
// identity service first, and the resolved user id travels downstream in the
// trusted identity header. Any doubt fails closed.
package gateway

import (
	"net/http"

	"github.com/Abraxas-365/perimeter/pkg/errx"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("GATEWAY")

var (
	// CodeUnreachable means the gateway could not complete a round-trip to a
	// service it fronts. The detail names the service.
	CodeUnreachable = ErrRegistry.Register("UNREACHABLE", errx.KindUpstream, http.StatusBadGateway, "Service unreachable")

	// CodeDenied carries an authorization rejection echoed from the identity
	// service; its status and detail replace the registered defaults.
	CodeDenied = ErrRegistry.Register("DENIED", errx.KindUnauthorized, http.StatusUnauthorized, "Not authorized")

	// CodeUnknownService means no route matched a configured target.
	CodeUnknownService = ErrRegistry.Register("UNKNOWN_SERVICE", errx.KindNotFound, http.StatusNotFound, "Unknown service")
)

func ErrUnreachable(service string) *errx.Error {
	return ErrRegistry.NewWithDetail(CodeUnreachable, "Service "+service+" is unreachable")
}

func ErrUnknownService() *errx.Error { return ErrRegistry.New(CodeUnknownService) }
