package errx_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Abraxas-365/perimeter/pkg/errx"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[errx.Kind]int{
		errx.KindNotFound:     http.StatusNotFound,
		errx.KindConflict:     http.StatusConflict,
		errx.KindInvalid:      http.StatusBadRequest,
		errx.KindExpired:      http.StatusUnauthorized,
		errx.KindRevoked:      http.StatusUnauthorized,
		errx.KindUnauthorized: http.StatusUnauthorized,
		errx.KindValidation:   http.StatusBadRequest,
		errx.KindUpstream:     http.StatusBadGateway,
		errx.KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.HTTPStatus(); got != want {
			t.Errorf("%s: status %d, want %d", kind, got, want)
		}
	}
}

func TestRegistryPrefixesCodes(t *testing.T) {
	reg := errx.NewRegistry("DEMO")
	code := reg.Register("BROKEN", errx.KindInternal, 0, "it broke")

	err := reg.New(code)
	if err.Code != "DEMO_BROKEN" {
		t.Fatalf("code %q", err.Code)
	}
	if err.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("zero status should fall back to the kind default, got %d", err.HTTPStatus)
	}
}

func TestWrapPreservesCode(t *testing.T) {
	reg := errx.NewRegistry("DEMO")
	code := reg.Register("GONE", errx.KindNotFound, 0, "missing")

	inner := reg.New(code)
	wrapped := errx.Wrap(fmt.Errorf("loading: %w", inner), "load failed", errx.KindUpstream)

	if wrapped.Code != "DEMO_GONE" {
		t.Fatalf("wrap lost the inner code: %q", wrapped.Code)
	}
	if !errors.Is(wrapped, inner) {
		t.Fatal("wrapped error should match its cause")
	}
}

func TestIsKind(t *testing.T) {
	err := errx.New("nope", errx.KindRevoked)
	if !errx.IsKind(err, errx.KindRevoked) {
		t.Fatal("expected Revoked kind")
	}
	if errx.IsKind(errors.New("plain"), errx.KindRevoked) {
		t.Fatal("plain errors carry no kind")
	}
	if errx.KindOf(errors.New("plain")) != errx.KindInternal {
		t.Fatal("unknown errors default to Internal")
	}
}

func TestToResponseHidesUnknownErrors(t *testing.T) {
	status, body := errx.ToResponse(errors.New("secret database password leaked"))
	if status != http.StatusInternalServerError {
		t.Fatalf("status %d", status)
	}
	if body.Detail != "internal server error" {
		t.Fatalf("internal detail leaked: %q", body.Detail)
	}

	status, body = errx.ToResponse(errx.New("Token revoked", errx.KindRevoked))
	if status != http.StatusUnauthorized || body.Detail != "Token revoked" {
		t.Fatalf("got %d %q", status, body.Detail)
	}
}
