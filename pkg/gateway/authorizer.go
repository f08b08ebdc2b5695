package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
)

// Authorizer performs the synchronous validate round-trip against the
// identity service. No request is ever forwarded on a failed or unreachable
// validation.
type Authorizer struct {
	client      *http.Client
	validateURL string
}

// NewAuthorizer creates the authorizer. The client's timeout bounds the
// round-trip.
func NewAuthorizer(client *http.Client, validateURL string) *Authorizer {
	return &Authorizer{client: client, validateURL: validateURL}
}

// Authorize replays the caller's Authorization header against the validate
// endpoint and returns the resolved user id. A transport failure maps to an
// Upstream error naming the identity service; a rejection echoes the
// identity service's status and detail verbatim.
func (a *Authorizer) Authorize(ctx context.Context, authHeader string) (kernel.UserID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.validateURL, nil)
	if err != nil {
		return "", errx.Wrap(err, "failed to build validate request", errx.KindInternal)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	// The validate call has no body; a stale length would poison the
	// round-trip.
	req.ContentLength = 0

	resp, err := a.client.Do(req)
	if err != nil {
		return "", ErrUnreachable("identity").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", ErrUnreachable("identity").WithCause(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := ErrRegistry.New(CodeDenied)
		e.HTTPStatus = resp.StatusCode
		var wire struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &wire) == nil && wire.Detail != "" {
			e.Detail = wire.Detail
		}
		return "", e
	}

	var ok struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(body, &ok); err != nil || ok.UserID == "" {
		return "", ErrUnreachable("identity").WithDetail("Malformed validate response")
	}
	return kernel.UserID(ok.UserID), nil
}
