package gateway

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"github.com/Abraxas-365/perimeter/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// hop-by-hop headers are meaningful per connection, never forwarded.
var hopByHop = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// Forwarder relays a request to a downstream service and copies the answer
// back untouched: same status, same headers, same body.
type Forwarder struct {
	client *http.Client
}

// NewForwarder creates the forwarder.
func NewForwarder(client *http.Client) *Forwarder {
	return &Forwarder{client: client}
}

// Forward replays the inbound request against baseURL. When userID is set it
// is injected as the trusted identity header; any client-supplied value is
// discarded first, spoofing it from outside must be impossible.
func (f *Forwarder) Forward(c *fiber.Ctx, service, baseURL string, userID kernel.UserID) error {
	target, err := url.Parse(strings.TrimSuffix(baseURL, "/") + c.Path())
	if err != nil {
		return ErrUnreachable(service).WithCause(err)
	}
	target.RawQuery = string(c.Request().URI().QueryString())

	req, err := http.NewRequestWithContext(c.Context(), c.Method(), target.String(), bytes.NewReader(c.Body()))
	if err != nil {
		return ErrUnreachable(service).WithCause(err)
	}

	c.Request().Header.VisitAll(func(key, value []byte) {
		name := string(key)
		if _, skip := hopByHop[http.CanonicalHeaderKey(name)]; skip {
			return
		}
		req.Header.Add(name, string(value))
	})
	req.Header.Del(kernel.HeaderUserID)
	if !userID.IsEmpty() {
		req.Header.Set(kernel.HeaderUserID, userID.String())
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return ErrUnreachable(service).WithCause(err)
	}

	c.Status(resp.StatusCode)
	for name, values := range resp.Header {
		if _, skip := hopByHop[name]; skip {
			continue
		}
		// fasthttp derives Content-Length from the stream itself.
		if name == "Content-Length" {
			continue
		}
		for _, v := range values {
			c.Response().Header.Add(name, v)
		}
	}

	// fasthttp drains and closes the stream after the handler returns.
	if resp.ContentLength >= 0 {
		return c.SendStream(resp.Body, int(resp.ContentLength))
	}
	return c.SendStream(resp.Body)
}
