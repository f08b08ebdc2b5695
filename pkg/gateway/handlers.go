package gateway

import (
	"net/http"

	"github.com/Abraxas-365/perimeter/pkg/config"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
	"github.com/Abraxas-365/perimeter/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// Handlers mounts the interceptor on the gateway's fiber app.
type Handlers struct {
	authorizer *Authorizer
	forwarder  *Forwarder
	services   map[string]string
	public     map[string]struct{}
}

// NewHandlers wires the interceptor from config. The service map keys are
// route prefixes.
func NewHandlers(cfg config.GatewayConfig, client *http.Client) *Handlers {
	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}
	return &Handlers{
		authorizer: NewAuthorizer(client, cfg.IdentityBaseURL+cfg.ValidatePath),
		forwarder:  NewForwarder(client),
		services: map[string]string{
			"users":   cfg.IdentityBaseURL,
			"storage": cfg.StorageBaseURL,
		},
		public: public,
	}
}

// RegisterRoutes mounts one catch-all per fronted service.
func (h *Handlers) RegisterRoutes(app *fiber.App) {
	app.All("/users/*", h.intercept("users"))
	app.All("/users", h.intercept("users"))
	app.All("/storage/*", h.intercept("storage"))
	app.All("/storage", h.intercept("storage"))
}

// intercept is the allow-list gate in front of the forwarder. Paths on the
// allow-list pass through as-is; every other request must survive the
// validate round-trip before anything is forwarded.
func (h *Handlers) intercept(service string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		base, ok := h.services[service]
		if !ok || base == "" {
			return ErrUnknownService()
		}

		var userID kernel.UserID
		if _, isPublic := h.public[c.Path()]; !isPublic {
			resolved, err := h.authorizer.Authorize(c.Context(), c.Get(fiber.HeaderAuthorization))
			if err != nil {
				logx.WithError(err).WithField("path", c.Path()).Debug("authorization rejected")
				return err
			}
			userID = resolved
		}

		return h.forwarder.Forward(c, service, base, userID)
	}
}
