// The gateway binary: the single public entry point. Everything behind it
// trusts the identity header it injects.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/config"
	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/gateway"
	"github.com/Abraxas-365/perimeter/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()

	logx.Info("starting gateway")

	client := &http.Client{Timeout: cfg.Gateway.ClientTimeout}
	handlers := gateway.NewHandlers(cfg.Gateway, client)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name + "-gateway",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		BodyLimit:             10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	handlers.RegisterRoutes(app)

	startServer(app, cfg.App.Port)
}

func errorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{"detail": e.Message})
	}

	status, body := errx.ToResponse(err)
	if status >= fiber.StatusInternalServerError {
		logx.WithError(err).WithFields(logx.Fields{
			"path":   c.Path(),
			"method": c.Method(),
		}).Error("gateway request failed")
	}
	return c.Status(status).JSON(body)
}

func startServer(app *fiber.App, port string) {
	go func() {
		logx.Infof("gateway listening on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logx.Infof("received %v, shutting down", sig)

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("forced shutdown: %v", err)
	}
}
