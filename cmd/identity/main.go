package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/config"
	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		logx.Fatal("JWT_SECRET is required")
	}

	logx.Info("starting identity service")

	container := NewContainer(cfg)
	defer container.Cleanup()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name + "-identity",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		BodyLimit:             10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	app.Get("/health", healthHandler(container))
	container.Handlers.RegisterRoutes(app)

	startServer(app, cfg.App.Port)
}

func healthHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{"status": "healthy"}
		status := fiber.StatusOK
		if err := container.DB.Ping(); err != nil {
			health["status"] = "degraded"
			health["db"] = err.Error()
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}

// errorHandler renders every error through the errx wire shape.
func errorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{"detail": e.Message})
	}

	status, body := errx.ToResponse(err)
	if status >= fiber.StatusInternalServerError {
		logx.WithError(err).WithFields(logx.Fields{
			"path":   c.Path(),
			"method": c.Method(),
		}).Error("request failed")
	}
	return c.Status(status).JSON(body)
}

func startServer(app *fiber.App, port string) {
	go func() {
		logx.Infof("identity service listening on :%s", port)
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
