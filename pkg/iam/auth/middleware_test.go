package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/iam/auth"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

func protectedApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status, body := errx.ToResponse(err)
			return c.Status(status).JSON(body)
		},
	})
	app.Get("/me", auth.TrustedHeader(), func(c *fiber.Ctx) error {
		id, err := auth.UserFromCtx(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"user_id": id})
	})
	return app
}

func TestTrustedHeaderRejectsMissingHeader(t *testing.T) {
	app := protectedApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}

func TestTrustedHeaderRejectsMalformedID(t *testing.T) {
	app := protectedApp()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(kernel.HeaderUserID, "not-a-uuid")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}

func TestTrustedHeaderAcceptsValidID(t *testing.T) {
	app := protectedApp()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(kernel.HeaderUserID, kernel.NewUserID().String())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
}

func TestBearerToken(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/t", func(c *fiber.Ctx) error {
		token, err := auth.BearerToken(c)
		if err != nil {
			return c.SendStatus(http.StatusUnauthorized)
		}
		return c.SendString(token)
	})

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("Authorization", "abc123")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("malformed header: status %d, want 401", resp.StatusCode)
	}
}
