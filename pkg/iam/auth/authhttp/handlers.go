// Package authhttp is the fiber surface of the identity service. It sits on
// top of the services and the auth primitives; keeping it out of package auth
// lets the services depend on the token codec without dragging in HTTP.
package authhttp

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/fsx"
	"github.com/Abraxas-365/perimeter/pkg/iam/auth"
	"github.com/Abraxas-365/perimeter/pkg/iam/session/sessionsrv"
	"github.com/Abraxas-365/perimeter/pkg/iam/user"
	"github.com/Abraxas-365/perimeter/pkg/iam/user/usersrv"
	"github.com/gofiber/fiber/v2"
)

// Handlers is the HTTP surface of the identity service. Public auth routes
// are reachable through the gateway allow-list; everything else expects the
// trusted identity header the gateway injects.
type Handlers struct {
	users    *usersrv.Service
	sessions *sessionsrv.Service
	storage  fsx.Storage
}

// NewHandlers wires the handler set.
func NewHandlers(users *usersrv.Service, sessions *sessionsrv.Service, storage fsx.Storage) *Handlers {
	return &Handlers{users: users, sessions: sessions, storage: storage}
}

// RegisterRoutes mounts all identity routes on the app.
func (h *Handlers) RegisterRoutes(app *fiber.App) {
	app.Get("/validate", h.Validate)

	authGroup := app.Group("/users/auth")
	authGroup.Post("/register", h.Register)
	authGroup.Post("/login", h.Login)
	authGroup.Post("/send_otp", h.SendOTP)
	authGroup.Post("/verify_otp", h.VerifyOTP)
	authGroup.Post("/refresh", h.Refresh)
	authGroup.Post("/logout", h.Logout)
	authGroup.Post("/reset_password/otp", h.ResetPasswordOTP)
	authGroup.Post("/reset_password", auth.TrustedHeader(), h.ResetPassword)

	users := app.Group("/users")
	users.Get("/id", auth.TrustedHeader(), h.WhoAmI)
	users.Get("/short/:username", h.GetUserShort)
	users.Patch("/update", auth.TrustedHeader(), h.UpdateProfile)
	users.Post("/photo", auth.TrustedHeader(), h.UploadPhoto)
	users.Get("/:username", h.GetUser)
}

// identifier is the shared "who" fragment of auth request bodies. Exactly one
// of email or username is expected; email wins when both are present.
type identifier struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (i identifier) lookup() (user.Lookup, error) {
	return user.LookupFrom("", i.Email, i.Username)
}

// Register handles POST /users/auth/register.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var in usersrv.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return errx.New("Malformed request body", errx.KindInvalid)
	}
	if in.Email == "" || in.Username == "" {
		return errx.New("email and username are required", errx.KindValidation)
	}

	created, err := h.users.Register(c.Context(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// Login handles POST /users/auth/login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var in struct {
		identifier
		Password string `json:"password"`
	}
	if err := c.BodyParser(&in); err != nil {
		return errx.New("Malformed request body", errx.KindInvalid)
	}
	lookup, err := in.lookup()
	if err != nil {
		return err
	}

	pair, err := h.users.Login(c.Context(), lookup, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(pair)
}

// SendOTP handles POST /users/auth/send_otp.
func (h *Handlers) SendOTP(c *fiber.Ctx) error {
	var in identifier
	if err := c.BodyParser(&in); err != nil {
		return errx.New("Malformed request body", errx.KindInvalid)
	}
	lookup, err := in.lookup()
	if err != nil {
		return err
	}

	if err := h.users.SendOTP(c.Context(), lookup); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"detail": "OTP sent"})
}

// VerifyOTP handles POST /users/auth/verify_otp.
func (h *Handlers) VerifyOTP(c *fiber.Ctx) error {
	var in struct {
		identifier
		Code string `json:"code"`
	}
	if err := c.BodyParser(&in); err != nil {
		return errx.New("Malformed request body", errx.KindInvalid)
	}
	lookup, err := in.lookup()
	if err != nil {
		return err
	}

	verified, err := h.users.VerifyOTP(c.Context(), lookup, in.Code)
	if err != nil {
		return err
	}
	return c.JSON(verified)
}

// Refresh handles POST /users/auth/refresh. The old refresh token dies
// whether or not the rotation succeeds.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&in); err != nil || in.RefreshToken == "" {
		return errx.New("refresh_token is required", errx.KindInvalid)
	}

	pair, err := h.sessions.Rotate(c.Context(), in.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(pair)
}

// Logout handles POST /users/auth/logout.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&in); err != nil || in.RefreshToken == "" {
		return errx.New("refresh_token is required", errx.KindInvalid)
	}

	if err := h.sessions.Revoke(c.Context(), in.RefreshToken); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"detail": "Logged out"})
}

// ResetPassword handles POST /users/auth/reset_password (behind the trusted
// header). Every session of the user is revoked afterwards.
func (h *Handlers) ResetPassword(c *fiber.Ctx) error {
	userID, err := auth.UserFromCtx(c)
	if err != nil {
		return err
	}
	var in struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&in); err != nil {
		return errx.New("Malformed request body", errx.KindInvalid)
	}

	if err := h.users.ChangePassword(c.Context(), userID, in.OldPassword, in.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"detail": "Password updated"})
}

// ResetPasswordOTP handles POST /users/auth/reset_password/otp, the recovery
// path for users locked out of their password.
func (h *Handlers) ResetPasswordOTP(c *fiber.Ctx) error {
	var in struct {
		identifier
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&in); err != nil {
		return errx.New("Malformed request body", errx.KindInvalid)
	}
	lookup, err := in.lookup()
	if err != nil {
		return err
	}

	if err := h.users.ResetPasswordOTP(c.Context(), lookup, in.Code, in.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"detail": "Password updated"})
}

// Validate handles GET /validate, the gateway's synchronous authorization
// round-trip: decode the bearer token, check the liveness of its refresh
// session, answer the resolved user id.
func (h *Handlers) Validate(c *fiber.Ctx) error {
	token, err := auth.BearerToken(c)
	if err != nil {
		return err
	}
	userID, err := h.sessions.Resolve(c.Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user_id": userID})
}

// WhoAmI handles GET /users/id: echoes the identity the gateway resolved.
func (h *Handlers) WhoAmI(c *fiber.Ctx) error {
	userID, err := auth.UserFromCtx(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user_id": userID})
}

// GetUser handles GET /users/:username.
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	u, err := h.users.Get(c.Context(), user.ByUsername(c.Params("username")))
	if err != nil {
		return err
	}
	return c.JSON(u)
}

// GetUserShort handles GET /users/short/:username with a trimmed body.
func (h *Handlers) GetUserShort(c *fiber.Ctx) error {
	u, err := h.users.Get(c.Context(), user.ByUsername(c.Params("username")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":        u.ID,
		"username":  u.Username,
		"full_name": u.FullName,
	})
}

// UpdateProfile handles PATCH /users/update.
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	userID, err := auth.UserFromCtx(c)
	if err != nil {
		return err
	}
	var upd user.Update
	if err := c.BodyParser(&upd); err != nil {
		return errx.New("Malformed request body", errx.KindInvalid)
	}

	updated, err := h.users.UpdateProfile(c.Context(), userID, upd)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// UploadPhoto handles POST /users/photo: stores the profile picture through
// the storage port and answers its URL.
func (h *Handlers) UploadPhoto(c *fiber.Ctx) error {
	userID, err := auth.UserFromCtx(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return errx.New("file is required", errx.KindInvalid)
	}

	f, err := header.Open()
	if err != nil {
		return errx.Wrap(err, "failed to open upload", errx.KindInternal)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return errx.Wrap(err, "failed to read upload", errx.KindInternal)
	}

	path := fmt.Sprintf("photos/%s%s", userID, filepath.Ext(header.Filename))
	if err := h.storage.Write(c.Context(), path, data, header.Header.Get(fiber.HeaderContentType)); err != nil {
		return err
	}
	url, err := h.storage.URL(c.Context(), path)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}
