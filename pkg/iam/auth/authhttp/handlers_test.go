package authhttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/fsx"
	"github.com/Abraxas-365/perimeter/pkg/iam/auth"
	"github.com/Abraxas-365/perimeter/pkg/iam/auth/authhttp"
	"github.com/Abraxas-365/perimeter/pkg/iam/otp"
	"github.com/Abraxas-365/perimeter/pkg/iam/session"
	"github.com/Abraxas-365/perimeter/pkg/iam/session/sessionsrv"
	"github.com/Abraxas-365/perimeter/pkg/iam/user"
	"github.com/Abraxas-365/perimeter/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// --- fakes ---

type fakeUserRepo struct {
	users  map[kernel.UserID]*user.User
	hashes map[kernel.UserID]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[kernel.UserID]*user.User),
		hashes: make(map[kernel.UserID]string),
	}
}

func (r *fakeUserRepo) CreateWithCredential(ctx context.Context, u user.User, hash string) (*user.User, error) {
	for _, existing := range r.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return nil, user.ErrDuplicateUser()
		}
	}
	copied := u
	r.users[u.ID] = &copied
	r.hashes[u.ID] = hash
	return &copied, nil
}

func (r *fakeUserRepo) Find(ctx context.Context, lookup user.Lookup) (*user.User, error) {
	for _, u := range r.users {
		switch lookup.Kind() {
		case user.LookupByID:
			if u.ID.String() == lookup.Value() {
				return u, nil
			}
		case user.LookupByEmail:
			if u.Email == lookup.Value() {
				return u, nil
			}
		case user.LookupByUsername:
			if u.Username == lookup.Value() {
				return u, nil
			}
		}
	}
	return nil, user.ErrUserNotFound()
}

func (r *fakeUserRepo) Update(ctx context.Context, id kernel.UserID, upd user.Update) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound()
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	return u, nil
}

func (r *fakeUserRepo) MarkVerified(ctx context.Context, id kernel.UserID) error {
	u, ok := r.users[id]
	if !ok {
		return user.ErrUserNotFound()
	}
	u.IsVerified = true
	return nil
}

func (r *fakeUserRepo) FindCredential(ctx context.Context, id kernel.UserID) (*user.Credential, error) {
	hash, ok := r.hashes[id]
	if !ok {
		return nil, user.ErrUserNotFound()
	}
	return &user.Credential{UserID: id, PasswordHash: hash}, nil
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, id kernel.UserID, hash string) error {
	if _, ok := r.hashes[id]; !ok {
		return user.ErrUserNotFound()
	}
	r.hashes[id] = hash
	return nil
}

type fakeSessionRepo struct {
	rows map[kernel.SessionID]*session.RefreshSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: make(map[kernel.SessionID]*session.RefreshSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s session.RefreshSession) error {
	copied := s
	r.rows[s.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) FindByID(ctx context.Context, id kernel.SessionID) (*session.RefreshSession, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, session.ErrNotFound()
	}
	copied := *row
	return &copied, nil
}

func (r *fakeSessionRepo) FindByDigest(ctx context.Context, digest string) (*session.RefreshSession, error) {
	for _, row := range r.rows {
		if row.TokenDigest == digest {
			copied := *row
			return &copied, nil
		}
	}
	return nil, session.ErrNotFound()
}

func (r *fakeSessionRepo) Revoke(ctx context.Context, id kernel.SessionID) error {
	row, ok := r.rows[id]
	if !ok || row.Revoked {
		return session.ErrRevoked()
	}
	row.Revoked = true
	return nil
}

func (r *fakeSessionRepo) Reinstate(ctx context.Context, id kernel.SessionID) error {
	if row, ok := r.rows[id]; ok {
		row.Revoked = false
	}
	return nil
}

func (r *fakeSessionRepo) RevokeAllForUser(ctx context.Context, userID kernel.UserID) error {
	for _, row := range r.rows {
		if row.UserID == userID {
			row.Revoked = true
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "h:" + plain, nil }
func (plainHasher) Verify(plain, hash string) bool    { return "h:"+plain == hash }

type fakeOTP struct {
	code        string
	outstanding map[kernel.UserID]string
}

func newFakeOTP(code string) *fakeOTP {
	return &fakeOTP{code: code, outstanding: make(map[kernel.UserID]string)}
}

func (f *fakeOTP) Issue(ctx context.Context, userID kernel.UserID) (string, error) {
	if _, ok := f.outstanding[userID]; ok {
		return "", otp.ErrOutstanding()
	}
	f.outstanding[userID] = f.code
	return f.code, nil
}

func (f *fakeOTP) Verify(ctx context.Context, userID kernel.UserID, candidate string) (bool, error) {
	code, ok := f.outstanding[userID]
	if !ok {
		return false, otp.ErrNotFound()
	}
	delete(f.outstanding, userID)
	return code == candidate, nil
}

type fakeNotifier struct{}

func (fakeNotifier) EnqueueEmail(ctx context.Context, to, subject, body string) {}

type fakeStorage struct{}

func (fakeStorage) Write(ctx context.Context, path string, data []byte, contentType string) error {
	return nil
}
func (fakeStorage) Read(ctx context.Context, path string) ([]byte, error) { return nil, nil }
func (fakeStorage) Delete(ctx context.Context, path string) error         { return nil }
func (fakeStorage) Exists(ctx context.Context, path string) (bool, error) { return false, nil }
func (fakeStorage) URL(ctx context.Context, path string) (string, error)  { return "http://x/" + path, nil }

var _ fsx.Storage = fakeStorage{}

// --- helpers ---

func newApp() *fiber.App {
	userRepo := newFakeUserRepo()
	sessRepo := newFakeSessionRepo()
	codec := auth.NewCodec("test-secret", "test")
	digester := auth.NewDigester("test-salt")
	sessions := sessionsrv.NewService(sessRepo, userRepo, codec, digester, time.Hour, 24*time.Hour)
	users := usersrv.NewService(userRepo, plainHasher{}, newFakeOTP("12345678"), sessions, fakeNotifier{})

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status, body := errx.ToResponse(err)
			return c.Status(status).JSON(body)
		},
	})
	authhttp.NewHandlers(users, sessions, fakeStorage{}).RegisterRoutes(app)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
}

func validate(t *testing.T, app *fiber.App, accessToken string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/validate", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("GET /validate: %v", err)
	}
	return resp
}

// --- tests ---

// Walks the whole credential lifecycle through the HTTP surface: register,
// verify, login, validate, refresh, replay the dead token, logout, and
// confirm the surviving access token died with its session.
func TestAuthLifecycleOverHTTP(t *testing.T) {
	app := newApp()

	resp := postJSON(t, app, "/users/auth/register", fiber.Map{
		"email":    "ada@example.com",
		"username": "ada",
		"password": "Passw0rd!",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d, want 201", resp.StatusCode)
	}

	resp = postJSON(t, app, "/users/auth/verify_otp", fiber.Map{
		"username": "ada",
		"code":     "12345678",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify_otp: status %d, want 200", resp.StatusCode)
	}

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	resp = postJSON(t, app, "/users/auth/login", fiber.Map{
		"username": "ada",
		"password": "Passw0rd!",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d, want 200", resp.StatusCode)
	}
	decodeJSON(t, resp, &pair)
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("login answered an incomplete pair")
	}

	if resp = validate(t, app, pair.AccessToken); resp.StatusCode != http.StatusOK {
		t.Fatalf("validate: status %d, want 200", resp.StatusCode)
	}

	var fresh struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	resp = postJSON(t, app, "/users/auth/refresh", fiber.Map{"refresh_token": pair.RefreshToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: status %d, want 200", resp.StatusCode)
	}
	decodeJSON(t, resp, &fresh)

	// The rotation killed the old session, and the old access token with it.
	resp = postJSON(t, app, "/users/auth/refresh", fiber.Map{"refresh_token": pair.RefreshToken})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replayed refresh: status %d, want 401", resp.StatusCode)
	}
	if resp = validate(t, app, pair.AccessToken); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("validate of rotated-away token: status %d, want 401", resp.StatusCode)
	}

	resp = postJSON(t, app, "/users/auth/logout", fiber.Map{"refresh_token": fresh.RefreshToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: status %d, want 200", resp.StatusCode)
	}
	if resp = validate(t, app, fresh.AccessToken); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("validate after logout: status %d, want 401", resp.StatusCode)
	}
}

func TestValidateRequiresBearer(t *testing.T) {
	app := newApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/validate", nil), 5000)
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}
