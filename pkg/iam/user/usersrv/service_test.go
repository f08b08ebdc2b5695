package usersrv_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/iam/otp"
	"github.com/Abraxas-365/perimeter/pkg/iam/session/sessionsrv"
	"github.com/Abraxas-365/perimeter/pkg/iam/user"
	"github.com/Abraxas-365/perimeter/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
)

// --- fakes ---

type fakeRepo struct {
	users  map[kernel.UserID]*user.User
	hashes map[kernel.UserID]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:  make(map[kernel.UserID]*user.User),
		hashes: make(map[kernel.UserID]string),
	}
}

func (r *fakeRepo) CreateWithCredential(ctx context.Context, u user.User, hash string) (*user.User, error) {
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

func (r *fakeRepo) Find(ctx context.Context, lookup user.Lookup) (*user.User, error) {
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

func (r *fakeRepo) Update(ctx context.Context, id kernel.UserID, upd user.Update) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound()
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	return u, nil
}

func (r *fakeRepo) MarkVerified(ctx context.Context, id kernel.UserID) error {
	u, ok := r.users[id]
	if !ok {
		return user.ErrUserNotFound()
	}
	u.IsVerified = true
	return nil
}

func (r *fakeRepo) FindCredential(ctx context.Context, id kernel.UserID) (*user.Credential, error) {
	hash, ok := r.hashes[id]
	if !ok {
		return nil, user.ErrUserNotFound()
	}
	return &user.Credential{UserID: id, PasswordHash: hash}, nil
}

func (r *fakeRepo) UpdatePasswordHash(ctx context.Context, id kernel.UserID, hash string) error {
	if _, ok := r.hashes[id]; !ok {
		return user.ErrUserNotFound()
	}
	r.hashes[id] = hash
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "h:" + plain, nil }
func (plainHasher) Verify(plain, hash string) bool    { return "h:"+plain == hash }

// fakeOTP hands out one fixed code per issue and consumes it on verify.
type fakeOTP struct {
	code        string
	outstanding map[kernel.UserID]string
	issueErr    error
}

func newFakeOTP(code string) *fakeOTP {
	return &fakeOTP{code: code, outstanding: make(map[kernel.UserID]string)}
}

func (f *fakeOTP) Issue(ctx context.Context, userID kernel.UserID) (string, error) {
	if f.issueErr != nil {
		return "", f.issueErr
	}
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

type fakeSessions struct {
	issued     int
	revokedAll []kernel.UserID
}

func (f *fakeSessions) Issue(ctx context.Context, u *user.User) (*sessionsrv.TokenPair, error) {
	f.issued++
	return &sessionsrv.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (f *fakeSessions) RevokeAll(ctx context.Context, userID kernel.UserID) error {
	f.revokedAll = append(f.revokedAll, userID)
	return nil
}

type recordedEmail struct {
	to, subject, body string
}

type fakeNotifier struct {
	sent []recordedEmail
}

func (f *fakeNotifier) EnqueueEmail(ctx context.Context, to, subject, body string) {
	f.sent = append(f.sent, recordedEmail{to, subject, body})
}

// --- helpers ---

type world struct {
	svc      *usersrv.Service
	repo     *fakeRepo
	otps     *fakeOTP
	sessions *fakeSessions
	notifier *fakeNotifier
}

func newWorld() *world {
	w := &world{
		repo:     newFakeRepo(),
		otps:     newFakeOTP("12345678"),
		sessions: &fakeSessions{},
		notifier: &fakeNotifier{},
	}
	w.svc = usersrv.NewService(w.repo, plainHasher{}, w.otps, w.sessions, w.notifier)
	return w
}

func register(t *testing.T, w *world) *user.User {
	t.Helper()
	created, err := w.svc.Register(context.Background(), usersrv.RegisterInput{
		Email:    "ada@example.com",
		Username: "ada",
		FullName: "Ada Lovelace",
		Password: "Passw0rd!",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return created
}

// --- tests ---

func TestRegisterIssuesOTPAndQueuesEmail(t *testing.T) {
	w := newWorld()
	created := register(t, w)

	if created.IsVerified {
		t.Fatal("fresh user should not be verified")
	}
	if len(w.notifier.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(w.notifier.sent))
	}
	if w.notifier.sent[0].to != "ada@example.com" {
		t.Fatalf("email went to %s", w.notifier.sent[0].to)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	w := newWorld()
	_, err := w.svc.Register(context.Background(), usersrv.RegisterInput{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "weak",
	})
	if !errx.IsKind(err, errx.KindValidation) {
		t.Fatalf("got %v, want Validation", err)
	}
	if len(w.repo.users) != 0 {
		t.Fatal("user was created despite weak password")
	}
}

func TestRegisterSurvivesOTPFailure(t *testing.T) {
	w := newWorld()
	w.otps.issueErr = errx.New("boom", errx.KindInternal)

	created, err := w.svc.Register(context.Background(), usersrv.RegisterInput{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "Passw0rd!",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created == nil {
		t.Fatal("expected created user")
	}
	if len(w.notifier.sent) != 0 {
		t.Fatal("no email should go out when issuing failed")
	}
}

func TestVerifyOTPMarksVerified(t *testing.T) {
	w := newWorld()
	register(t, w)

	verified, err := w.svc.VerifyOTP(context.Background(), user.ByUsername("ada"), "12345678")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.IsVerified {
		t.Fatal("user not marked verified")
	}
}

func TestVerifyOTPMismatch(t *testing.T) {
	w := newWorld()
	register(t, w)

	if _, err := w.svc.VerifyOTP(context.Background(), user.ByUsername("ada"), "00000000"); !errx.IsKind(err, errx.KindInvalid) {
		t.Fatalf("got %v, want Invalid", err)
	}

	// First attempt consumed the challenge.
	if _, err := w.svc.VerifyOTP(context.Background(), user.ByUsername("ada"), "12345678"); !errx.IsKind(err, errx.KindNotFound) {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestLoginRequiresVerification(t *testing.T) {
	w := newWorld()
	register(t, w)

	if _, err := w.svc.Login(context.Background(), user.ByUsername("ada"), "Passw0rd!"); !errx.IsKind(err, errx.KindUnauthorized) {
		t.Fatalf("got %v, want Unauthorized", err)
	}

	if _, err := w.svc.VerifyOTP(context.Background(), user.ByUsername("ada"), "12345678"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	pair, err := w.svc.Login(context.Background(), user.ByUsername("ada"), "Passw0rd!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("expected a token pair")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	w := newWorld()
	created := register(t, w)
	_ = w.repo.MarkVerified(context.Background(), created.ID)

	if _, err := w.svc.Login(context.Background(), user.ByUsername("ada"), "Wr0ng-pass!"); !errx.IsKind(err, errx.KindUnauthorized) {
		t.Fatalf("got %v, want Unauthorized", err)
	}
}

func TestChangePasswordRevokesEverywhere(t *testing.T) {
	w := newWorld()
	created := register(t, w)

	if err := w.svc.ChangePassword(context.Background(), created.ID, "Passw0rd!", "N3w-secret!A"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if len(w.sessions.revokedAll) != 1 || w.sessions.revokedAll[0] != created.ID {
		t.Fatal("password change must revoke every session")
	}
	if w.repo.hashes[created.ID] != "h:N3w-secret!A" {
		t.Fatal("hash not rotated")
	}
}

func TestResetPasswordOTP(t *testing.T) {
	w := newWorld()
	created := register(t, w)

	if err := w.svc.ResetPasswordOTP(context.Background(), user.ByEmail("ada@example.com"), "12345678", "N3w-secret!A"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if w.repo.hashes[created.ID] != "h:N3w-secret!A" {
		t.Fatal("hash not rotated")
	}
	if len(w.sessions.revokedAll) != 1 {
		t.Fatal("reset must revoke every session")
	}
}

func TestDuplicateRegistration(t *testing.T) {
	w := newWorld()
	register(t, w)

	_, err := w.svc.Register(context.Background(), usersrv.RegisterInput{
		Email:    "ada@example.com",
		Username: "other",
		Password: "Passw0rd!",
	})
	if !errx.IsKind(err, errx.KindConflict) {
		t.Fatalf("got %v, want Conflict", err)
	}
}

func TestUpdateProfileRejectsEmptyUpdate(t *testing.T) {
	w := newWorld()
	created := register(t, w)

	if _, err := w.svc.UpdateProfile(context.Background(), created.ID, user.Update{}); !errx.IsKind(err, errx.KindValidation) {
		t.Fatalf("got %v, want Validation", err)
	}
}
