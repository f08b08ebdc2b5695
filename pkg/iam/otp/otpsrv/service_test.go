package otpsrv_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/iam/otp"
	"github.com/Abraxas-365/perimeter/pkg/iam/otp/otpsrv"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
)

// --- fakes ---

type fakeOTPRepo struct {
	challenges map[kernel.ChallengeID]*otp.Challenge
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{challenges: make(map[kernel.ChallengeID]*otp.Challenge)}
}

func (r *fakeOTPRepo) Create(ctx context.Context, c otp.Challenge) error {
	copied := c
	r.challenges[c.ID] = &copied
	return nil
}

func (r *fakeOTPRepo) FindOutstanding(ctx context.Context, userID kernel.UserID) (*otp.Challenge, error) {
	for _, c := range r.challenges {
		if c.UserID == userID && c.Outstanding(time.Now()) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, otp.ErrNotFound()
}

func (r *fakeOTPRepo) CountOutstanding(ctx context.Context, userID kernel.UserID) (int, error) {
	count := 0
	for _, c := range r.challenges {
		if c.UserID == userID && c.Outstanding(time.Now()) {
			count++
		}
	}
	return count, nil
}

func (r *fakeOTPRepo) MarkUsed(ctx context.Context, id kernel.ChallengeID) error {
	c, ok := r.challenges[id]
	if !ok || c.Used {
		return otp.ErrNotFound()
	}
	c.Used = true
	return nil
}

func (r *fakeOTPRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

// plainHasher stores codes as-is so tests can compare without bcrypt cost.
type plainHasher struct{}

func (plainHasher) Hash(code string) (string, error) { return "h:" + code, nil }
func (plainHasher) Verify(code, hash string) bool    { return "h:"+code == hash }

// --- tests ---

func TestIssueAndVerify(t *testing.T) {
	svc := otpsrv.NewService(newFakeOTPRepo(), plainHasher{}, 8, time.Minute)
	userID := kernel.NewUserID()

	code, err := svc.Issue(context.Background(), userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("code length %d, want 8", len(code))
	}

	match, err := svc.Verify(context.Background(), userID, code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !match {
		t.Fatal("correct code did not match")
	}
}

func TestIssueConflictsWhileOutstanding(t *testing.T) {
	svc := otpsrv.NewService(newFakeOTPRepo(), plainHasher{}, 8, time.Minute)
	userID := kernel.NewUserID()

	if _, err := svc.Issue(context.Background(), userID); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if _, err := svc.Issue(context.Background(), userID); !errx.IsKind(err, errx.KindConflict) {
		t.Fatalf("second issue: got %v, want Conflict", err)
	}
}

func TestIssueAllowedAfterConsumption(t *testing.T) {
	svc := otpsrv.NewService(newFakeOTPRepo(), plainHasher{}, 8, time.Minute)
	userID := kernel.NewUserID()

	code, _ := svc.Issue(context.Background(), userID)
	if _, err := svc.Verify(context.Background(), userID, code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if _, err := svc.Issue(context.Background(), userID); err != nil {
		t.Fatalf("issue after consumption: %v", err)
	}
}

func TestMismatchConsumesChallenge(t *testing.T) {
	svc := otpsrv.NewService(newFakeOTPRepo(), plainHasher{}, 8, time.Minute)
	userID := kernel.NewUserID()

	if _, err := svc.Issue(context.Background(), userID); err != nil {
		t.Fatalf("issue: %v", err)
	}

	match, err := svc.Verify(context.Background(), userID, "00000000")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if match {
		t.Fatal("wrong code matched")
	}

	// The challenge died with the first attempt, right code or not.
	if _, err := svc.Verify(context.Background(), userID, "00000000"); !errx.IsKind(err, errx.KindNotFound) {
		t.Fatalf("second verify: got %v, want NotFound", err)
	}
}

func TestVerifyWithoutChallenge(t *testing.T) {
	svc := otpsrv.NewService(newFakeOTPRepo(), plainHasher{}, 8, time.Minute)

	if _, err := svc.Verify(context.Background(), kernel.NewUserID(), "12345678"); !errx.IsKind(err, errx.KindNotFound) {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := otp.GenerateCode(8)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("length %d, want 8", len(code))
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-decimal rune %q in %q", r, code)
			}
		}
	}
}
