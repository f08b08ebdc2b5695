package user

import (
	"net/http"
	"time"
	"unicode"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
)

// ============================================================================
// Entities
// ============================================================================

// User is the identity record. Never hard-deleted; deactivation flips
// IsActive instead.
type User struct {
	ID         kernel.UserID `db:"id" json:"id"`
	Email      string        `db:"email" json:"email"`
	Username   string        `db:"username" json:"username"`
	FullName   string        `db:"full_name" json:"full_name"`
	Bio        string        `db:"bio" json:"bio,omitempty"`
	Age        *int          `db:"age" json:"age,omitempty"`
	Profession string        `db:"profession" json:"profession,omitempty"`
	IsActive   bool          `db:"is_active" json:"is_active"`
	IsVerified bool          `db:"is_verified" json:"is_verified"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// Credential holds the current password hash, one-to-one with its user.
// Rotated in place on password change; no hash history is kept.
type Credential struct {
	ID           string        `db:"id" json:"-"`
	UserID       kernel.UserID `db:"user_id" json:"-"`
	PasswordHash string        `db:"password_hash" json:"-"`
	UpdatedAt    time.Time     `db:"updated_at" json:"-"`
}

// Update carries the mutable profile fields. Nil means "leave unchanged".
type Update struct {
	FullName   *string `json:"full_name,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	Age        *int    `json:"age,omitempty"`
	Profession *string `json:"profession,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u Update) IsEmpty() bool {
	return u.FullName == nil && u.Bio == nil && u.Age == nil && u.Profession == nil
}

// ============================================================================
// Lookup
// ============================================================================

// LookupKind tags the Lookup variant.
type LookupKind uint8

const (
	LookupByID LookupKind = iota
	LookupByEmail
	LookupByUsername
)

// Lookup is a tagged variant selecting a user by exactly one key. Repositories
// dispatch on the tag instead of sniffing which field happens to be set.
type Lookup struct {
	kind  LookupKind
	value string
}

// ByID selects a user by id.
func ByID(id kernel.UserID) Lookup { return Lookup{kind: LookupByID, value: id.String()} }

// ByEmail selects a user by email.
func ByEmail(email string) Lookup { return Lookup{kind: LookupByEmail, value: email} }

// ByUsername selects a user by username.
func ByUsername(username string) Lookup { return Lookup{kind: LookupByUsername, value: username} }

// Kind returns the variant tag.
func (l Lookup) Kind() LookupKind { return l.kind }

// Value returns the lookup key.
func (l Lookup) Value() string { return l.value }

// LookupFrom builds a Lookup from an identifier request body: id wins over
// email, email over username.
func LookupFrom(id, email, username string) (Lookup, error) {
	switch {
	case id != "":
		return ByID(kernel.UserID(id)), nil
	case email != "":
		return ByEmail(email), nil
	case username != "":
		return ByUsername(username), nil
	default:
		return Lookup{}, ErrRegistry.NewWithDetail(CodeInvalidLookup, "one of id, email or username is required")
	}
}

// ============================================================================
// Validation
// ============================================================================

// ValidatePassword enforces the password policy: 8-15 characters with at
// least one digit, one letter, one uppercase letter and one symbol.
func ValidatePassword(password string) error {
	if len(password) < 8 || len(password) > 15 {
		return ErrRegistry.NewWithDetail(CodeWeakPassword, "Password must be between 8 and 15 characters")
	}
	var hasDigit, hasLetter, hasUpper, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			hasLetter = true
			if unicode.IsUpper(r) {
				hasUpper = true
			}
		default:
			hasSymbol = true
		}
	}
	switch {
	case !hasDigit:
		return ErrRegistry.NewWithDetail(CodeWeakPassword, "Password must contain at least 1 number")
	case !hasLetter:
		return ErrRegistry.NewWithDetail(CodeWeakPassword, "Password must contain at least 1 letter")
	case !hasUpper:
		return ErrRegistry.NewWithDetail(CodeWeakPassword, "Password must contain at least 1 uppercase letter")
	case !hasSymbol:
		return ErrRegistry.NewWithDetail(CodeWeakPassword, "Password must contain at least 1 symbol")
	}
	return nil
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeUserNotFound   = ErrRegistry.Register("NOT_FOUND", errx.KindNotFound, http.StatusNotFound, "User not found")
	CodeDuplicateUser  = ErrRegistry.Register("DUPLICATE", errx.KindConflict, http.StatusConflict, "Email or username already taken")
	CodeNotVerified    = ErrRegistry.Register("NOT_VERIFIED", errx.KindUnauthorized, http.StatusUnauthorized, "Email is not verified")
	CodeBadCredentials = ErrRegistry.Register("BAD_CREDENTIALS", errx.KindUnauthorized, http.StatusUnauthorized, "Invalid username or password")
	CodeWeakPassword   = ErrRegistry.Register("WEAK_PASSWORD", errx.KindValidation, http.StatusBadRequest, "Password does not meet policy")
	CodeInvalidLookup  = ErrRegistry.Register("INVALID_LOOKUP", errx.KindValidation, http.StatusBadRequest, "Invalid user lookup")
	CodeEmptyUpdate    = ErrRegistry.Register("EMPTY_UPDATE", errx.KindValidation, http.StatusBadRequest, "Empty content")
)

func ErrUserNotFound() *errx.Error   { return ErrRegistry.New(CodeUserNotFound) }
func ErrDuplicateUser() *errx.Error  { return ErrRegistry.New(CodeDuplicateUser) }
func ErrNotVerified() *errx.Error    { return ErrRegistry.New(CodeNotVerified) }
func ErrBadCredentials() *errx.Error { return ErrRegistry.New(CodeBadCredentials) }
