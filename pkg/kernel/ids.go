package kernel

import "github.com/google/uuid"

// UserID identifies a user.
type UserID string

// NewUserID generates a fresh user id.
func NewUserID() UserID { return UserID(uuid.NewString()) }

func (u UserID) String() string { return string(u) }
func (u UserID) IsEmpty() bool  { return string(u) == "" }

// ParseUserID validates that id is a UUID.
func ParseUserID(id string) (UserID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", err
	}
	return UserID(parsed.String()), nil
}

// SessionID identifies one refresh session. Every access token carries the
// id of the session it was minted against.
type SessionID string

// NewSessionID generates a fresh session id.
func NewSessionID() SessionID { return SessionID(uuid.NewString()) }

func (s SessionID) String() string { return string(s) }
func (s SessionID) IsEmpty() bool  { return string(s) == "" }

// ChallengeID identifies an OTP challenge.
type ChallengeID string

// NewChallengeID generates a fresh challenge id.
func NewChallengeID() ChallengeID { return ChallengeID(uuid.NewString()) }

func (c ChallengeID) String() string { return string(c) }
