package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionRecord is one link in a refresh-secret lineage. The record id is
// embedded in the signed refresh secret, so a presented secret always names
// exactly one record. Records are never deleted on revocation; they are kept
// for replay forensics until the retention janitor purges them.
type SessionRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SecretHash string    `json:"-"`
	Device     string    `json:"device,omitempty"`
	Revoked    bool      `json:"revoked"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *SessionRecord) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Echo context keys set by the access-token middleware.
const (
	CtxUserIDKey      = "userID"
	CtxAccessTokenKey = "accessToken"
)

// RevocationCause labels why a record left the active state. All causes lead
// to the same terminal state; the label exists for logging only.
type RevocationCause string

const (
	CauseRotatedAway   RevocationCause = "rotated_away"
	CauseLoggedOut     RevocationCause = "logged_out"
	CauseReuseDetected RevocationCause = "reuse_detected"
)
