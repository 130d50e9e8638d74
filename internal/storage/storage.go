package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shoplite/authcore/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrSessionNotFound = errors.New("session record not found")
)

type Storage interface {
	UserRepository
	SessionRepository
}

type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// SessionRepository persists refresh-session records. ConditionalRevoke is the
// primitive the rotation race hinges on: it must flip revoked false->true as a
// single guarded write and report whether this call was the one that flipped
// it. Implementations must not read the flag and write it back separately.
type SessionRepository interface {
	InsertSession(ctx context.Context, record models.SessionRecord) error
	GetSessionByID(ctx context.Context, id string) (*models.SessionRecord, error)
	ConditionalRevoke(ctx context.Context, id string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) error
	PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DBTX lets repositories run over either *sql.DB or *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
