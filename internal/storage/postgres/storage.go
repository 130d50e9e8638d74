package postgres

import (
	"database/sql"
)

// Storage bundles the Postgres-backed repositories behind storage.Storage.
// Both repositories run over the same *sql.DB; cross-repository transactions
// are deliberately absent, the only atomicity the rotation engine relies on
// is the guarded UPDATE inside ConditionalRevoke.
type Storage struct {
	*UserRepository
	*SessionRepository
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{
		UserRepository:    NewUserRepository(db),
		SessionRepository: NewSessionRepository(db),
	}
}
