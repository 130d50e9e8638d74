package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shoplite/authcore/internal/models"
	"github.com/shoplite/authcore/internal/storage"
)

// SessionRepository is a map-backed storage.SessionRepository used by tests
// and local development. The single mutex gives it the same observable
// contract as the Postgres implementation: ConditionalRevoke admits exactly
// one winner per record.
type SessionRepository struct {
	mu      sync.Mutex
	records map[string]models.SessionRecord
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		records: make(map[string]models.SessionRecord),
	}
}

func (m *SessionRepository) InsertSession(_ context.Context, record models.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[record.ID] = record
	return nil
}

func (m *SessionRepository) GetSessionByID(_ context.Context, id string) (*models.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return &record, nil
}

func (m *SessionRepository) ConditionalRevoke(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok || record.Revoked {
		return false, nil
	}
	record.Revoked = true
	m.records[id] = record
	return true, nil
}

func (m *SessionRepository) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, record := range m.records {
		if record.UserID == userID {
			record.Revoked = true
			m.records[id] = record
		}
	}
	return nil
}

// ActiveCountForUser reports how many unrevoked records a user holds. Tests
// use it to check session-family teardown.
func (m *SessionRepository) ActiveCountForUser(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, record := range m.records {
		if record.UserID == userID && !record.Revoked {
			count++
		}
	}
	return count
}

func (m *SessionRepository) PurgeExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for id, record := range m.records {
		if record.ExpiresAt.Before(cutoff) {
			delete(m.records, id)
			purged++
		}
	}
	return purged, nil
}
