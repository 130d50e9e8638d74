package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplite/authcore/internal/models"
	"github.com/shoplite/authcore/internal/storage"
)

func testRecord(id, userID string, expiresAt time.Time) models.SessionRecord {
	return models.SessionRecord{
		ID:         id,
		UserID:     userID,
		SecretHash: "hash-" + id,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestConditionalRevokeSingleWinner(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	require.NoError(t, repo.InsertSession(ctx, testRecord("r1", "u1", time.Now().Add(time.Hour))))

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)

	wins := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			flipped, err := repo.ConditionalRevoke(ctx, "r1")
			if err != nil {
				t.Errorf("conditional revoke: %v", err)
				return
			}
			wins <- flipped
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for w := range wins {
		if w {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	record, err := repo.GetSessionByID(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, record.Revoked)
}

func TestConditionalRevokeMissingRecord(t *testing.T) {
	repo := NewSessionRepository()

	flipped, err := repo.ConditionalRevoke(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestRevokeAllForUser(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	require.NoError(t, repo.InsertSession(ctx, testRecord("r1", "u1", expires)))
	require.NoError(t, repo.InsertSession(ctx, testRecord("r2", "u1", expires)))
	require.NoError(t, repo.InsertSession(ctx, testRecord("r3", "u2", expires)))

	require.NoError(t, repo.RevokeAllForUser(ctx, "u1"))
	// Idempotent.
	require.NoError(t, repo.RevokeAllForUser(ctx, "u1"))

	assert.Equal(t, 0, repo.ActiveCountForUser("u1"))
	assert.Equal(t, 1, repo.ActiveCountForUser("u2"))
}

func TestPurgeExpiredBefore(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.InsertSession(ctx, testRecord("old", "u1", now.Add(-48*time.Hour))))
	require.NoError(t, repo.InsertSession(ctx, testRecord("live", "u1", now.Add(time.Hour))))

	purged, err := repo.PurgeExpiredBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = repo.GetSessionByID(ctx, "old")
	require.ErrorIs(t, err, storage.ErrSessionNotFound)
	_, err = repo.GetSessionByID(ctx, "live")
	require.NoError(t, err)
}
