package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shoplite/authcore/internal/models"
	"github.com/shoplite/authcore/internal/storage"
)

type SessionRepository struct {
	db storage.DBTX
}

func NewSessionRepository(db storage.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) InsertSession(ctx context.Context, record models.SessionRecord) error {
	query := `INSERT INTO session_records (id, user_id, secret_hash, device, revoked, expires_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.UserID,
		record.SecretHash,
		record.Device,
		record.Revoked,
		record.ExpiresAt,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session record: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSessionByID(ctx context.Context, id string) (*models.SessionRecord, error) {
	var record models.SessionRecord
	query := `SELECT id, user_id, secret_hash, device, revoked, expires_at, created_at
	          FROM session_records WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.UserID,
		&record.SecretHash,
		&record.Device,
		&record.Revoked,
		&record.ExpiresAt,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session record: %w", err)
	}
	return &record, nil
}

// ConditionalRevoke flips revoked false->true for one record in a single
// guarded UPDATE. When two rotations race on the same record the database
// serializes the row write, so exactly one caller sees a matched row.
func (r *SessionRepository) ConditionalRevoke(ctx context.Context, id string) (bool, error) {
	query := `UPDATE session_records SET revoked = TRUE WHERE id = $1 AND revoked = FALSE`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query := `UPDATE session_records SET revoked = TRUE WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}

func (r *SessionRepository) PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM session_records WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge session records: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return purged, nil
}
