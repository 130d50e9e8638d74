package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shoplite/authcore/internal/storage"
	"github.com/shoplite/authcore/internal/util"
)

// Janitor purges session records whose expiry is older than the retention
// window. Revoked but unexpired records stay in place for replay forensics;
// only age removes a record from the store.
type Janitor struct {
	sessions  storage.SessionRepository
	retention time.Duration
	interval  time.Duration
	log       *zap.SugaredLogger
}

func NewJanitor(sessions storage.SessionRepository, cfg *util.RetentionConfig, log *zap.SugaredLogger) *Janitor {
	return &Janitor{
		sessions:  sessions,
		retention: cfg.Retention,
		interval:  cfg.PurgeInterval,
		log:       log,
	}
}

// Run blocks until ctx is cancelled, purging once per interval.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.PurgeOnce(ctx)
		}
	}
}

func (j *Janitor) PurgeOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.retention)
	purged, err := j.sessions.PurgeExpiredBefore(ctx, cutoff)
	if err != nil {
		j.log.Errorw("session purge failed", "error", err)
		return
	}
	if purged > 0 {
		j.log.Infow("purged expired session records", "count", purged, "cutoff", cutoff)
	}
}
