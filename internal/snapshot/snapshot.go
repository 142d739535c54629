// Package snapshot implements the periodic durable-save scheduler (spec
// §4.7, C8), grounded on the original's app.models.Snapshot class: an
// interval-based "is it time yet" check, a blocking wait until that time,
// and a forced save for graceful shutdown.
package snapshot

import (
	"context"
	"log/slog"
	"time"

	"github.com/sevigo/countpkg/internal/store"
)

// Scheduler periodically asks the store to persist a durable snapshot
// (e.g. Redis BGSAVE) no more often than every Interval.
type Scheduler struct {
	store    *store.Store
	interval time.Duration
	logger   *slog.Logger

	lastSave time.Time
}

// New prepares a Scheduler that will not save more often than interval.
func New(st *store.Store, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{store: st, interval: interval, logger: logger, lastSave: time.Now()}
}

// Elapse is how long it has been since the last snapshot.
func (s *Scheduler) Elapse() time.Duration {
	return time.Since(s.lastSave)
}

// Remain is how long until the next snapshot is due, floored at zero.
func (s *Scheduler) Remain() time.Duration {
	remain := s.interval - s.Elapse()
	if remain < 0 {
		return 0
	}
	return remain
}

// Saveable reports whether enough time has elapsed to snapshot again.
func (s *Scheduler) Saveable() bool {
	return s.Elapse() >= s.interval
}

// Save snapshots now if force is set or the interval has elapsed, and
// otherwise does nothing.
func (s *Scheduler) Save(ctx context.Context, force bool) error {
	if !force && !s.Saveable() {
		return nil
	}
	if err := s.store.Snapshot(ctx); err != nil {
		return err
	}
	s.lastSave = time.Now()
	s.logger.Info("snapshot saved")
	return nil
}

// Run blocks, saving every interval, until ctx is canceled. On
// cancellation it performs one final forced save before returning, so a
// graceful shutdown never loses the tail of a crawl.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		timer := time.NewTimer(s.Remain())
		select {
		case <-ctx.Done():
			timer.Stop()
			if err := s.Save(context.Background(), true); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
				return err
			}
			return nil
		case <-timer.C:
			if err := s.Save(ctx, false); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		}
	}
}
