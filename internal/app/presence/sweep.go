/*
Package presence maintains a user's online/away/offline status.

This file implements the staleness sweep: a cron-scheduled pass that
downgrades users still marked online whose lastActivity is older than the
staleness threshold. It self-heals after crashed or killed clients that never
sent their offline write. The downgrade is idempotent and safe for multiple
independent sweepers to race on.
*/
package presence

import (
	"context"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog"

	"seotracker/internal/pkg/clockx"
	"seotracker/internal/pkg/logx"
)

// SweepStore is the sweep's write surface.
type SweepStore interface {
	// DowngradeStale sets status=offline on users whose status is online and
	// whose lastActivity is older than the cutoff. Returns the affected count.
	DowngradeStale(ctx context.Context, olderThan time.Time) (int64, error)
}

// Sweeper periodically downgrades stale-online users.
type Sweeper struct {
	store     SweepStore
	clock     clockx.Clock
	threshold time.Duration
	cron      string
	logger    zerolog.Logger
}

// NewSweeper constructs a Sweeper. threshold is the staleness cutoff (e.g.
// 10 minutes); cron is a standard cron expression for the schedule.
func NewSweeper(store SweepStore, clock clockx.Clock, threshold time.Duration, cron string) *Sweeper {
	return &Sweeper{
		store:     store,
		clock:     clock,
		threshold: threshold,
		cron:      cron,
		logger:    logx.Logger().With().Str("component", "PresenceSweeper").Logger(),
	}
}

// Run blocks, sleeping until each cron tick and sweeping, until ctx is
// cancelled. An invalid cron expression is reported and the sweeper exits.
func (s *Sweeper) Run(ctx context.Context) {
	if !gronx.IsValid(s.cron) {
		s.logger.Error().Str("cron", s.cron).Msg("Invalid sweep cron expression. Sweeper not started.")
		return
	}

	s.logger.Info().
		Str("cron", s.cron).
		Dur("threshold", s.threshold).
		Msg("Presence sweeper started.")

	for {
		next, err := gronx.NextTickAfter(s.cron, time.Now().UTC(), false)
		if err != nil {
			s.logger.Error().Err(err).Str("cron", s.cron).Msg("Failed to compute next sweep tick.")
			select {
			case <-time.After(30 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-time.After(time.Until(next)):
			s.RunOnce(ctx)

		case <-ctx.Done():
			s.logger.Info().Msg("Presence sweeper stopping.")
			return
		}
	}
}

// RunOnce performs a single sweep pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.threshold)

	count, err := s.store.DowngradeStale(ctx, cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Staleness sweep failed.")
		return
	}

	if count > 0 {
		s.logger.Info().Int64("downgraded", count).Msg("Stale online users downgraded.")
	}
}
