/*
Package store implements the document-store collaborator over PostgreSQL.

This file covers message archival: a cron-scheduled pass moves active
messages older than the retention window into the archived tier. Archived
messages leave the live window but stay fetchable through FetchArchived.
*/
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog"

	"seotracker/internal/pkg/clockx"
	"seotracker/internal/pkg/logx"
)

// ArchiveOlderThan moves active messages created before the cutoff into the
// archived tier and re-delivers snapshots for every conversation touched.
func (s *Store) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	rows, err := s.pool.Query(ctx, `
		update messages
		set state = 'archived'
		where state = 'active' and created_at < $1
		returning conversation_id`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to archive messages: %w", err)
	}
	defer rows.Close()

	var count int64
	touched := make(map[string]struct{})
	for rows.Next() {
		var conversationID string
		if err := rows.Scan(&conversationID); err != nil {
			return count, fmt.Errorf("failed to scan archived row: %w", err)
		}
		count++
		touched[conversationID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("failed to read archived rows: %w", err)
	}

	for conversationID := range touched {
		s.notifyConversation(ctx, conversationID)
	}

	return count, nil
}

// Archiver runs the retention schedule against a Store.
type Archiver struct {
	store     *Store
	clock     clockx.Clock
	retention time.Duration
	cron      string
	logger    zerolog.Logger
}

// NewArchiver constructs an Archiver. retention is how long messages stay in
// the active tier; cron is a standard cron expression for the schedule.
func NewArchiver(store *Store, clock clockx.Clock, retention time.Duration, cron string) *Archiver {
	return &Archiver{
		store:     store,
		clock:     clock,
		retention: retention,
		cron:      cron,
		logger:    logx.Logger().With().Str("component", "Archiver").Logger(),
	}
}

// Run blocks, sleeping until each cron tick and archiving, until ctx is
// cancelled. An invalid cron expression is reported and the archiver exits.
func (a *Archiver) Run(ctx context.Context) {
	if !gronx.IsValid(a.cron) {
		a.logger.Error().Str("cron", a.cron).Msg("Invalid archive cron expression. Archiver not started.")
		return
	}

	a.logger.Info().
		Str("cron", a.cron).
		Dur("retention", a.retention).
		Msg("Message archiver started.")

	for {
		next, err := gronx.NextTickAfter(a.cron, time.Now().UTC(), false)
		if err != nil {
			a.logger.Error().Err(err).Str("cron", a.cron).Msg("Failed to compute next archive tick.")
			select {
			case <-time.After(30 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-time.After(time.Until(next)):
			a.RunOnce(ctx)

		case <-ctx.Done():
			a.logger.Info().Msg("Message archiver stopping.")
			return
		}
	}
}

// RunOnce performs a single archival pass.
func (a *Archiver) RunOnce(ctx context.Context) {
	cutoff := a.clock.Now().Add(-a.retention)

	count, err := a.store.ArchiveOlderThan(ctx, cutoff)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Archival pass failed.")
		return
	}

	if count > 0 {
		a.logger.Info().Int64("archived", count).Msg("Messages moved to archive tier.")
	}
}
