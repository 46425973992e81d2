/*
Package store implements the document-store collaborator over PostgreSQL.

This file covers user documents: account upsert on session issue, presence
merge writes, the staleness downgrade used by the sweeper, and the presence
watch subscription.
*/
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"seotracker/internal/app/chat"
	"seotracker/internal/app/user"
	"seotracker/internal/pkg/errs"
)

// UpsertUser creates or refreshes the account row for a signed-in user.
// Presence fields are untouched on refresh.
func (s *Store) UpsertUser(ctx context.Context, u user.User) error {
	_, err := s.pool.Exec(ctx, `
		insert into users (id, display_name, email, avatar)
		values ($1, $2, $3, $4)
		on conflict (id) do update set
			display_name = excluded.display_name,
			email = case when excluded.email = '' then users.email else excluded.email end,
			avatar = case when excluded.avatar = '' then users.avatar else excluded.avatar end`,
		u.ID, u.DisplayName, u.Email, u.Avatar,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetUser loads one user document.
func (s *Store) GetUser(ctx context.Context, userID string) (user.User, error) {
	row := s.pool.QueryRow(ctx, `
		select id, display_name, email, avatar, status, last_activity, last_online
		from users where id = $1`,
		userID,
	)

	var u user.User
	err := row.Scan(&u.ID, &u.DisplayName, &u.Email, &u.Avatar, &u.Status, &u.LastActivity, &u.LastOnline)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, errs.NewError(errs.ErrUserNotFound)
	}
	if err != nil {
		return user.User{}, fmt.Errorf("failed to load user: %w", err)
	}

	return u, nil
}

// SetAvatar replaces the user's avatar key and notifies watchers so peer
// views refresh.
func (s *Store) SetAvatar(ctx context.Context, userID, avatarKey string) error {
	tag, err := s.pool.Exec(ctx,
		"update users set avatar = $2 where id = $1", userID, avatarKey)
	if err != nil {
		return fmt.Errorf("failed to set avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewError(errs.ErrUserNotFound)
	}

	s.notifyPresence(ctx, userID)
	return nil
}

// SetStatus merge-writes the user's presence fields. Zero-value timestamps
// leave the stored column untouched, so concurrent writers to disjoint fields
// do not clobber each other.
func (s *Store) SetStatus(ctx context.Context, userID string, status user.Status, lastActivity, lastOnline time.Time) error {
	_, err := s.pool.Exec(ctx, `
		update users set
			status = $2,
			last_activity = coalesce($3::timestamptz, last_activity),
			last_online = coalesce($4::timestamptz, last_online)
		where id = $1`,
		userID, status, nullableTime(lastActivity), nullableTime(lastOnline),
	)
	if err != nil {
		return fmt.Errorf("failed to write presence: %w", err)
	}

	s.notifyPresence(ctx, userID)
	return nil
}

// DowngradeStale sets status=offline on users still marked online whose
// lastActivity predates the cutoff. Idempotent: racing sweepers simply find
// zero remaining rows.
func (s *Store) DowngradeStale(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		update users
		set status = 'offline', last_online = last_activity
		where status = 'online' and last_activity < $1`,
		olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to downgrade stale users: %w", err)
	}

	return tag.RowsAffected(), nil
}

// WatchPresence registers a watcher for all presence changes. Callers filter
// for the user ids they care about.
func (s *Store) WatchPresence(fn func(user.User)) chat.Unsubscribe {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.presSubs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.presSubs, id)
		s.mu.Unlock()
	}
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
