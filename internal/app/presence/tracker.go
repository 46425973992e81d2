/*
Package presence maintains a user's online/away/offline status against the
backing store.

The Tracker owns the self-status state machine: activity signals keep the user
online, an inactivity threshold demotes to away, a heartbeat re-write keeps the
remote lastActivity fresh, and teardown writes offline best-effort. A separate
Sweeper (sweep.go) downgrades stale "online" rows left behind by crashed
clients.
*/
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"seotracker/internal/app/user"
	"seotracker/internal/pkg/clockx"
	"seotracker/internal/pkg/logx"
)

// Store is the presence write surface. SetStatus is a merge-write: zero-value
// timestamps leave the stored field untouched.
type Store interface {
	SetStatus(ctx context.Context, userID string, status user.Status, lastActivity, lastOnline time.Time) error
}

// Config carries the tracker's timing knobs.
type Config struct {
	// AwayAfter is the idle duration after which online demotes to away.
	AwayAfter time.Duration

	// Heartbeat is both the tick interval and the maximum age of the last
	// written online status before it is re-written.
	Heartbeat time.Duration
}

// DefaultConfig mirrors the observed product constants.
func DefaultConfig() Config {
	return Config{
		AwayAfter: 5 * time.Minute,
		Heartbeat: 60 * time.Second,
	}
}

// Tracker maintains self-presence for one session. All writes are
// fire-and-forget: a failed status write is neither retried nor surfaced.
type Tracker struct {
	userID string
	store  Store
	clock  clockx.Clock
	cfg    Config

	mu           sync.Mutex
	status       user.Status
	lastActivity time.Time
	lastWrite    time.Time

	logger zerolog.Logger
}

// NewTracker constructs a Tracker; the session starts offline until Start.
func NewTracker(store Store, clock clockx.Clock, cfg Config, userID string) *Tracker {
	trackerLogger := logx.Logger().With().
		Str("component", "PresenceTracker").
		Str("user_id", userID).
		Logger()

	return &Tracker{
		userID: userID,
		store:  store,
		clock:  clock,
		cfg:    cfg,
		status: user.StatusOffline,
		logger: trackerLogger,
	}
}

// Start marks the session online with current timestamps.
func (t *Tracker) Start(ctx context.Context) {
	now := t.clock.Now()

	t.mu.Lock()
	t.status = user.StatusOnline
	t.lastActivity = now
	t.lastWrite = now
	t.mu.Unlock()

	t.write(ctx, user.StatusOnline, now, time.Time{})
}

// Activity records a user-activity signal (pointer movement, key press,
// touch). A session that had drifted to away returns to online immediately.
func (t *Tracker) Activity(ctx context.Context) {
	now := t.clock.Now()

	t.mu.Lock()
	t.lastActivity = now

	if t.status != user.StatusAway {
		t.mu.Unlock()
		return
	}

	t.status = user.StatusOnline
	t.lastWrite = now
	t.mu.Unlock()

	t.write(ctx, user.StatusOnline, now, time.Time{})
}

// Tick evaluates the inactivity and heartbeat rules at the current clock
// time. Callers drive it on roughly the heartbeat interval.
func (t *Tracker) Tick(ctx context.Context) {
	now := t.clock.Now()

	t.mu.Lock()

	if t.status != user.StatusOnline {
		t.mu.Unlock()
		return
	}

	if now.Sub(t.lastActivity) >= t.cfg.AwayAfter {
		t.status = user.StatusAway
		t.lastWrite = now
		activity := t.lastActivity
		t.mu.Unlock()

		t.write(ctx, user.StatusAway, activity, time.Time{})
		return
	}

	// Keep the remote lastActivity fresh so observers do not mistake the
	// session for a stale-online crash.
	if now.Sub(t.lastWrite) >= t.cfg.Heartbeat {
		t.lastWrite = now
		t.mu.Unlock()

		t.write(ctx, user.StatusOnline, now, time.Time{})
		return
	}

	t.mu.Unlock()
}

// Stop marks the session offline with lastOnline=now. Best-effort: the write
// races page unload and may never land; the staleness sweep covers that case.
func (t *Tracker) Stop(ctx context.Context) {
	now := t.clock.Now()

	t.mu.Lock()
	t.status = user.StatusOffline
	t.mu.Unlock()

	t.write(ctx, user.StatusOffline, time.Time{}, now)
}

// Status returns the tracker's current local status.
func (t *Tracker) Status() user.Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.status
}

// Run drives Tick on the heartbeat interval until ctx is cancelled, then
// writes offline. Sessions that cannot supply their own ticker use this.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.Heartbeat)
	defer ticker.Stop()

	t.Start(ctx)

	for {
		select {
		case <-ticker.C:
			t.Tick(ctx)

		case <-ctx.Done():
			// Detached context: the session context is already gone.
			stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			t.Stop(stopCtx)
			cancel()
			return
		}
	}
}

func (t *Tracker) write(ctx context.Context, status user.Status, lastActivity, lastOnline time.Time) {
	if err := t.store.SetStatus(ctx, t.userID, status, lastActivity, lastOnline); err != nil {
		t.logger.Debug().Err(err).Str("status", string(status)).Msg("Presence write dropped.")
	}
}
