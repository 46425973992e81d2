package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"seotracker/internal/app/user"
	"seotracker/internal/pkg/clockx"
)

// statusWrite records one SetStatus call against the fake store.
type statusWrite struct {
	userID       string
	status       user.Status
	lastActivity time.Time
	lastOnline   time.Time
}

type fakeStore struct {
	mu     sync.Mutex
	writes []statusWrite
}

func (f *fakeStore) SetStatus(ctx context.Context, userID string, status user.Status, lastActivity, lastOnline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, statusWrite{userID, status, lastActivity, lastOnline})
	return nil
}

func (f *fakeStore) last(t *testing.T) statusWrite {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		t.Fatal("expected at least one status write")
	}
	return f.writes[len(f.writes)-1]
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func newTestTracker() (*Tracker, *fakeStore, *clockx.Fake) {
	store := &fakeStore{}
	clock := clockx.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	tracker := NewTracker(store, clock, DefaultConfig(), "alice")
	return tracker, store, clock
}

func TestStartWritesOnline(t *testing.T) {
	tracker, store, clock := newTestTracker()
	ctx := context.Background()

	tracker.Start(ctx)

	write := store.last(t)
	if write.status != user.StatusOnline {
		t.Errorf("expected online, got %s", write.status)
	}
	if !write.lastActivity.Equal(clock.Now()) {
		t.Errorf("lastActivity not stamped: %v", write.lastActivity)
	}
	if !write.lastOnline.IsZero() {
		t.Error("lastOnline must stay untouched on start")
	}
	if tracker.Status() != user.StatusOnline {
		t.Errorf("local status wrong: %s", tracker.Status())
	}
}

func TestIdleDemotesToAway(t *testing.T) {
	tracker, store, clock := newTestTracker()
	ctx := context.Background()

	tracker.Start(ctx)
	clock.Advance(5 * time.Minute)
	tracker.Tick(ctx)

	write := store.last(t)
	if write.status != user.StatusAway {
		t.Fatalf("expected away after idle threshold, got %s", write.status)
	}
	if tracker.Status() != user.StatusAway {
		t.Errorf("local status wrong: %s", tracker.Status())
	}
}

func TestActivityPromotesAwayToOnlineImmediately(t *testing.T) {
	tracker, store, clock := newTestTracker()
	ctx := context.Background()

	tracker.Start(ctx)
	clock.Advance(5 * time.Minute)
	tracker.Tick(ctx)

	tracker.Activity(ctx)

	write := store.last(t)
	if write.status != user.StatusOnline {
		t.Errorf("expected immediate online write on activity, got %s", write.status)
	}
}

func TestActivityWhileOnlineWritesNothing(t *testing.T) {
	tracker, store, clock := newTestTracker()
	ctx := context.Background()

	tracker.Start(ctx)
	before := store.count()

	clock.Advance(10 * time.Second)
	tracker.Activity(ctx)

	if store.count() != before {
		t.Error("activity while online must only touch local state")
	}
}

func TestHeartbeatRefreshesOnlineWrite(t *testing.T) {
	tracker, store, clock := newTestTracker()
	ctx := context.Background()

	tracker.Start(ctx)

	// Activity keeps the session online; the heartbeat re-writes lastActivity.
	clock.Advance(30 * time.Second)
	tracker.Activity(ctx)
	before := store.count()

	clock.Advance(30 * time.Second)
	tracker.Tick(ctx)

	if store.count() != before+1 {
		t.Fatal("expected one heartbeat write after the heartbeat interval")
	}
	if write := store.last(t); write.status != user.StatusOnline {
		t.Errorf("heartbeat must re-write online, got %s", write.status)
	}
}

func TestTickBeforeThresholdsWritesNothing(t *testing.T) {
	tracker, store, clock := newTestTracker()
	ctx := context.Background()

	tracker.Start(ctx)
	before := store.count()

	clock.Advance(30 * time.Second)
	tracker.Tick(ctx)

	if store.count() != before {
		t.Error("tick inside both windows owes no write")
	}
}

func TestStopWritesOfflineWithLastOnline(t *testing.T) {
	tracker, store, clock := newTestTracker()
	ctx := context.Background()

	tracker.Start(ctx)
	clock.Advance(time.Minute)
	tracker.Stop(ctx)

	write := store.last(t)
	if write.status != user.StatusOffline {
		t.Fatalf("expected offline, got %s", write.status)
	}
	if !write.lastOnline.Equal(clock.Now()) {
		t.Errorf("lastOnline not stamped: %v", write.lastOnline)
	}
	if !write.lastActivity.IsZero() {
		t.Error("lastActivity must stay untouched on stop")
	}
}

func TestStaleOnlineDisplaysAsOffline(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	u := user.User{
		ID:           "bob",
		Status:       user.StatusOnline,
		LastActivity: now.Add(-11 * time.Minute),
	}

	if got := u.Displayed(now, 10*time.Minute); got != user.StatusOffline {
		t.Errorf("stale online must display as offline, got %s", got)
	}

	u.LastActivity = now.Add(-time.Minute)
	if got := u.Displayed(now, 10*time.Minute); got != user.StatusOnline {
		t.Errorf("fresh online must display as online, got %s", got)
	}

	u.Status = user.StatusAway
	u.LastActivity = now.Add(-time.Hour)
	if got := u.Displayed(now, 10*time.Minute); got != user.StatusAway {
		t.Errorf("away is never downgraded by staleness, got %s", got)
	}
}
