package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"seotracker/internal/pkg/clockx"
)

func newTestRoster(ms *memStore, notify func(View)) *Roster {
	clock := clockx.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewRoster("alice", ms, ms, clock, DefaultTypingConfig(), notify)
}

func seededConversation(unreadAlice int) Conversation {
	return Conversation{
		ID:           "conv-alice:bob",
		Participants: [2]string{"alice", "bob"},
		Unread:       map[string]int{"alice": unreadAlice},
		Typing:       map[string]bool{},
		Info: map[string]Participant{
			"bob": {ID: "bob", DisplayName: "Bob"},
		},
	}
}

// --- Direct tests against the loop's apply functions ---

func TestInboundUnreadAutoOpensCollapsedHead(t *testing.T) {
	ms := newMemStore()
	r := newTestRoster(ms, nil)
	ctx := context.Background()

	r.applyConversations(ctx, []Conversation{seededConversation(3)})

	head, ok := r.heads["conv-alice:bob"]
	if !ok {
		t.Fatal("expected a head auto-opened for inbound unread")
	}
	if head.Expanded {
		t.Error("auto-opened head must start collapsed")
	}
	if head.Unread != 3 {
		t.Errorf("badge must show the unread count, got %d", head.Unread)
	}
	if head.Peer.DisplayName != "Bob" {
		t.Errorf("peer info not carried onto the head: %+v", head.Peer)
	}
}

func TestExpandedHeadAbsorbsUnreadAsReadThrough(t *testing.T) {
	ms := newMemStore()
	r := newTestRoster(ms, nil)
	ctx := context.Background()

	r.applyConversations(ctx, []Conversation{seededConversation(1)})
	r.heads["conv-alice:bob"].Expand()

	r.applyConversations(ctx, []Conversation{seededConversation(2)})
	r.wg.Wait()

	head := r.heads["conv-alice:bob"]
	if head.Unread != 0 {
		t.Errorf("expanded head must absorb unread, got %d", head.Unread)
	}
	if ms.markReadCount("conv-alice:bob") == 0 {
		t.Error("read-through must issue a MarkRead write")
	}
}

func TestCollapsedHeadAutoClosesWhenRead(t *testing.T) {
	ms := newMemStore()
	r := newTestRoster(ms, nil)
	ctx := context.Background()

	r.applyConversations(ctx, []Conversation{seededConversation(2)})
	if _, ok := r.heads["conv-alice:bob"]; !ok {
		t.Fatal("expected auto-opened head")
	}

	// The same conversation read on another surface drops unread to zero.
	r.applyConversations(ctx, []Conversation{seededConversation(0)})

	if _, ok := r.heads["conv-alice:bob"]; ok {
		t.Error("collapsed head with zero unread must auto-close")
	}
	if _, ok := r.subs["conv-alice:bob"]; ok {
		t.Error("auto-close must tear down the message subscription")
	}
	if _, ok := r.typing["conv-alice:bob"]; ok {
		t.Error("auto-close must tear down the typing coordinator")
	}
}

func TestPeerConversationsAreIgnored(t *testing.T) {
	ms := newMemStore()
	r := newTestRoster(ms, nil)
	ctx := context.Background()

	foreign := Conversation{
		ID:           "conv-carol:dave",
		Participants: [2]string{"carol", "dave"},
		Unread:       map[string]int{"carol": 5},
	}

	r.applyConversations(ctx, []Conversation{foreign})

	if len(r.heads) != 0 {
		t.Error("conversations not involving the user must not open heads")
	}
}

func TestSnapshotReconcilesPendingAndDropsTombstones(t *testing.T) {
	ms := newMemStore()
	r := newTestRoster(ms, nil)
	ctx := context.Background()

	r.applyConversations(ctx, []Conversation{seededConversation(1)})
	head := r.heads["conv-alice:bob"]

	head.Pending.Enqueue(PendingMessage{CorrelationID: "c1", SenderID: "alice", Text: "hi"})

	r.applySnapshot(Snapshot{
		ConversationID: "conv-alice:bob",
		Messages: []Message{
			{ID: "m1", SenderID: "bob", Text: "hello", State: StateActive},
			{ID: "m2", SenderID: "alice", Text: "hi", CorrelationID: "c1", State: StateActive},
			{ID: "m3", SenderID: "bob", State: StateDeleted},
		},
	})

	if head.Pending.Len() != 0 {
		t.Error("confirmed message must drain the pending entry")
	}
	if got := len(head.Visible()); got != 2 {
		t.Errorf("tombstone must not render, got %d visible", got)
	}
}

// --- Loop-driven tests exercising the public command surface ---

// waitForView drains the notify channel until cond holds or the deadline hits.
func waitForView(t *testing.T, views <-chan View, cond func(View) bool) View {
	t.Helper()

	deadline := time.After(2 * time.Second)
	var last View
	for {
		select {
		case v := <-views:
			last = v
			if cond(v) {
				return v
			}
		case <-deadline:
			t.Fatalf("condition never reached; last view: %+v", last)
			return last
		}
	}
}

func startRoster(t *testing.T, ms *memStore) (*Roster, chan View, func()) {
	t.Helper()

	views := make(chan View, 256)
	r := newTestRoster(ms, func(v View) {
		select {
		case views <- v:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	return r, views, func() {
		cancel()
		<-done
	}
}

func TestOpenConversationIsIdempotent(t *testing.T) {
	ms := newMemStore()
	r, views, stop := startRoster(t, ms)
	defer stop()

	r.OpenConversation("bob")
	r.OpenConversation("bob")

	v := waitForView(t, views, func(v View) bool {
		return len(v.Heads) == 1 && v.Heads[0].Expanded
	})

	if v.Heads[0].Peer.ID != "bob" {
		t.Errorf("wrong peer on head: %+v", v.Heads[0].Peer)
	}
}

func TestSendConfirmsAndDrainsPending(t *testing.T) {
	ms := newMemStore()
	r, views, stop := startRoster(t, ms)
	defer stop()

	r.OpenConversation("bob")
	waitForView(t, views, func(v View) bool { return len(v.Heads) == 1 })

	r.Send("conv-alice:bob", "hello bob")

	v := waitForView(t, views, func(v View) bool {
		return len(v.Heads) == 1 &&
			len(v.Heads[0].Pending) == 0 &&
			len(v.Heads[0].Messages) == 1
	})

	if v.Heads[0].Messages[0].Text != "hello bob" {
		t.Errorf("unexpected confirmed message: %+v", v.Heads[0].Messages[0])
	}
}

func TestFailedSendHeldForRetry(t *testing.T) {
	ms := newMemStore()
	ms.sendErr = errors.New("store unavailable")

	r, views, stop := startRoster(t, ms)
	defer stop()

	r.OpenConversation("bob")
	waitForView(t, views, func(v View) bool { return len(v.Heads) == 1 })

	r.Send("conv-alice:bob", "hello bob")

	v := waitForView(t, views, func(v View) bool {
		return len(v.Heads) == 1 &&
			len(v.Heads[0].Pending) == 1 &&
			v.Heads[0].Pending[0].State == SendStateFailed
	})

	failedID := v.Heads[0].Pending[0].CorrelationID

	// Retry after the store recovers must reuse the correlation id.
	ms.mu.Lock()
	ms.sendErr = nil
	ms.mu.Unlock()

	r.RetrySend("conv-alice:bob", failedID)

	waitForView(t, views, func(v View) bool {
		return len(v.Heads) == 1 &&
			len(v.Heads[0].Pending) == 0 &&
			len(v.Heads[0].Messages) == 1
	})

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.sentIDs) != 1 || ms.sentIDs[0] != failedID {
		t.Errorf("retry must reuse the original correlation id: %v", ms.sentIDs)
	}
}

func TestOversizedAndEmptySendsAreRejected(t *testing.T) {
	ms := newMemStore()
	r, views, stop := startRoster(t, ms)
	defer stop()

	r.OpenConversation("bob")
	waitForView(t, views, func(v View) bool { return len(v.Heads) == 1 })

	oversized := make([]byte, MaxContentBytes+1)
	for i := range oversized {
		oversized[i] = 'a'
	}

	r.Send("conv-alice:bob", "")
	r.Send("conv-alice:bob", string(oversized))
	r.Send("conv-alice:bob", "ok")

	waitForView(t, views, func(v View) bool {
		return len(v.Heads) == 1 && len(v.Heads[0].Messages) == 1
	})

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.sentIDs) != 1 {
		t.Errorf("only the valid send may reach the store, got %d", len(ms.sentIDs))
	}
}

func TestReactionsUnionAcrossReactors(t *testing.T) {
	ms := newMemStore()
	r, views, stop := startRoster(t, ms)
	defer stop()

	r.OpenConversation("bob")
	waitForView(t, views, func(v View) bool { return len(v.Heads) == 1 })

	r.Send("conv-alice:bob", "react to this")
	waitForView(t, views, func(v View) bool {
		return len(v.Heads) == 1 && len(v.Heads[0].Messages) == 1
	})

	// The peer reacts on another surface, then the local user reacts with the
	// same emoji: the set must union to both ids.
	ms.AddReaction(context.Background(), "conv-alice:bob", "m1", "👍", "bob")
	r.AddReaction("conv-alice:bob", "m1", "👍")

	waitForView(t, views, func(v View) bool {
		return len(v.Heads) == 1 &&
			len(v.Heads[0].Messages) == 1 &&
			len(v.Heads[0].Messages[0].Reactions["👍"]) == 2
	})

	// A repeat reaction from the same user must not grow the set. MarkRead is
	// the ordering marker: once its write lands, the duplicate add has too.
	before := ms.markReadCount("conv-alice:bob")
	r.AddReaction("conv-alice:bob", "m1", "👍")
	r.MarkRead("conv-alice:bob")

	deadline := time.After(2 * time.Second)
	for ms.markReadCount("conv-alice:bob") <= before {
		select {
		case <-deadline:
			t.Fatal("ordering marker never landed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	ms.mu.Lock()
	got := len(ms.messages["conv-alice:bob"][0].Reactions["👍"])
	ms.mu.Unlock()
	if got != 2 {
		t.Errorf("duplicate reactor grew the set to %d, want 2", got)
	}

	r.RemoveReaction("conv-alice:bob", "m1", "👍")
	v := waitForView(t, views, func(v View) bool {
		return len(v.Heads) == 1 &&
			len(v.Heads[0].Messages) == 1 &&
			len(v.Heads[0].Messages[0].Reactions["👍"]) == 1
	})

	if v.Heads[0].Messages[0].Reactions["👍"][0] != "bob" {
		t.Errorf("removal must only drop the local user's id: %v", v.Heads[0].Messages[0].Reactions)
	}
}

func TestTeardownClearsTypingFlag(t *testing.T) {
	ms := newMemStore()
	clock := clockx.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	views := make(chan View, 256)
	r := NewRoster("alice", ms, ms, clock, DefaultTypingConfig(), func(v View) {
		select {
		case views <- v:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	r.OpenConversation("bob")
	waitForView(t, views, func(v View) bool { return len(v.Heads) == 1 })

	// Keep the draft alive and nudge the fake clock until the debounce has
	// elapsed and a flush tick writes typing=true.
	deadline := time.After(2 * time.Second)
	for {
		if w, ok := ms.lastTypingWrite(); ok && w.typing {
			break
		}
		r.Draft("conv-alice:bob", "still typ")
		clock.Advance(100 * time.Millisecond)
		select {
		case <-deadline:
			t.Fatal("typing=true write never landed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Sign-out cancels the session context before the loop winds down; the
	// flag must still be cleared for the peer.
	cancel()
	<-done

	w, ok := ms.lastTypingWrite()
	if !ok || w.typing {
		t.Errorf("teardown must clear the typing flag, last write: %+v", w)
	}
	if w.userID != "alice" || w.conversationID != "conv-alice:bob" {
		t.Errorf("typing clear addressed wrong document: %+v", w)
	}
}

func TestCollapseOfReadHeadClosesIt(t *testing.T) {
	ms := newMemStore()
	r, views, stop := startRoster(t, ms)
	defer stop()

	r.OpenConversation("bob")
	waitForView(t, views, func(v View) bool {
		return len(v.Heads) == 1 && v.Heads[0].Expanded
	})

	// A click collapses the expanded, fully read head, which removes it.
	r.PointerDown("conv-alice:bob", Position{X: 30, Y: 100})
	r.PointerUp("conv-alice:bob")

	waitForView(t, views, func(v View) bool { return len(v.Heads) == 0 })
}
