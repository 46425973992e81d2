/*
Package chat contains the core logic for the direct-messaging overlay.

This file implements the pending-send queue: locally authored messages not yet
confirmed by the store, their sending/sent/failed state machine, and the
reconciliation that removes entries once the live subscription delivers a
matching persisted message.
*/
package chat

import (
	"time"
)

// SendState is the delivery state of a locally authored message.
type SendState string

const (
	// SendStateSending means the write is in flight (or queued for retry).
	SendStateSending SendState = "sending"

	// SendStateSent means the adapter confirmed the write but the live
	// subscription has not delivered the persisted message yet.
	SendStateSent SendState = "sent"

	// SendStateFailed means the adapter returned an error; the entry waits
	// for an explicit user retry.
	SendStateFailed SendState = "failed"
)

// PendingMessage is a client-only optimistic record of an unconfirmed send.
// It is never written to the store itself.
type PendingMessage struct {
	CorrelationID string    `json:"correlationId"`
	SenderID      string    `json:"senderId"`
	Text          string    `json:"text"`
	State         SendState `json:"state"`
	QueuedAt      time.Time `json:"queuedAt"`
}

// PendingQueue holds the per-conversation pending entries in send order.
// It is driven from the roster's single event loop and needs no locking.
type PendingQueue struct {
	entries []PendingMessage
}

// Enqueue appends a new entry in the sending state.
func (q *PendingQueue) Enqueue(p PendingMessage) {
	p.State = SendStateSending
	q.entries = append(q.entries, p)
}

// MarkSent records adapter confirmation for the given correlation id.
// The entry stays queued until reconciliation sees the persisted message;
// out-of-order delivery may have removed it already, which is fine.
func (q *PendingQueue) MarkSent(correlationID string) {
	q.transition(correlationID, SendStateSending, SendStateSent)
}

// MarkFailed flags the entry for manual retry.
func (q *PendingQueue) MarkFailed(correlationID string) {
	q.transition(correlationID, SendStateSending, SendStateFailed)
}

// Retry moves a failed entry back to sending and returns it so the caller can
// re-invoke the adapter with the same correlation id and text. The second
// return is false when no failed entry with that id exists.
func (q *PendingQueue) Retry(correlationID string) (PendingMessage, bool) {
	for i := range q.entries {
		if q.entries[i].CorrelationID == correlationID && q.entries[i].State == SendStateFailed {
			q.entries[i].State = SendStateSending
			return q.entries[i], true
		}
	}
	return PendingMessage{}, false
}

// Reconcile drops entries matched by the confirmed set and returns whether
// anything changed.
func (q *PendingQueue) Reconcile(confirmed []Message) bool {
	next := Reconcile(q.entries, confirmed)
	changed := len(next) != len(q.entries)
	q.entries = next
	return changed
}

// Entries returns the queued entries in send order. Rendered appended after
// all confirmed messages, never deduplicated visually against a not-yet-matched
// confirmed message; a brief duplicate render self-heals on the next pass.
func (q *PendingQueue) Entries() []PendingMessage {
	return q.entries
}

// Len returns the number of queued entries.
func (q *PendingQueue) Len() int {
	return len(q.entries)
}

func (q *PendingQueue) transition(correlationID string, from, to SendState) {
	for i := range q.entries {
		if q.entries[i].CorrelationID == correlationID && q.entries[i].State == from {
			q.entries[i].State = to
			return
		}
	}
}

// Reconcile computes the surviving pending set given the confirmed messages
// currently visible in the subscription window. An entry is removed when a
// confirmed message carries its correlation id, or as a fallback when an
// unconsumed confirmed message from the same sender has identical text. Each
// confirmed message consumes at most one pending entry, so an entry is removed
// exactly once regardless of delivery order relative to the send call's own
// completion.
func Reconcile(pending []PendingMessage, confirmed []Message) []PendingMessage {
	if len(pending) == 0 {
		return pending
	}

	byCorrelation := make(map[string]int, len(confirmed))
	consumed := make([]bool, len(confirmed))
	for i, m := range confirmed {
		if m.CorrelationID != "" {
			byCorrelation[m.CorrelationID] = i
		}
	}

	out := make([]PendingMessage, 0, len(pending))

	for _, p := range pending {
		if i, ok := byCorrelation[p.CorrelationID]; ok && !consumed[i] {
			consumed[i] = true
			continue
		}

		matched := false
		for i, m := range confirmed {
			if consumed[i] || m.CorrelationID != "" {
				continue
			}
			if m.SenderID == p.SenderID && m.Text == p.Text {
				consumed[i] = true
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		out = append(out, p)
	}

	return out
}
