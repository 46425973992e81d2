/*
Package chat contains the core logic for the direct-messaging overlay: message
and conversation types, the pending-send queue, typing coordination, chat head
state machines, and the roster supervising open heads.

This file defines the Message type and its lifecycle states.
*/
package chat

import (
	"time"
)

// MessageState is the lifecycle state of a stored message.
type MessageState string

const (
	// StateActive is the normal state; the message is part of the live window.
	StateActive MessageState = "active"

	// StateArchived means the message aged past the retention window and is
	// only reachable through the cold fetch path.
	StateArchived MessageState = "archived"

	// StateDeleted is a tombstone: the id is retained, the text cleared, and
	// the message excluded from render and search.
	StateDeleted MessageState = "deleted"
)

// MaxContentBytes is the maximum allowed size (in bytes) for message text.
const MaxContentBytes = 5000

// Message is a persisted chat message as delivered by the store.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
	Edited         bool      `json:"edited,omitempty"`

	// Reactions maps emoji to the set of reacting user ids. Updates are
	// set-union; concurrent reactors on the same emoji must not lose entries.
	Reactions map[string][]string `json:"reactions,omitempty"`

	// ReadBy is the set of user ids that have read past this message.
	ReadBy []string `json:"readBy,omitempty"`

	// CorrelationID matches this message back to the optimistic send that
	// produced it. Empty for messages authored before the field existed.
	CorrelationID string `json:"correlationId,omitempty"`

	State MessageState `json:"state"`
}

// Deleted reports whether the message is a tombstone.
func (m Message) Deleted() bool {
	return m.State == StateDeleted
}

// ReactedBy reports whether userID already reacted with emoji on this message.
func (m Message) ReactedBy(emoji, userID string) bool {
	for _, id := range m.Reactions[emoji] {
		if id == userID {
			return true
		}
	}
	return false
}

// ReadByUser reports whether userID is in the message's read set.
func (m Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// AppendUnique adds id to ids if not already present, preserving order.
// Used wherever read/reaction sets are maintained client-side.
func AppendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// RemoveID returns ids without id, preserving order.
func RemoveID(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
