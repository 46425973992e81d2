/*
Package chat contains the core logic for the direct-messaging overlay.

This file defines the collaborator interfaces over the hosted document store.
The core depends only on subscribe-with-limit, cursor pagination, and
merge-style partial writes; everything else about the store is opaque.
*/
package chat

import (
	"context"
)

// Unsubscribe tears down a live subscription. Safe to call more than once.
type Unsubscribe func()

// Snapshot is one full delivery of a conversation's live message window.
// The store re-delivers the complete window on every underlying change; it is
// not a diff stream. Messages are ordered oldest to newest.
type Snapshot struct {
	ConversationID string    `json:"conversationId"`
	Messages       []Message `json:"messages"`
}

// MessageStore exposes the message collection of a conversation.
type MessageStore interface {
	// Subscribe delivers the most recent limit non-archived messages, then
	// re-delivers the full window on every change until unsubscribed.
	Subscribe(ctx context.Context, conversationID string, limit int, fn func(Snapshot)) (Unsubscribe, error)

	// FetchOlder returns up to limit messages strictly older than before,
	// oldest to newest. A short page means no more history exists.
	FetchOlder(ctx context.Context, conversationID string, before Message, limit int) ([]Message, error)

	// FetchArchived returns messages beyond the retention window, newest
	// first. Fetched on demand only, never subscribed.
	FetchArchived(ctx context.Context, conversationID string, limit int) ([]Message, error)

	// Send writes a new message. Idempotent with respect to correlationID: a
	// retried send with the same correlation id must not produce a duplicate
	// visible message. Callers retrying the same logical send must pass the
	// same correlation id.
	Send(ctx context.Context, conversationID, senderID, text, correlationID string) error

	// Edit replaces the message text and marks it edited.
	Edit(ctx context.Context, conversationID, messageID, newText string) error

	// Delete tombstones the message. The id survives; the text does not.
	Delete(ctx context.Context, conversationID, messageID string) error

	// AddReaction adds userID to the reacting set for emoji. Set-union
	// semantics: concurrent reactors must not lose each other's updates.
	AddReaction(ctx context.Context, conversationID, messageID, emoji, userID string) error

	// RemoveReaction removes userID from the reacting set for emoji.
	RemoveReaction(ctx context.Context, conversationID, messageID, emoji, userID string) error

	// MarkRead clears userID's unread counter on the conversation and appends
	// userID to readBy on messages they had not read yet.
	MarkRead(ctx context.Context, conversationID, userID string) error
}

// ConversationStore exposes the conversation documents for a user.
type ConversationStore interface {
	// Open returns the conversation for the unordered pair, creating it on
	// first contact. Idempotent: the same pair always maps to the same
	// conversation.
	Open(ctx context.Context, userA, userB string) (Conversation, error)

	// SubscribeAll delivers the full set of conversations involving userID,
	// then re-delivers it on every change until unsubscribed.
	SubscribeAll(ctx context.Context, userID string, fn func([]Conversation)) (Unsubscribe, error)

	// SetTyping merge-writes userID's typing flag on the conversation.
	SetTyping(ctx context.Context, conversationID, userID string, typing bool) error
}
