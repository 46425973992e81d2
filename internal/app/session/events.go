/*
Package session binds one authenticated WebSocket connection to its presence
tracker and chat roster.

This file defines the wire envelope and the inbound/outbound event types
exchanged with the browser. Every event is a JSON object with a type tag and
an optional payload.
*/
package session

import "encoding/json"

// EventType tags a wire event.
type EventType string

// Inbound event types (browser to server).
const (
	EventActivity EventType = "ACTIVITY"
	EventViewport EventType = "VIEWPORT"

	EventOpenConversation EventType = "OPEN_CONVERSATION"
	EventCloseHead        EventType = "CLOSE_HEAD"
	EventPointerDown      EventType = "POINTER_DOWN"
	EventPointerMove      EventType = "POINTER_MOVE"
	EventPointerUp        EventType = "POINTER_UP"
	EventMarkRead         EventType = "MARK_READ"

	EventDraft          EventType = "DRAFT"
	EventSend           EventType = "SEND"
	EventRetrySend      EventType = "RETRY_SEND"
	EventEditMessage    EventType = "EDIT_MESSAGE"
	EventDeleteMessage  EventType = "DELETE_MESSAGE"
	EventReactionAdd    EventType = "REACTION_ADD"
	EventReactionRemove EventType = "REACTION_REMOVE"

	EventMenuOpen          EventType = "MENU_OPEN"
	EventConfirmDeleteOpen EventType = "CONFIRM_DELETE_OPEN"
	EventEditBegin         EventType = "EDIT_BEGIN"
	EventEmojiToggle       EventType = "EMOJI_TOGGLE"
	EventOutsideClick      EventType = "OUTSIDE_CLICK"

	EventSearchStart EventType = "SEARCH_START"
	EventSearchNext  EventType = "SEARCH_NEXT"
	EventSearchPrev  EventType = "SEARCH_PREV"
	EventSearchEnd   EventType = "SEARCH_END"
)

// Outbound event types (server to browser).
const (
	EventRoster   EventType = "ROSTER"
	EventPresence EventType = "PRESENCE"
	EventError    EventType = "ERROR"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ViewportPayload carries the browser window dimensions. Fields are float64
// because browsers report fractional CSS pixels on zoomed or high-DPI pages.
type ViewportPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// OpenConversationPayload names the peer to open a conversation with.
type OpenConversationPayload struct {
	PeerID string `json:"peerId"`
}

// HeadPayload addresses a chat head by its conversation.
type HeadPayload struct {
	ConversationID string `json:"conversationId"`
}

// PointerPayload carries a pointer event on a head bubble.
type PointerPayload struct {
	ConversationID string  `json:"conversationId"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
}

// TextPayload carries draft or send text for a conversation.
type TextPayload struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

// RetryPayload re-identifies a failed optimistic send.
type RetryPayload struct {
	ConversationID string `json:"conversationId"`
	CorrelationID  string `json:"correlationId"`
}

// MessagePayload addresses one message in a conversation.
type MessagePayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// EditPayload carries replacement text for a message.
type EditPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Text           string `json:"text"`
}

// ReactionPayload carries a reaction toggle on a message.
type ReactionPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Emoji          string `json:"emoji"`
}

// SearchPayload carries an in-window search query.
type SearchPayload struct {
	ConversationID string `json:"conversationId"`
	Query          string `json:"query"`
}

// PresencePayload is the outbound presence update for one user.
type PresencePayload struct {
	UserID     string `json:"userId"`
	Status     string `json:"status"`
	LastOnline int64  `json:"lastOnline,omitempty"`
}

// ErrorPayload is the outbound error frame.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
