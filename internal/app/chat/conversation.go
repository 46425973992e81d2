/*
Package chat contains the core logic for the direct-messaging overlay.

This file defines the Conversation type: the persistent two-party thread and
its metadata (unread counters, typing flags, denormalized participant info).
*/
package chat

import (
	"sort"
	"strings"
)

// Participant is the denormalized display info stored on a conversation so
// heads can render a peer without a user lookup.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
}

// Conversation is the persistent two-party message thread.
// Exactly one conversation exists per unordered participant pair.
type Conversation struct {
	ID string `json:"id"`

	// Participants holds both participant ids. Order is canonical (sorted),
	// matching the pair key the store enforces uniqueness on.
	Participants [2]string `json:"participants"`

	// Unread maps participant id to their unread message count.
	Unread map[string]int `json:"unread,omitempty"`

	// Typing maps participant id to their current typing flag.
	Typing map[string]bool `json:"typing,omitempty"`

	// Info maps participant id to denormalized display info.
	Info map[string]Participant `json:"info,omitempty"`
}

// PairKey returns the canonical key for the unordered participant pair.
// The same two users always map to the same key regardless of argument order.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// CanonicalPair returns the two ids in canonical (sorted) order.
func CanonicalPair(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Has reports whether userID participates in the conversation.
func (c Conversation) Has(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Other returns the id of the participant that is not selfID.
func (c Conversation) Other(selfID string) string {
	if c.Participants[0] == selfID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// Peer returns the denormalized display info for the non-self participant.
func (c Conversation) Peer(selfID string) Participant {
	otherID := c.Other(selfID)
	if info, ok := c.Info[otherID]; ok {
		return info
	}
	return Participant{ID: otherID}
}

// UnreadFor returns the unread counter for userID, zero when absent.
func (c Conversation) UnreadFor(userID string) int {
	return c.Unread[userID]
}

// PeerTyping reports whether any participant other than selfID has their
// typing flag set.
func (c Conversation) PeerTyping(selfID string) bool {
	for id, typing := range c.Typing {
		if id != selfID && typing {
			return true
		}
	}
	return false
}
