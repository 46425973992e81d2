/*
Package chat contains the core logic for the direct-messaging overlay.

This file implements the in-window text search: a match cursor over
case-insensitive substring matches across non-deleted messages, with wrapping
next/previous navigation.
*/
package chat

import (
	"strings"
)

// SearchMatch locates one occurrence of the query inside a message.
type SearchMatch struct {
	MessageID string `json:"messageId"`
	Offset    int    `json:"offset"`
}

// Search is the active in-window search state for one chat head.
type Search struct {
	Query   string
	matches []SearchMatch
	cursor  int
}

// NewSearch builds the match list for query over the given messages, in
// message order. Matching is case-insensitive and non-overlapping; deleted
// messages are skipped. An empty query yields no matches.
func NewSearch(query string, messages []Message) *Search {
	s := &Search{Query: query}
	if query == "" {
		return s
	}

	needle := strings.ToLower(query)

	for _, m := range messages {
		if m.Deleted() {
			continue
		}

		haystack := strings.ToLower(m.Text)
		offset := 0
		for {
			i := strings.Index(haystack[offset:], needle)
			if i < 0 {
				break
			}
			s.matches = append(s.matches, SearchMatch{MessageID: m.ID, Offset: offset + i})
			offset += i + len(needle)
		}
	}

	return s
}

// Count returns the number of matches.
func (s *Search) Count() int {
	return len(s.matches)
}

// Matches returns all matches in ascending message/offset order.
func (s *Search) Matches() []SearchMatch {
	return s.matches
}

// Current returns the match under the cursor, or false when there are none.
func (s *Search) Current() (SearchMatch, bool) {
	if len(s.matches) == 0 {
		return SearchMatch{}, false
	}
	return s.matches[s.cursor], true
}

// Next advances the cursor, wrapping modulo the match count.
func (s *Search) Next() {
	if len(s.matches) == 0 {
		return
	}
	s.cursor = (s.cursor + 1) % len(s.matches)
}

// Prev moves the cursor backwards, wrapping modulo the match count.
func (s *Search) Prev() {
	if len(s.matches) == 0 {
		return
	}
	s.cursor = (s.cursor - 1 + len(s.matches)) % len(s.matches)
}

// SetCursor positions the cursor, clamped to the current match list. Carries
// navigation state across a rebuild of the match list.
func (s *Search) SetCursor(i int) {
	if len(s.matches) == 0 {
		s.cursor = 0
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(s.matches) {
		i = len(s.matches) - 1
	}
	s.cursor = i
}

// CursorIndex returns the zero-based cursor position.
func (s *Search) CursorIndex() int {
	return s.cursor
}
