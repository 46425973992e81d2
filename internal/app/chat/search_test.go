package chat

import (
	"testing"
)

func searchMessages() []Message {
	return []Message{
		{ID: "m1", Text: "Keyword ranking dropped", State: StateActive},
		{ID: "m2", Text: "which keyword?", State: StateActive},
		{ID: "m3", Text: "the KEYWORD from last week", State: StateActive},
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	s := NewSearch("keyword", searchMessages())

	if got := s.Count(); got != 3 {
		t.Fatalf("expected 3 matches across cases, got %d", got)
	}
}

func TestSearchSkipsDeletedMessages(t *testing.T) {
	messages := searchMessages()
	messages[1].State = StateDeleted

	s := NewSearch("keyword", messages)

	if got := s.Count(); got != 2 {
		t.Fatalf("expected tombstones excluded, got %d matches", got)
	}
	for _, m := range s.Matches() {
		if m.MessageID == "m2" {
			t.Error("deleted message produced a match")
		}
	}
}

func TestSearchNonOverlappingMatches(t *testing.T) {
	s := NewSearch("aa", []Message{{ID: "m1", Text: "aaaa", State: StateActive}})

	// "aaaa" holds two non-overlapping "aa", not three.
	if got := s.Count(); got != 2 {
		t.Fatalf("expected 2 non-overlapping matches, got %d", got)
	}

	matches := s.Matches()
	if matches[0].Offset != 0 || matches[1].Offset != 2 {
		t.Errorf("wrong offsets: %+v", matches)
	}
}

func TestSearchCursorWraps(t *testing.T) {
	s := NewSearch("keyword", searchMessages())

	current, ok := s.Current()
	if !ok || current.MessageID != "m1" {
		t.Fatalf("cursor must start at the first match, got %+v", current)
	}

	s.Next()
	s.Next()
	s.Next() // wraps back to the first match

	current, _ = s.Current()
	if current.MessageID != "m1" {
		t.Errorf("next must wrap, got %s", current.MessageID)
	}

	s.Prev() // wraps backwards to the last match

	current, _ = s.Current()
	if current.MessageID != "m3" {
		t.Errorf("prev must wrap, got %s", current.MessageID)
	}
}

func TestSearchEmptyQueryAndNoMatches(t *testing.T) {
	s := NewSearch("", searchMessages())
	if s.Count() != 0 {
		t.Error("empty query must match nothing")
	}

	s = NewSearch("nonexistent", searchMessages())
	if _, ok := s.Current(); ok {
		t.Error("no current match expected")
	}

	// Navigation over an empty match list must not panic or move.
	s.Next()
	s.Prev()
	if s.CursorIndex() != 0 {
		t.Errorf("cursor moved without matches: %d", s.CursorIndex())
	}
}
