package chat

import (
	"testing"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	if PairKey("alice", "bob") != PairKey("bob", "alice") {
		t.Error("pair key must not depend on argument order")
	}
	if PairKey("alice", "bob") != "alice:bob" {
		t.Errorf("unexpected key: %s", PairKey("alice", "bob"))
	}
}

func TestCanonicalPairSorts(t *testing.T) {
	if got := CanonicalPair("bob", "alice"); got != [2]string{"alice", "bob"} {
		t.Errorf("unexpected pair: %v", got)
	}
}

func TestConversationAccessors(t *testing.T) {
	conv := Conversation{
		ID:           "conv-1",
		Participants: [2]string{"alice", "bob"},
		Unread:       map[string]int{"alice": 3},
		Typing:       map[string]bool{"bob": true},
		Info: map[string]Participant{
			"bob": {ID: "bob", DisplayName: "Bob"},
		},
	}

	if !conv.Has("alice") || conv.Has("carol") {
		t.Error("participant check failed")
	}
	if conv.Other("alice") != "bob" {
		t.Error("other participant lookup failed")
	}
	if conv.UnreadFor("alice") != 3 || conv.UnreadFor("bob") != 0 {
		t.Error("unread lookup failed")
	}
	if !conv.PeerTyping("alice") {
		t.Error("peer typing flag not surfaced")
	}
	if conv.PeerTyping("bob") {
		t.Error("own typing flag must not count as peer typing")
	}

	peer := conv.Peer("alice")
	if peer.DisplayName != "Bob" {
		t.Errorf("denormalized info not used: %+v", peer)
	}

	// Missing info degrades to a bare id, never a panic.
	peer = conv.Peer("bob")
	if peer.ID != "alice" || peer.DisplayName != "" {
		t.Errorf("fallback peer wrong: %+v", peer)
	}
}
