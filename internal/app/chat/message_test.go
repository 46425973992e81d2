package chat

import "testing"

func TestAppendUniqueIsSetUnion(t *testing.T) {
	ids := AppendUnique(nil, "alice")
	ids = AppendUnique(ids, "bob")

	if len(ids) != 2 {
		t.Fatalf("two distinct reactors must yield cardinality 2, got %v", ids)
	}

	// A repeat reactor must not grow the set.
	ids = AppendUnique(ids, "alice")
	if len(ids) != 2 {
		t.Errorf("duplicate id must not grow the set, got %v", ids)
	}
	if ids[0] != "alice" || ids[1] != "bob" {
		t.Errorf("insertion order must be preserved, got %v", ids)
	}
}

func TestRemoveIDKeepsOthers(t *testing.T) {
	ids := []string{"alice", "bob", "carol"}

	got := RemoveID(ids, "bob")
	if len(got) != 2 || got[0] != "alice" || got[1] != "carol" {
		t.Errorf("RemoveID = %v, want [alice carol]", got)
	}

	// Removing an absent id is a no-op.
	got = RemoveID(got, "bob")
	if len(got) != 2 {
		t.Errorf("removing an absent id changed the set: %v", got)
	}
}

func TestReactedBy(t *testing.T) {
	m := Message{Reactions: map[string][]string{
		"👍": {"alice", "bob"},
	}}

	if !m.ReactedBy("👍", "alice") {
		t.Error("alice's reaction not reported")
	}
	if m.ReactedBy("👍", "carol") {
		t.Error("carol never reacted")
	}
	if m.ReactedBy("❤️", "alice") {
		t.Error("wrong emoji reported as reacted")
	}
}
