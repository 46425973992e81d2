package chat

import (
	"testing"
)

func testViewport() Viewport {
	return Viewport{Width: 1280, Height: 800}
}

func testHead() *Head {
	return NewHead("conv-1", Participant{ID: "bob", DisplayName: "Bob"}, 0)
}

func TestClickTogglesExactlyOnce(t *testing.T) {
	h := testHead()

	h.PointerDown(Position{X: 30, Y: 100})
	toggled, markRead := h.PointerUp()

	if !toggled || !h.Expanded {
		t.Fatal("click on a collapsed head must expand it")
	}
	if !markRead {
		t.Error("expanding must oblige a MarkRead write")
	}

	h.PointerDown(Position{X: 30, Y: 100})
	toggled, markRead = h.PointerUp()

	if !toggled || h.Expanded {
		t.Fatal("click on an expanded head must collapse it")
	}
	if markRead {
		t.Error("collapsing owes no MarkRead write")
	}
}

func TestSubThresholdJitterStillCountsAsClick(t *testing.T) {
	h := testHead()

	h.PointerDown(Position{X: 30, Y: 100})
	h.PointerMove(Position{X: 33, Y: 103}, testViewport())
	toggled, _ := h.PointerUp()

	if !toggled {
		t.Error("movement within the threshold is a click, not a drag")
	}
}

func TestDragDoesNotToggle(t *testing.T) {
	h := testHead()
	start := h.Pos

	h.PointerDown(Position{X: 30, Y: 100})
	h.PointerMove(Position{X: 200, Y: 300}, testViewport())
	toggled, markRead := h.PointerUp()

	if toggled || markRead {
		t.Error("a drag must not toggle expansion or mark read")
	}
	if h.Pos == start {
		t.Error("drag should have moved the head")
	}
	if h.Dragging() {
		t.Error("pointer up must end the drag")
	}
}

func TestDragClampsToViewportMinusSidebar(t *testing.T) {
	h := testHead()
	vp := testViewport()

	h.PointerDown(h.Pos)
	h.PointerMove(Position{X: 5000, Y: 5000}, vp)
	h.PointerUp()

	wantX := vp.Width - HeadWidth - SidebarReserve
	wantY := vp.Height - HeadHeight

	if h.Pos.X != wantX {
		t.Errorf("X not clamped: got %v want %v", h.Pos.X, wantX)
	}
	if h.Pos.Y != wantY {
		t.Errorf("Y not clamped: got %v want %v", h.Pos.Y, wantY)
	}

	h.PointerDown(h.Pos)
	h.PointerMove(Position{X: -500, Y: -500}, vp)
	h.PointerUp()

	if h.Pos.X != 0 || h.Pos.Y != 0 {
		t.Errorf("negative clamp failed: got %+v", h.Pos)
	}
}

func TestExpandClearsUnread(t *testing.T) {
	h := testHead()
	h.SetUnread(3)

	if !h.Expand() {
		t.Fatal("first expand must report a MarkRead obligation")
	}
	if h.Unread != 0 {
		t.Errorf("expand must clear the badge, got %d", h.Unread)
	}

	if h.Expand() {
		t.Error("expanding an expanded head owes nothing")
	}
}

func TestPanelsAreMutuallyExclusive(t *testing.T) {
	h := testHead()
	h.Expand()

	h.OpenMenu("m1")
	if p, target := h.Panel(); p != PanelMenu || target != "m1" {
		t.Fatalf("expected menu on m1, got %s/%s", p, target)
	}

	h.BeginEdit("m2")
	if p, target := h.Panel(); p != PanelEdit || target != "m2" {
		t.Fatalf("opening edit must replace the menu, got %s/%s", p, target)
	}

	h.ToggleEmoji()
	if p, _ := h.Panel(); p != PanelEmoji {
		t.Fatalf("expected emoji picker, got %s", p)
	}

	h.ToggleEmoji()
	if p, _ := h.Panel(); p != PanelNone {
		t.Fatalf("second toggle must close the picker, got %s", p)
	}
}

func TestPanelsRequireExpansion(t *testing.T) {
	h := testHead()

	h.OpenMenu("m1")
	if p, _ := h.Panel(); p != PanelNone {
		t.Error("a collapsed head has no panels")
	}
}

func TestCollapseClosesPanelsAndSearch(t *testing.T) {
	h := testHead()
	h.Expand()
	h.Messages = []Message{{ID: "m1", Text: "hello", State: StateActive}}
	h.OpenConfirmDelete("m1")
	h.StartSearch("hello")

	h.Collapse()

	if p, target := h.Panel(); p != PanelNone || target != "" {
		t.Error("collapse must reset the panel")
	}
	if h.Search() != nil {
		t.Error("collapse must leave search mode")
	}
}

func TestApplySnapshotDropsDeadPanelTarget(t *testing.T) {
	h := testHead()
	h.Expand()
	h.Messages = []Message{{ID: "m1", Text: "hello", State: StateActive}}
	h.OpenMenu("m1")

	// The target message was deleted elsewhere; the snapshot carries the tombstone.
	h.ApplySnapshot([]Message{{ID: "m1", Text: "", State: StateDeleted}})

	if p, _ := h.Panel(); p != PanelNone {
		t.Error("panel over a tombstoned message must close")
	}
}

func TestApplySnapshotRebuildsSearch(t *testing.T) {
	h := testHead()
	h.Expand()
	h.Messages = []Message{{ID: "m1", Text: "alpha", State: StateActive}}
	h.StartSearch("alpha")

	h.ApplySnapshot([]Message{
		{ID: "m1", Text: "alpha", State: StateActive},
		{ID: "m2", Text: "alpha again", State: StateActive},
	})

	if got := h.Search().Count(); got != 2 {
		t.Errorf("search must re-run over the new window, got %d matches", got)
	}
}

func TestApplySnapshotKeepsSearchCursor(t *testing.T) {
	h := testHead()
	h.Expand()
	h.Messages = []Message{
		{ID: "m1", Text: "alpha", State: StateActive},
		{ID: "m2", Text: "alpha", State: StateActive},
		{ID: "m3", Text: "alpha", State: StateActive},
	}
	h.StartSearch("alpha")
	h.Search().Next()
	h.Search().Next()

	// A new message arriving must not yank the cursor back to the start.
	h.ApplySnapshot(append(h.Messages, Message{ID: "m4", Text: "alpha", State: StateActive}))

	if got := h.Search().CursorIndex(); got != 2 {
		t.Errorf("cursor must survive a re-delivery, got %d", got)
	}

	// Shrinking the match list below the cursor clamps to the last match.
	h.ApplySnapshot([]Message{{ID: "m1", Text: "alpha", State: StateActive}})

	if got := h.Search().CursorIndex(); got != 0 {
		t.Errorf("cursor must clamp to the new match count, got %d", got)
	}
	if got := h.Search().Count(); got != 1 {
		t.Errorf("match list must re-run over the new window, got %d", got)
	}
}

func TestVisibleExcludesTombstones(t *testing.T) {
	h := testHead()
	h.Messages = []Message{
		{ID: "m1", Text: "hello", State: StateActive},
		{ID: "m2", State: StateDeleted},
		{ID: "m3", Text: "bye", State: StateActive},
	}

	visible := h.Visible()
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible messages, got %d", len(visible))
	}
	for _, m := range visible {
		if m.Deleted() {
			t.Errorf("tombstone %s leaked into the render set", m.ID)
		}
	}
}

func TestSlotPositionStacks(t *testing.T) {
	p0 := SlotPosition(0)
	p1 := SlotPosition(1)

	if p0.X != BaseOffsetX || p0.Y != BaseOffsetY {
		t.Errorf("slot 0 misplaced: %+v", p0)
	}
	if p1.Y-p0.Y != StackSpacing {
		t.Errorf("slots must be spaced by %v, got %v", StackSpacing, p1.Y-p0.Y)
	}
}
