/*
Package chat contains the core logic for the direct-messaging overlay.

This file implements the chat head: the draggable, collapsible affordance for
one open conversation. Expansion state, drag-vs-click disambiguation, viewport
clamping, unread bookkeeping, and the singleton sub-panels (message menu,
delete confirmation, inline edit, emoji picker) all live here as one explicit
state machine instead of scattered flags.
*/
package chat

// Geometry constants for head placement. Coordinates are CSS pixels as
// reported by the browser.
const (
	// HeadWidth and HeadHeight are the collapsed bubble dimensions.
	HeadWidth  = 56.0
	HeadHeight = 56.0

	// SidebarReserve keeps heads clear of the roster sidebar on the right edge.
	SidebarReserve = 240.0

	// DragThreshold is the pointer displacement (in either axis distance)
	// below which a press-release cycle counts as a click, not a drag.
	DragThreshold = 6.0

	// BaseOffsetX and BaseOffsetY anchor the head stack.
	BaseOffsetX = 24.0
	BaseOffsetY = 96.0

	// StackSpacing is the vertical distance between stacked heads.
	StackSpacing = 72.0
)

// Position is a screen coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the browser window size used for clamping.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Panel enumerates the mutually exclusive sub-panels of an expanded head.
// Exactly one may be open at a time, which rules out impossible combinations
// such as editing and confirming a delete simultaneously.
type Panel string

const (
	PanelNone          Panel = "none"
	PanelEmoji         Panel = "emoji"
	PanelMenu          Panel = "menu"
	PanelConfirmDelete Panel = "confirmDelete"
	PanelEdit          Panel = "edit"
)

// Head is the per-open-conversation UI state machine.
// It is pure state: all store side effects are signaled through return values
// and performed by the roster loop.
type Head struct {
	ConversationID string
	Peer           Participant
	Unread         int
	Expanded       bool
	Pos            Position

	// Slot is the stacking index assigned at creation.
	Slot int

	// PeerTyping mirrors the conversation's typing flag for the other side.
	PeerTyping bool

	// Messages is the confirmed live window, oldest to newest.
	Messages []Message

	// Pending holds the optimistic entries rendered after Messages.
	Pending PendingQueue

	dragging   bool
	dragMoved  bool
	pressPos   Position
	grabOffset Position

	panel       Panel
	panelTarget string

	search *Search
}

// SlotPosition computes the default stacked position for a slot index.
func SlotPosition(slot int) Position {
	return Position{X: BaseOffsetX, Y: BaseOffsetY + float64(slot)*StackSpacing}
}

// NewHead creates a collapsed head for the conversation at its slot position.
func NewHead(conversationID string, peer Participant, slot int) *Head {
	return &Head{
		ConversationID: conversationID,
		Peer:           peer,
		Slot:           slot,
		Pos:            SlotPosition(slot),
		panel:          PanelNone,
	}
}

// PointerDown begins a potential drag or click at p.
func (h *Head) PointerDown(p Position) {
	h.dragging = true
	h.dragMoved = false
	h.pressPos = p
	h.grabOffset = Position{X: p.X - h.Pos.X, Y: p.Y - h.Pos.Y}
}

// PointerMove updates the head position while dragging, clamped to the
// viewport minus the sidebar reserve and the head's own dimensions. Movement
// only counts as a drag once it exceeds the click threshold.
func (h *Head) PointerMove(p Position, vp Viewport) {
	if !h.dragging {
		return
	}

	if !h.dragMoved {
		dx := p.X - h.pressPos.X
		dy := p.Y - h.pressPos.Y
		if dx*dx+dy*dy > DragThreshold*DragThreshold {
			h.dragMoved = true
		}
	}

	if h.dragMoved {
		h.Pos = clamp(Position{X: p.X - h.grabOffset.X, Y: p.Y - h.grabOffset.Y}, vp)
	}
}

// PointerUp ends the press-release cycle. A cycle that never exceeded the
// drag threshold toggles the head exactly once; a drag toggles nothing.
// markRead is true when the toggle expanded the head, which clears unread and
// obliges the caller to invoke the store's MarkRead.
func (h *Head) PointerUp() (toggled, markRead bool) {
	if !h.dragging {
		return false, false
	}

	h.dragging = false

	if h.dragMoved {
		h.dragMoved = false
		return false, false
	}

	if h.Expanded {
		h.Collapse()
		return true, false
	}

	return true, h.Expand()
}

// Dragging reports whether a press is in progress.
func (h *Head) Dragging() bool {
	return h.dragging
}

// Expand opens the message window, clearing the unread badge. The return
// value tells the caller whether a MarkRead write is owed (true unless the
// head was already expanded).
func (h *Head) Expand() bool {
	if h.Expanded {
		return false
	}
	h.Expanded = true
	h.Unread = 0
	return true
}

// Collapse closes the message window and every sub-panel, including search.
func (h *Head) Collapse() {
	h.Expanded = false
	h.panel = PanelNone
	h.panelTarget = ""
	h.search = nil
}

// SetUnread updates the badge without touching expansion state.
func (h *Head) SetUnread(n int) {
	h.Unread = n
}

// Panel returns the open sub-panel and its target message id, if any.
func (h *Head) Panel() (Panel, string) {
	return h.panel, h.panelTarget
}

// OpenMenu opens the three-dot menu for one message, closing any other panel.
func (h *Head) OpenMenu(messageID string) {
	h.setPanel(PanelMenu, messageID)
}

// OpenConfirmDelete opens the delete confirmation for one message.
func (h *Head) OpenConfirmDelete(messageID string) {
	h.setPanel(PanelConfirmDelete, messageID)
}

// BeginEdit starts inline editing of one message.
func (h *Head) BeginEdit(messageID string) {
	h.setPanel(PanelEdit, messageID)
}

// ToggleEmoji opens or closes the emoji picker.
func (h *Head) ToggleEmoji() {
	if h.panel == PanelEmoji {
		h.ClosePanel()
		return
	}
	h.setPanel(PanelEmoji, "")
}

// ClosePanel closes whatever sub-panel is open. Any outside click routes here.
func (h *Head) ClosePanel() {
	h.panel = PanelNone
	h.panelTarget = ""
}

func (h *Head) setPanel(p Panel, target string) {
	if !h.Expanded {
		return
	}
	h.panel = p
	h.panelTarget = target
}

// StartSearch enters search mode over the current window.
func (h *Head) StartSearch(query string) {
	if !h.Expanded {
		return
	}
	h.search = NewSearch(query, h.Messages)
}

// Search returns the active search state, nil when search mode is off.
func (h *Head) Search() *Search {
	return h.search
}

// EndSearch leaves search mode.
func (h *Head) EndSearch() {
	h.search = nil
}

// ApplySnapshot installs a confirmed message window, reconciles the pending
// queue against it, rebuilds any active search keeping the cursor position,
// and drops panel targets that no longer resolve to a visible message.
func (h *Head) ApplySnapshot(messages []Message) {
	h.Messages = messages
	h.Pending.Reconcile(messages)

	if h.search != nil {
		prev := h.search
		h.search = NewSearch(prev.Query, h.Messages)
		h.search.SetCursor(prev.CursorIndex())
	}

	if h.panelTarget != "" && !h.hasVisibleMessage(h.panelTarget) {
		h.ClosePanel()
	}
}

// Visible returns the confirmed messages that should render: tombstones are
// excluded, archival never reaches the live window.
func (h *Head) Visible() []Message {
	out := make([]Message, 0, len(h.Messages))
	for _, m := range h.Messages {
		if m.Deleted() {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (h *Head) hasVisibleMessage(id string) bool {
	for _, m := range h.Messages {
		if m.ID == id && !m.Deleted() {
			return true
		}
	}
	return false
}

// clamp keeps p within the viewport, leaving room for the head itself and the
// reserved sidebar region.
func clamp(p Position, vp Viewport) Position {
	maxX := vp.Width - HeadWidth - SidebarReserve
	maxY := vp.Height - HeadHeight

	if maxX < 0 {
		maxX = 0
	}
	if maxY < 0 {
		maxY = 0
	}

	if p.X < 0 {
		p.X = 0
	} else if p.X > maxX {
		p.X = maxX
	}

	if p.Y < 0 {
		p.Y = 0
	} else if p.Y > maxY {
		p.Y = maxY
	}

	return p
}
