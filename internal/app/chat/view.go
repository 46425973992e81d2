/*
Package chat contains the core logic for the direct-messaging overlay.

This file defines the render snapshot pushed to the browser after every roster
event: the full state of every open head, serialized in one payload.
*/
package chat

import "sort"

// SearchView is the serializable state of an active in-window search.
type SearchView struct {
	Query   string        `json:"query"`
	Matches []SearchMatch `json:"matches"`
	Cursor  int           `json:"cursor"`
	Count   int           `json:"count"`
}

// HeadView is the render state of one chat head.
type HeadView struct {
	ConversationID string           `json:"conversationId"`
	Peer           Participant      `json:"peer"`
	Unread         int              `json:"unread"`
	Expanded       bool             `json:"expanded"`
	Pos            Position         `json:"pos"`
	Dragging       bool             `json:"dragging"`
	Panel          Panel            `json:"panel"`
	PanelTarget    string           `json:"panelTarget,omitempty"`
	PeerTyping     bool             `json:"peerTyping"`
	Messages       []Message        `json:"messages"`
	Pending        []PendingMessage `json:"pending,omitempty"`
	Search         *SearchView      `json:"search,omitempty"`
}

// View is the full roster render snapshot, heads ordered by stacking slot.
type View struct {
	Heads []HeadView `json:"heads"`
}

func (r *Roster) view() View {
	heads := make([]HeadView, 0, len(r.heads))

	for _, head := range r.heads {
		hv := HeadView{
			ConversationID: head.ConversationID,
			Peer:           head.Peer,
			Unread:         head.Unread,
			Expanded:       head.Expanded,
			Pos:            head.Pos,
			Dragging:       head.Dragging(),
			PeerTyping:     head.PeerTyping,
			Messages:       head.Visible(),
			Pending:        head.Pending.Entries(),
		}

		hv.Panel, hv.PanelTarget = head.Panel()

		if s := head.Search(); s != nil {
			hv.Search = &SearchView{
				Query:   s.Query,
				Matches: s.Matches(),
				Cursor:  s.CursorIndex(),
				Count:   s.Count(),
			}
		}

		heads = append(heads, hv)
	}

	sort.Slice(heads, func(i, j int) bool {
		return r.heads[heads[i].ConversationID].Slot < r.heads[heads[j].ConversationID].Slot
	})

	return View{Heads: heads}
}
