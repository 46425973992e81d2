/*
Package chat contains the core logic for the direct-messaging overlay.

This file defines the Roster, the supervisor for the set of open chat heads of
one signed-in user. It subscribes to all of the user's conversations,
auto-opens collapsed heads on inbound unread messages, auto-closes them on
read-through, and funnels every UI command and store snapshot through a single
event loop so state updates apply in arrival order.
*/
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"seotracker/internal/pkg/clockx"
	"seotracker/internal/pkg/logx"
	"seotracker/internal/pkg/randx"
)

const (
	// eventChannelBuffer bounds the roster's inbound event queue.
	eventChannelBuffer = 256

	// DefaultLiveWindow is the subscription window size per conversation.
	DefaultLiveWindow = 50

	// typingFlushInterval is how often typing gates are polled for due writes.
	typingFlushInterval = 250 * time.Millisecond
)

// rosterEvent is a unit of work applied on the roster loop. Events run in
// arrival order, so a slow async resolution posted after a newer snapshot
// observes the newer state (last-writer-by-event-order, not last-call-issued).
type rosterEvent func(ctx context.Context)

// Roster supervises the chat heads of one signed-in user.
type Roster struct {
	selfID string

	messages      MessageStore
	conversations ConversationStore
	clock         clockx.Clock
	typingCfg     TypingConfig
	liveWindow    int

	viewport Viewport
	heads    map[string]*Head
	convs    map[string]Conversation
	typing   map[string]*TypingCoordinator
	subs     map[string]Unsubscribe

	events chan rosterEvent
	stop   chan struct{}
	wg     sync.WaitGroup

	// notify receives a full render snapshot after every applied event.
	notify func(View)

	logger zerolog.Logger
}

// NewRoster constructs a Roster for the given user. notify may be nil.
func NewRoster(selfID string, messages MessageStore, conversations ConversationStore, clock clockx.Clock, typingCfg TypingConfig, notify func(View)) *Roster {
	rosterLogger := logx.Logger().With().
		Str("component", "Roster").
		Str("user_id", selfID).
		Logger()

	return &Roster{
		selfID:        selfID,
		messages:      messages,
		conversations: conversations,
		clock:         clock,
		typingCfg:     typingCfg,
		liveWindow:    DefaultLiveWindow,
		viewport:      Viewport{Width: 1280, Height: 800},
		heads:         make(map[string]*Head),
		convs:         make(map[string]Conversation),
		typing:        make(map[string]*TypingCoordinator),
		subs:          make(map[string]Unsubscribe),
		events:        make(chan rosterEvent, eventChannelBuffer),
		stop:          make(chan struct{}),
		notify:        notify,
		logger:        rosterLogger,
	}
}

// Run starts the roster event loop. It subscribes to the user's conversations
// and blocks until Stop is called or ctx is cancelled. All subscriptions and
// typing flags are torn down on exit.
func (r *Roster) Run(ctx context.Context) {
	unsubAll, err := r.conversations.SubscribeAll(ctx, r.selfID, func(convs []Conversation) {
		r.post(func(ctx context.Context) {
			r.applyConversations(ctx, convs)
		})
	})
	if err != nil {
		r.logger.Error().Err(err).Msg("Conversation subscription failed. Roster loop not started.")
		return
	}

	ticker := time.NewTicker(typingFlushInterval)

	defer func() {
		ticker.Stop()
		unsubAll()

		// Detached context: teardown runs after the session context is
		// cancelled, and the final typing=false writes still have to land.
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		for id := range r.heads {
			r.removeHead(closeCtx, id)
		}
		cancel()

		r.logger.Info().Msg("Roster loop finished.")
	}()

	r.logger.Info().Msg("Roster loop started.")

	for {
		select {
		case ev := <-r.events:
			ev(ctx)
			r.publish()

		case <-ticker.C:
			for _, tc := range r.typing {
				tc.Flush(ctx)
			}

		case <-r.stop:
			return

		case <-ctx.Done():
			return
		}
	}
}

// Stop signals the roster loop to terminate.
func (r *Roster) Stop() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
}

// post queues an event for the loop. Posting never blocks: when the buffer is
// full the event is dropped with a warning, matching the rest of the system's
// best-effort delivery.
func (r *Roster) post(fn rosterEvent) {
	select {
	case <-r.stop:
	case r.events <- fn:
	default:
		r.logger.Warn().Msg("Roster event queue full, dropping event.")
	}
}

// --- Commands (safe to call from any goroutine; applied on the loop) ---

// SetViewport records the browser window size used for drag clamping.
func (r *Roster) SetViewport(vp Viewport) {
	r.post(func(ctx context.Context) {
		r.viewport = vp
	})
}

// OpenConversation opens (or focuses) the conversation with peerID in
// expanded state. Idempotent: an already-open conversation is expanded and
// refocused rather than duplicated.
func (r *Roster) OpenConversation(peerID string) {
	r.post(func(ctx context.Context) {
		conv, err := r.conversations.Open(ctx, r.selfID, peerID)
		if err != nil {
			r.logger.Error().Err(err).Str("peer_id", peerID).Msg("Failed to open conversation.")
			return
		}

		r.convs[conv.ID] = conv

		head, ok := r.heads[conv.ID]
		if !ok {
			head = r.createHead(ctx, conv)
			if head == nil {
				return
			}
		}

		if head.Expand() {
			r.markRead(ctx, conv.ID)
		}
	})
}

// CloseHead removes the head for the conversation entirely.
func (r *Roster) CloseHead(conversationID string) {
	r.post(func(ctx context.Context) {
		r.removeHead(ctx, conversationID)
	})
}

// PointerDown forwards a press on the head bubble.
func (r *Roster) PointerDown(conversationID string, p Position) {
	r.post(func(ctx context.Context) {
		if head, ok := r.heads[conversationID]; ok {
			head.PointerDown(p)
		}
	})
}

// PointerMove forwards pointer motion during a press.
func (r *Roster) PointerMove(conversationID string, p Position) {
	r.post(func(ctx context.Context) {
		if head, ok := r.heads[conversationID]; ok {
			head.PointerMove(p, r.viewport)
		}
	})
}

// PointerUp ends a press-release cycle, toggling the head if it was a click.
func (r *Roster) PointerUp(conversationID string) {
	r.post(func(ctx context.Context) {
		head, ok := r.heads[conversationID]
		if !ok {
			return
		}

		toggled, markRead := head.PointerUp()
		if markRead {
			r.markRead(ctx, conversationID)
		}

		// Collapsing a fully read head closes it.
		if toggled && !head.Expanded && head.Unread == 0 {
			r.removeHead(ctx, conversationID)
		}
	})
}

// Draft records the local user's draft text, feeding the typing gate.
func (r *Roster) Draft(conversationID, text string) {
	r.post(func(ctx context.Context) {
		if tc, ok := r.typing[conversationID]; ok {
			tc.Draft(text)
		}
	})
}

// Send queues an optimistic entry and writes the message asynchronously.
func (r *Roster) Send(conversationID, text string) {
	r.post(func(ctx context.Context) {
		head, ok := r.heads[conversationID]
		if !ok || text == "" || len(text) > MaxContentBytes {
			return
		}

		pending := PendingMessage{
			CorrelationID: randx.CorrelationID(),
			SenderID:      r.selfID,
			Text:          text,
			QueuedAt:      r.clock.Now(),
		}
		head.Pending.Enqueue(pending)

		if tc, ok := r.typing[conversationID]; ok {
			tc.Draft("")
		}

		r.dispatchSend(ctx, conversationID, pending)
	})
}

// RetrySend re-issues a failed send with its original correlation id and text.
func (r *Roster) RetrySend(conversationID, correlationID string) {
	r.post(func(ctx context.Context) {
		head, ok := r.heads[conversationID]
		if !ok {
			return
		}

		pending, ok := head.Pending.Retry(correlationID)
		if !ok {
			return
		}

		r.dispatchSend(ctx, conversationID, pending)
	})
}

// EditMessage replaces a message's text and closes the edit panel.
func (r *Roster) EditMessage(conversationID, messageID, newText string) {
	r.post(func(ctx context.Context) {
		head, ok := r.heads[conversationID]
		if !ok || newText == "" || len(newText) > MaxContentBytes {
			return
		}

		head.ClosePanel()

		if err := r.messages.Edit(ctx, conversationID, messageID, newText); err != nil {
			r.logger.Warn().Err(err).Str("message_id", messageID).Msg("Edit failed.")
		}
	})
}

// DeleteMessage tombstones a message after the confirmation panel.
func (r *Roster) DeleteMessage(conversationID, messageID string) {
	r.post(func(ctx context.Context) {
		head, ok := r.heads[conversationID]
		if !ok {
			return
		}

		head.ClosePanel()

		if err := r.messages.Delete(ctx, conversationID, messageID); err != nil {
			r.logger.Warn().Err(err).Str("message_id", messageID).Msg("Delete failed.")
		}
	})
}

// AddReaction adds the local user's reaction to a message.
func (r *Roster) AddReaction(conversationID, messageID, emoji string) {
	r.post(func(ctx context.Context) {
		if err := r.messages.AddReaction(ctx, conversationID, messageID, emoji, r.selfID); err != nil {
			r.logger.Warn().Err(err).Str("message_id", messageID).Msg("Reaction add failed.")
		}
	})
}

// RemoveReaction removes the local user's reaction from a message.
func (r *Roster) RemoveReaction(conversationID, messageID, emoji string) {
	r.post(func(ctx context.Context) {
		if err := r.messages.RemoveReaction(ctx, conversationID, messageID, emoji, r.selfID); err != nil {
			r.logger.Warn().Err(err).Str("message_id", messageID).Msg("Reaction remove failed.")
		}
	})
}

// MarkRead clears the unread state for the conversation explicitly.
func (r *Roster) MarkRead(conversationID string) {
	r.post(func(ctx context.Context) {
		r.markRead(ctx, conversationID)
	})
}

// OpenMenu opens the per-message three-dot menu.
func (r *Roster) OpenMenu(conversationID, messageID string) {
	r.headCommand(conversationID, func(h *Head) { h.OpenMenu(messageID) })
}

// OpenConfirmDelete opens the delete confirmation for a message.
func (r *Roster) OpenConfirmDelete(conversationID, messageID string) {
	r.headCommand(conversationID, func(h *Head) { h.OpenConfirmDelete(messageID) })
}

// BeginEdit starts inline editing of a message.
func (r *Roster) BeginEdit(conversationID, messageID string) {
	r.headCommand(conversationID, func(h *Head) { h.BeginEdit(messageID) })
}

// ToggleEmoji opens or closes the emoji picker.
func (r *Roster) ToggleEmoji(conversationID string) {
	r.headCommand(conversationID, func(h *Head) { h.ToggleEmoji() })
}

// OutsideClick closes any open sub-panel.
func (r *Roster) OutsideClick(conversationID string) {
	r.headCommand(conversationID, func(h *Head) { h.ClosePanel() })
}

// StartSearch enters in-window search mode.
func (r *Roster) StartSearch(conversationID, query string) {
	r.headCommand(conversationID, func(h *Head) { h.StartSearch(query) })
}

// SearchNext advances the search cursor.
func (r *Roster) SearchNext(conversationID string) {
	r.headCommand(conversationID, func(h *Head) {
		if s := h.Search(); s != nil {
			s.Next()
		}
	})
}

// SearchPrev moves the search cursor backwards.
func (r *Roster) SearchPrev(conversationID string) {
	r.headCommand(conversationID, func(h *Head) {
		if s := h.Search(); s != nil {
			s.Prev()
		}
	})
}

// EndSearch leaves search mode.
func (r *Roster) EndSearch(conversationID string) {
	r.headCommand(conversationID, func(h *Head) { h.EndSearch() })
}

func (r *Roster) headCommand(conversationID string, fn func(*Head)) {
	r.post(func(ctx context.Context) {
		if head, ok := r.heads[conversationID]; ok {
			fn(head)
		}
	})
}

// --- Loop internals ---

// applyConversations is the unread-driven auto-open/auto-close rule.
func (r *Roster) applyConversations(ctx context.Context, convs []Conversation) {
	for _, conv := range convs {
		if !conv.Has(r.selfID) {
			continue
		}

		r.convs[conv.ID] = conv
		unread := conv.UnreadFor(r.selfID)
		head, exists := r.heads[conv.ID]

		switch {
		case !exists && unread > 0:
			if head = r.createHead(ctx, conv); head != nil {
				head.SetUnread(unread)
			}

		case exists && head.Expanded:
			// Read-through: an expanded head absorbs inbound unread directly.
			head.PeerTyping = conv.PeerTyping(r.selfID)
			if unread > 0 {
				head.SetUnread(0)
				r.markRead(ctx, conv.ID)
			}

		case exists:
			head.PeerTyping = conv.PeerTyping(r.selfID)
			head.SetUnread(unread)
			if unread == 0 {
				r.removeHead(ctx, conv.ID)
			}
		}
	}
}

func (r *Roster) applySnapshot(s Snapshot) {
	if head, ok := r.heads[s.ConversationID]; ok {
		head.ApplySnapshot(s.Messages)
	}
}

// createHead builds a collapsed head at the lowest free stacking slot and
// wires up its message subscription and typing coordinator.
func (r *Roster) createHead(ctx context.Context, conv Conversation) *Head {
	slot := r.freeSlot()
	head := NewHead(conv.ID, conv.Peer(r.selfID), slot)
	head.PeerTyping = conv.PeerTyping(r.selfID)

	unsub, err := r.messages.Subscribe(ctx, conv.ID, r.liveWindow, func(s Snapshot) {
		r.post(func(context.Context) {
			r.applySnapshot(s)
		})
	})
	if err != nil {
		r.logger.Error().Err(err).Str("conversation_id", conv.ID).Msg("Message subscription failed. Head not created.")
		return nil
	}

	r.heads[conv.ID] = head
	r.subs[conv.ID] = unsub
	r.typing[conv.ID] = NewTypingCoordinator(r.conversations, r.clock, r.typingCfg, conv.ID, r.selfID, r.logger)

	r.logger.Info().
		Str("conversation_id", conv.ID).
		Int("slot", slot).
		Msg("Chat head created.")

	return head
}

func (r *Roster) removeHead(ctx context.Context, conversationID string) {
	if _, ok := r.heads[conversationID]; !ok {
		return
	}

	if unsub, ok := r.subs[conversationID]; ok {
		unsub()
		delete(r.subs, conversationID)
	}

	if tc, ok := r.typing[conversationID]; ok {
		tc.Close(ctx)
		delete(r.typing, conversationID)
	}

	delete(r.heads, conversationID)

	r.logger.Info().Str("conversation_id", conversationID).Msg("Chat head removed.")
}

func (r *Roster) freeSlot() int {
	used := make(map[int]bool, len(r.heads))
	for _, head := range r.heads {
		used[head.Slot] = true
	}

	slot := 0
	for used[slot] {
		slot++
	}
	return slot
}

// dispatchSend performs the store write off the loop and posts the outcome
// back as an event. A resolution arriving after teardown is discarded.
func (r *Roster) dispatchSend(ctx context.Context, conversationID string, pending PendingMessage) {
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		err := r.messages.Send(ctx, conversationID, r.selfID, pending.Text, pending.CorrelationID)

		r.post(func(context.Context) {
			head, ok := r.heads[conversationID]
			if !ok {
				return
			}

			if err != nil {
				r.logger.Warn().
					Err(err).
					Str("correlation_id", pending.CorrelationID).
					Msg("Send failed. Entry held for retry.")
				head.Pending.MarkFailed(pending.CorrelationID)
				return
			}

			head.Pending.MarkSent(pending.CorrelationID)
		})
	}()
}

// markRead issues the unread-clearing write off the loop, fire-and-forget.
func (r *Roster) markRead(ctx context.Context, conversationID string) {
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		if err := r.messages.MarkRead(ctx, conversationID, r.selfID); err != nil {
			r.logger.Debug().Err(err).Str("conversation_id", conversationID).Msg("MarkRead dropped.")
		}
	}()
}

func (r *Roster) publish() {
	if r.notify != nil {
		r.notify(r.view())
	}
}
