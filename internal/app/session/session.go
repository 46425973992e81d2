/*
Package session binds one authenticated WebSocket connection to its presence
tracker and chat roster.

This file defines the Session itself: it owns the per-connection Tracker and
Roster, dispatches inbound events to them, and pushes roster and presence
snapshots back out through the client.
*/
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"seotracker/internal/app/chat"
	"seotracker/internal/app/presence"
	"seotracker/internal/app/user"
	"seotracker/internal/pkg/clockx"
	"seotracker/internal/pkg/logx"
)

// Store is the full collaborator surface a session needs.
type Store interface {
	chat.MessageStore
	chat.ConversationStore
	presence.Store

	// WatchPresence registers a watcher for all presence changes.
	WatchPresence(fn func(user.User)) chat.Unsubscribe
}

// Config carries the per-session tuning knobs.
type Config struct {
	Presence presence.Config
	Typing   chat.TypingConfig
}

// DefaultConfig returns the product defaults for both subsystems.
func DefaultConfig() Config {
	return Config{
		Presence: presence.DefaultConfig(),
		Typing:   chat.DefaultTypingConfig(),
	}
}

// Session is one signed-in browser connection: a WebSocket client, the user's
// presence tracker, and the chat-head roster, wired together for the lifetime
// of the connection.
type Session struct {
	user  user.User
	store Store

	client  *Client
	tracker *presence.Tracker
	roster  *chat.Roster

	cancel context.CancelFunc
	logger zerolog.Logger
}

// New constructs a Session over an upgraded WebSocket connection.
func New(store Store, clock clockx.Clock, cfg Config, u user.User, conn *websocket.Conn) *Session {
	sessionLogger := logx.Logger().With().
		Str("component", "Session").
		Str("user_id", u.ID).
		Logger()

	s := &Session{
		user:   u,
		store:  store,
		logger: sessionLogger,
	}

	s.client = newClient(conn, s)
	s.tracker = presence.NewTracker(store, clock, cfg.Presence, u.ID)
	s.roster = chat.NewRoster(u.ID, store, store, clock, cfg.Typing, s.pushRoster)

	return s
}

// Run drives the session until the connection drops or ctx is cancelled. It
// blocks in the read pump; everything else runs on session goroutines torn
// down with it.
func (s *Session) Run(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	unwatch := s.store.WatchPresence(s.pushPresence)
	defer unwatch()

	go s.tracker.Run(ctx)
	go s.roster.Run(ctx)
	go s.client.writePump()

	s.logger.Info().Msg("Session started.")

	s.client.readPump()

	s.logger.Info().Msg("Session finished.")
}

// shutdown cancels the session's goroutines. Called from the read pump's
// cleanup path and from Kick.
func (s *Session) shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.roster.Stop()
}

// Kick closes the connection with the replaced-session close code and tears
// the session down. Used when a newer connection takes over the user.
func (s *Session) Kick(reason string) {
	s.client.kick(reason)
	s.shutdown()
}

// UserID returns the session owner's id.
func (s *Session) UserID() string {
	return s.user.ID
}

// pushRoster serializes a roster snapshot to the browser. Called by the
// roster loop after every applied event.
func (s *Session) pushRoster(v chat.View) {
	if err := s.client.sendEvent(EventRoster, v); err != nil {
		s.logger.Debug().Err(err).Msg("Roster push dropped.")
	}
}

// pushPresence forwards presence changes of other users to the browser.
func (s *Session) pushPresence(u user.User) {
	if u.ID == s.user.ID {
		return
	}

	payload := PresencePayload{
		UserID: u.ID,
		Status: string(u.Status),
	}
	if !u.LastOnline.IsZero() {
		payload.LastOnline = u.LastOnline.UnixMilli()
	}

	if err := s.client.sendEvent(EventPresence, payload); err != nil {
		s.logger.Debug().Err(err).Str("peer_id", u.ID).Msg("Presence push dropped.")
	}
}

// handleInbound dispatches one inbound event frame. Every frame counts as
// user activity for the presence tracker.
func (s *Session) handleInbound(frame []byte) {
	activityCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	s.tracker.Activity(activityCtx)
	cancel()

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		s.logger.Warn().Err(err).Bytes("frame", frame).Msg("Client sent invalid JSON")
		return
	}

	switch env.Type {
	case EventActivity:
		// Already recorded above.

	case EventViewport:
		var p ViewportPayload
		if s.bind(env, &p) {
			s.roster.SetViewport(chat.Viewport{Width: p.Width, Height: p.Height})
		}

	case EventOpenConversation:
		var p OpenConversationPayload
		if s.bind(env, &p) {
			s.roster.OpenConversation(p.PeerID)
		}

	case EventCloseHead:
		var p HeadPayload
		if s.bind(env, &p) {
			s.roster.CloseHead(p.ConversationID)
		}

	case EventPointerDown:
		var p PointerPayload
		if s.bind(env, &p) {
			s.roster.PointerDown(p.ConversationID, chat.Position{X: p.X, Y: p.Y})
		}

	case EventPointerMove:
		var p PointerPayload
		if s.bind(env, &p) {
			s.roster.PointerMove(p.ConversationID, chat.Position{X: p.X, Y: p.Y})
		}

	case EventPointerUp:
		var p HeadPayload
		if s.bind(env, &p) {
			s.roster.PointerUp(p.ConversationID)
		}

	case EventMarkRead:
		var p HeadPayload
		if s.bind(env, &p) {
			s.roster.MarkRead(p.ConversationID)
		}

	case EventDraft:
		var p TextPayload
		if s.bind(env, &p) {
			s.roster.Draft(p.ConversationID, p.Text)
		}

	case EventSend:
		var p TextPayload
		if s.bind(env, &p) {
			s.roster.Send(p.ConversationID, p.Text)
		}

	case EventRetrySend:
		var p RetryPayload
		if s.bind(env, &p) {
			s.roster.RetrySend(p.ConversationID, p.CorrelationID)
		}

	case EventEditMessage:
		var p EditPayload
		if s.bind(env, &p) {
			s.roster.EditMessage(p.ConversationID, p.MessageID, p.Text)
		}

	case EventDeleteMessage:
		var p MessagePayload
		if s.bind(env, &p) {
			s.roster.DeleteMessage(p.ConversationID, p.MessageID)
		}

	case EventReactionAdd:
		var p ReactionPayload
		if s.bind(env, &p) {
			s.roster.AddReaction(p.ConversationID, p.MessageID, p.Emoji)
		}

	case EventReactionRemove:
		var p ReactionPayload
		if s.bind(env, &p) {
			s.roster.RemoveReaction(p.ConversationID, p.MessageID, p.Emoji)
		}

	case EventMenuOpen:
		var p MessagePayload
		if s.bind(env, &p) {
			s.roster.OpenMenu(p.ConversationID, p.MessageID)
		}

	case EventConfirmDeleteOpen:
		var p MessagePayload
		if s.bind(env, &p) {
			s.roster.OpenConfirmDelete(p.ConversationID, p.MessageID)
		}

	case EventEditBegin:
		var p MessagePayload
		if s.bind(env, &p) {
			s.roster.BeginEdit(p.ConversationID, p.MessageID)
		}

	case EventEmojiToggle:
		var p HeadPayload
		if s.bind(env, &p) {
			s.roster.ToggleEmoji(p.ConversationID)
		}

	case EventOutsideClick:
		var p HeadPayload
		if s.bind(env, &p) {
			s.roster.OutsideClick(p.ConversationID)
		}

	case EventSearchStart:
		var p SearchPayload
		if s.bind(env, &p) {
			s.roster.StartSearch(p.ConversationID, p.Query)
		}

	case EventSearchNext:
		var p HeadPayload
		if s.bind(env, &p) {
			s.roster.SearchNext(p.ConversationID)
		}

	case EventSearchPrev:
		var p HeadPayload
		if s.bind(env, &p) {
			s.roster.SearchPrev(p.ConversationID)
		}

	case EventSearchEnd:
		var p HeadPayload
		if s.bind(env, &p) {
			s.roster.EndSearch(p.ConversationID)
		}

	default:
		s.logger.Warn().Str("event_type", string(env.Type)).Msg("Client sent unsupported event type")
	}
}

// bind unmarshals the envelope payload into dst, logging malformed payloads.
func (s *Session) bind(env Envelope, dst any) bool {
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(env.Type)).Msg("Client sent invalid payload")
		return false
	}
	return true
}
