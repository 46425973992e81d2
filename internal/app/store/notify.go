/*
Package store implements the document-store collaborator over PostgreSQL.

This file contains the LISTEN/NOTIFY plumbing: mutations emit a notification
carrying the affected document id, and the listener re-queries and fans the
fresh snapshot out to every registered subscriber. Fan-out works across
processes because the round trip goes through Postgres, not an in-memory bus.
*/
package store

import (
	"context"

	"seotracker/internal/app/chat"
	"seotracker/internal/app/user"
)

// Listen acquires a dedicated connection and blocks delivering notifications
// until ctx is cancelled. It must be running for subscriptions to receive
// anything beyond their initial snapshot.
func (s *Store) Listen(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	for _, channel := range []string{chatChannel, presenceChannel} {
		if _, err := conn.Exec(ctx, "listen "+channel); err != nil {
			return err
		}
	}

	s.logger.Info().Msg("Notification listener started.")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info().Msg("Notification listener stopping.")
				return nil
			}
			return err
		}

		switch notification.Channel {
		case chatChannel:
			s.fanoutConversation(ctx, notification.Payload)
		case presenceChannel:
			s.fanoutPresence(ctx, notification.Payload)
		}
	}
}

// notifyConversation emits a change event for the conversation document.
func (s *Store) notifyConversation(ctx context.Context, conversationID string) {
	if _, err := s.pool.Exec(ctx, "select pg_notify($1, $2)", chatChannel, conversationID); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Change notification dropped.")
	}
}

// notifyPresence emits a change event for the user's presence document.
func (s *Store) notifyPresence(ctx context.Context, userID string) {
	if _, err := s.pool.Exec(ctx, "select pg_notify($1, $2)", presenceChannel, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Presence notification dropped.")
	}
}

// fanoutConversation re-delivers snapshots to the conversation's message
// subscribers and to the conversation-list subscribers of both participants.
func (s *Store) fanoutConversation(ctx context.Context, conversationID string) {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Fan-out skipped: conversation load failed.")
		return
	}

	s.mu.Lock()
	subs := make([]*messageSub, 0, len(s.msgSubs[conversationID]))
	for _, sub := range s.msgSubs[conversationID] {
		subs = append(subs, sub)
	}
	listFns := make(map[string][]func([]chat.Conversation))
	for _, participant := range conv.Participants {
		for _, fn := range s.convSubs[participant] {
			listFns[participant] = append(listFns[participant], fn)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		messages, err := s.liveWindow(ctx, conversationID, sub.limit)
		if err != nil {
			s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Snapshot query failed during fan-out.")
			continue
		}
		sub.fn(chat.Snapshot{ConversationID: conversationID, Messages: messages})
	}

	for participant, fns := range listFns {
		convs, err := s.conversationsFor(ctx, participant)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", participant).Msg("Conversation list query failed during fan-out.")
			continue
		}
		for _, fn := range fns {
			fn(convs)
		}
	}
}

// fanoutPresence re-delivers the user document to presence watchers.
func (s *Store) fanoutPresence(ctx context.Context, userID string) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Presence fan-out skipped: user load failed.")
		return
	}

	s.mu.Lock()
	fns := make([]func(user.User), 0, len(s.presSubs))
	for _, fn := range s.presSubs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}
