/*
Package store implements the document-store collaborator over PostgreSQL.

This file covers conversation documents: idempotent open per unordered
participant pair, the per-user conversation-list subscription, and typing-flag
merge writes.
*/
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seotracker/internal/app/chat"
	"seotracker/internal/pkg/errs"
)

const conversationColumns = "id, participant_a, participant_b, unread, typing, info"

// Open returns the conversation for the unordered pair (userA, userB),
// creating it on first contact. The pair_key unique constraint guarantees
// exactly one conversation per pair no matter how many callers race.
func (s *Store) Open(ctx context.Context, userA, userB string) (chat.Conversation, error) {
	pair := chat.CanonicalPair(userA, userB)
	pairKey := chat.PairKey(userA, userB)

	info, err := s.participantInfo(ctx, pair)
	if err != nil {
		return chat.Conversation{}, err
	}

	_, err = s.pool.Exec(ctx, `
		insert into conversations (id, pair_key, participant_a, participant_b, info)
		values ($1, $2, $3, $4, $5)
		on conflict (pair_key) do update set info = excluded.info`,
		uuid.New().String(), pairKey, pair[0], pair[1], info,
	)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("failed to open conversation: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		"select "+conversationColumns+" from conversations where pair_key = $1", pairKey)

	return scanConversation(row)
}

// SubscribeAll registers a conversation-list subscriber for userID and
// delivers the initial snapshot synchronously.
func (s *Store) SubscribeAll(ctx context.Context, userID string, fn func([]chat.Conversation)) (chat.Unsubscribe, error) {
	convs, err := s.conversationsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	if s.convSubs[userID] == nil {
		s.convSubs[userID] = make(map[int]func([]chat.Conversation))
	}
	s.convSubs[userID][id] = fn
	s.mu.Unlock()

	fn(convs)

	return func() {
		s.mu.Lock()
		delete(s.convSubs[userID], id)
		s.mu.Unlock()
	}, nil
}

// SetTyping merge-writes the user's typing flag on the conversation. Only the
// one jsonb key changes, so concurrent writers on the peer's flag are safe.
func (s *Store) SetTyping(ctx context.Context, conversationID, userID string, typing bool) error {
	_, err := s.pool.Exec(ctx, `
		update conversations
		set typing = jsonb_set(typing, array[$2], to_jsonb($3::boolean))
		where id = $1`,
		conversationID, userID, typing,
	)
	if err != nil {
		return fmt.Errorf("failed to set typing flag: %w", err)
	}

	s.notifyConversation(ctx, conversationID)
	return nil
}

// GetConversation loads one conversation document by id.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	return s.getConversation(ctx, conversationID)
}

// getConversation loads one conversation document.
func (s *Store) getConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	row := s.pool.QueryRow(ctx,
		"select "+conversationColumns+" from conversations where id = $1", conversationID)

	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.Conversation{}, errs.NewError(errs.ErrConversationNotFound)
	}
	return conv, err
}

// conversationsFor loads every conversation involving userID.
func (s *Store) conversationsFor(ctx context.Context, userID string) ([]chat.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		select `+conversationColumns+`
		from conversations
		where participant_a = $1 or participant_b = $1
		order by created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []chat.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}

	return convs, rows.Err()
}

// participantInfo denormalizes both participants' display info for offline
// rendering on chat heads.
func (s *Store) participantInfo(ctx context.Context, pair [2]string) (map[string]chat.Participant, error) {
	rows, err := s.pool.Query(ctx,
		"select id, display_name, avatar from users where id = any($1)",
		[]string{pair[0], pair[1]},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	info := make(map[string]chat.Participant, 2)
	for rows.Next() {
		var p chat.Participant
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Avatar); err != nil {
			return nil, err
		}
		info[p.ID] = p
	}

	return info, rows.Err()
}

func scanConversation(row pgx.Row) (chat.Conversation, error) {
	var conv chat.Conversation
	err := row.Scan(
		&conv.ID,
		&conv.Participants[0],
		&conv.Participants[1],
		&conv.Unread,
		&conv.Typing,
		&conv.Info,
	)
	if err != nil {
		return chat.Conversation{}, err
	}
	return conv, nil
}
