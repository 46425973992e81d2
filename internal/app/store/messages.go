/*
Package store implements the document-store collaborator over PostgreSQL.

This file covers the message collection: the live subscription window,
backward and archived pagination, idempotent sends keyed on correlation id,
edit/tombstone writes, set-union reactions, and read-through marking.
*/
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"seotracker/internal/app/chat"
	"seotracker/internal/pkg/errs"
	"seotracker/internal/pkg/randx"
)

const messageColumns = "id, conversation_id, sender_id, text, created_at, edited, reactions, read_by, correlation_id, state"

// Subscribe registers a live-window subscriber and delivers the initial
// snapshot synchronously. The window is re-delivered in full on every change.
func (s *Store) Subscribe(ctx context.Context, conversationID string, limit int, fn func(chat.Snapshot)) (chat.Unsubscribe, error) {
	messages, err := s.liveWindow(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	if s.msgSubs[conversationID] == nil {
		s.msgSubs[conversationID] = make(map[int]*messageSub)
	}
	s.msgSubs[conversationID][id] = &messageSub{limit: limit, fn: fn}
	s.mu.Unlock()

	fn(chat.Snapshot{ConversationID: conversationID, Messages: messages})

	return func() {
		s.mu.Lock()
		delete(s.msgSubs[conversationID], id)
		s.mu.Unlock()
	}, nil
}

// FetchOlder returns up to limit active messages strictly older than before,
// oldest to newest.
func (s *Store) FetchOlder(ctx context.Context, conversationID string, before chat.Message, limit int) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx, `
		select `+messageColumns+`
		from messages
		where conversation_id = $1 and state = 'active'
		  and (created_at, id) < ($2, $3)
		order by created_at desc, id desc
		limit $4`,
		conversationID, before.CreatedAt, before.ID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query older messages: %w", err)
	}

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	reverse(messages)
	return messages, nil
}

// FetchArchived returns up to limit messages beyond the retention window,
// newest first. The archived tier is fetched on demand only, never subscribed.
func (s *Store) FetchArchived(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx, `
		select `+messageColumns+`
		from messages
		where conversation_id = $1 and state = 'archived'
		order by created_at desc, id desc
		limit $2`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived messages: %w", err)
	}

	return collectMessages(rows)
}

// Send inserts a new message and bumps the recipient's unread counter.
// Idempotent on (conversation, correlation id): a retried send with the same
// correlation id inserts nothing and bumps nothing.
func (s *Store) Send(ctx context.Context, conversationID, senderID, text, correlationID string) error {
	if text == "" {
		return errs.NewError(errs.ErrMessageContentEmpty)
	}
	if len(text) > chat.MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin send transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		insert into messages (id, conversation_id, sender_id, text, correlation_id)
		values ($1, $2, $3, $4, $5)
		on conflict (conversation_id, correlation_id) where correlation_id <> '' do nothing`,
		randx.MessageID(), conversationID, senderID, text, correlationID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if tag.RowsAffected() > 0 {
		_, err = tx.Exec(ctx, `
			update conversations
			set unread = jsonb_set(
				unread,
				array[case when participant_a = $2 then participant_b else participant_a end],
				to_jsonb(coalesce((unread ->> (case when participant_a = $2 then participant_b else participant_a end))::int, 0) + 1)
			)
			where id = $1`,
			conversationID, senderID,
		)
		if err != nil {
			return fmt.Errorf("failed to bump unread counter: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit send: %w", err)
	}

	s.notifyConversation(ctx, conversationID)
	return nil
}

// Edit replaces the text of an active message and marks it edited.
func (s *Store) Edit(ctx context.Context, conversationID, messageID, newText string) error {
	if newText == "" {
		return errs.NewError(errs.ErrMessageContentEmpty)
	}
	if len(newText) > chat.MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	tag, err := s.pool.Exec(ctx, `
		update messages set text = $3, edited = true
		where conversation_id = $1 and id = $2 and state = 'active'`,
		conversationID, messageID, newText,
	)
	if err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewError(errs.ErrMessageNotFound)
	}

	s.notifyConversation(ctx, conversationID)
	return nil
}

// Delete tombstones the message: the id survives, the text does not, and the
// row drops out of render. Server-authoritative, so the text is gone from the
// live payload as well, not merely hidden client-side.
func (s *Store) Delete(ctx context.Context, conversationID, messageID string) error {
	tag, err := s.pool.Exec(ctx, `
		update messages set state = 'deleted', text = ''
		where conversation_id = $1 and id = $2 and state <> 'deleted'`,
		conversationID, messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewError(errs.ErrMessageNotFound)
	}

	s.notifyConversation(ctx, conversationID)
	return nil
}

// AddReaction appends userID to the reacting set for emoji. The single
// guarded UPDATE gives set-union semantics: concurrent reactors on the same
// message and emoji cannot lose each other's entries.
func (s *Store) AddReaction(ctx context.Context, conversationID, messageID, emoji, userID string) error {
	_, err := s.pool.Exec(ctx, `
		update messages
		set reactions = jsonb_set(
			reactions,
			array[$3],
			coalesce(reactions -> $3, '[]'::jsonb) || to_jsonb($4::text)
		)
		where conversation_id = $1 and id = $2
		  and not coalesce(reactions -> $3, '[]'::jsonb) ? $4`,
		conversationID, messageID, emoji, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}

	s.notifyConversation(ctx, conversationID)
	return nil
}

// RemoveReaction drops userID from the reacting set for emoji.
func (s *Store) RemoveReaction(ctx context.Context, conversationID, messageID, emoji, userID string) error {
	_, err := s.pool.Exec(ctx, `
		update messages
		set reactions = jsonb_set(
			reactions,
			array[$3],
			coalesce(reactions -> $3, '[]'::jsonb) - $4
		)
		where conversation_id = $1 and id = $2`,
		conversationID, messageID, emoji, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}

	s.notifyConversation(ctx, conversationID)
	return nil
}

// MarkRead zeroes userID's unread counter and appends userID to readBy on
// every message from the other side they had not read yet.
func (s *Store) MarkRead(ctx context.Context, conversationID, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin markRead transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		update conversations
		set unread = jsonb_set(unread, array[$2], '0'::jsonb)
		where id = $1`,
		conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear unread counter: %w", err)
	}

	_, err = tx.Exec(ctx, `
		update messages
		set read_by = read_by || to_jsonb($2::text)
		where conversation_id = $1 and sender_id <> $2
		  and state <> 'deleted' and not read_by ? $2`,
		conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit markRead: %w", err)
	}

	s.notifyConversation(ctx, conversationID)
	return nil
}

// liveWindow queries the most recent limit active messages, oldest to newest.
func (s *Store) liveWindow(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx, `
		select `+messageColumns+`
		from messages
		where conversation_id = $1 and state = 'active'
		order by created_at desc, id desc
		limit $2`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query live window: %w", err)
	}

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	reverse(messages)
	return messages, nil
}

func collectMessages(rows pgx.Rows) ([]chat.Message, error) {
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var m chat.Message
		err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.Text,
			&m.CreatedAt,
			&m.Edited,
			&m.Reactions,
			&m.ReadBy,
			&m.CorrelationID,
			&m.State,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func reverse(messages []chat.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
