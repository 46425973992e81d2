package chat

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// typingWrite records one SetTyping call against the fake store.
type typingWrite struct {
	conversationID string
	userID         string
	typing         bool
}

// memStore is an in-memory stand-in for the document store. It delivers the
// initial snapshot synchronously on subscribe and fans out full re-deliveries
// on every mutation, matching the real store's contract.
type memStore struct {
	mu sync.Mutex

	convs    map[string]Conversation
	messages map[string][]Message
	nextID   int

	msgSubs  map[string]map[int]func(Snapshot)
	convSubs map[int]func([]Conversation)
	subSeq   int

	openCalls    int
	sendErr      error
	sentIDs      []string
	typingWrites []typingWrite
	markReads    []string
}

func newMemStore() *memStore {
	return &memStore{
		convs:    make(map[string]Conversation),
		messages: make(map[string][]Message),
		msgSubs:  make(map[string]map[int]func(Snapshot)),
		convSubs: make(map[int]func([]Conversation)),
	}
}

func (m *memStore) Open(ctx context.Context, userA, userB string) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.openCalls++

	key := PairKey(userA, userB)
	if conv, ok := m.convs[key]; ok {
		return conv, nil
	}

	pair := CanonicalPair(userA, userB)
	conv := Conversation{
		ID:           "conv-" + key,
		Participants: pair,
		Unread:       map[string]int{},
		Typing:       map[string]bool{},
		Info: map[string]Participant{
			pair[0]: {ID: pair[0], DisplayName: pair[0]},
			pair[1]: {ID: pair[1], DisplayName: pair[1]},
		},
	}
	m.convs[key] = conv
	return conv, nil
}

func (m *memStore) SubscribeAll(ctx context.Context, userID string, fn func([]Conversation)) (Unsubscribe, error) {
	m.mu.Lock()
	m.subSeq++
	id := m.subSeq
	m.convSubs[id] = fn
	convs := m.conversationsForLocked(userID)
	m.mu.Unlock()

	fn(convs)

	return func() {
		m.mu.Lock()
		delete(m.convSubs, id)
		m.mu.Unlock()
	}, nil
}

func (m *memStore) SetTyping(ctx context.Context, conversationID, userID string, typing bool) error {
	// The real store fails writes once the caller's context is gone.
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.typingWrites = append(m.typingWrites, typingWrite{conversationID, userID, typing})

	for key, conv := range m.convs {
		if conv.ID == conversationID {
			conv.Typing[userID] = typing
			m.convs[key] = conv
		}
	}
	m.fanoutConversationsLocked()
	return nil
}

func (m *memStore) Subscribe(ctx context.Context, conversationID string, limit int, fn func(Snapshot)) (Unsubscribe, error) {
	m.mu.Lock()
	m.subSeq++
	id := m.subSeq
	if m.msgSubs[conversationID] == nil {
		m.msgSubs[conversationID] = make(map[int]func(Snapshot))
	}
	m.msgSubs[conversationID][id] = fn
	snapshot := Snapshot{ConversationID: conversationID, Messages: m.messages[conversationID]}
	m.mu.Unlock()

	fn(snapshot)

	return func() {
		m.mu.Lock()
		delete(m.msgSubs[conversationID], id)
		m.mu.Unlock()
	}, nil
}

func (m *memStore) FetchOlder(ctx context.Context, conversationID string, before Message, limit int) ([]Message, error) {
	return nil, nil
}

func (m *memStore) FetchArchived(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	return nil, nil
}

func (m *memStore) Send(ctx context.Context, conversationID, senderID, text, correlationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}

	for _, existing := range m.messages[conversationID] {
		if existing.CorrelationID == correlationID {
			return nil
		}
	}

	m.nextID++
	msg := Message{
		ID:             fmt.Sprintf("m%d", m.nextID),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      time.Now(),
		CorrelationID:  correlationID,
		State:          StateActive,
	}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	m.sentIDs = append(m.sentIDs, correlationID)

	for key, conv := range m.convs {
		if conv.ID == conversationID {
			conv.Unread[conv.Other(senderID)]++
			m.convs[key] = conv
		}
	}

	m.fanoutMessagesLocked(conversationID)
	m.fanoutConversationsLocked()
	return nil
}

func (m *memStore) Edit(ctx context.Context, conversationID, messageID, newText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[conversationID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].Text = newText
			msgs[i].Edited = true
		}
	}
	m.fanoutMessagesLocked(conversationID)
	return nil
}

func (m *memStore) Delete(ctx context.Context, conversationID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[conversationID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].State = StateDeleted
			msgs[i].Text = ""
		}
	}
	m.fanoutMessagesLocked(conversationID)
	return nil
}

func (m *memStore) AddReaction(ctx context.Context, conversationID, messageID, emoji, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[conversationID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			if msgs[i].Reactions == nil {
				msgs[i].Reactions = make(map[string][]string)
			}
			msgs[i].Reactions[emoji] = AppendUnique(msgs[i].Reactions[emoji], userID)
		}
	}
	m.fanoutMessagesLocked(conversationID)
	return nil
}

func (m *memStore) RemoveReaction(ctx context.Context, conversationID, messageID, emoji, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[conversationID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].Reactions[emoji] = RemoveID(msgs[i].Reactions[emoji], userID)
		}
	}
	m.fanoutMessagesLocked(conversationID)
	return nil
}

func (m *memStore) MarkRead(ctx context.Context, conversationID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.markReads = append(m.markReads, conversationID)

	for key, conv := range m.convs {
		if conv.ID == conversationID {
			conv.Unread[userID] = 0
			m.convs[key] = conv
		}
	}
	m.fanoutConversationsLocked()
	return nil
}

// seedConversation installs a conversation document directly, bypassing Open.
func (m *memStore) seedConversation(conv Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[PairKey(conv.Participants[0], conv.Participants[1])] = conv
}

func (m *memStore) markReadCount(conversationID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, id := range m.markReads {
		if id == conversationID {
			count++
		}
	}
	return count
}

func (m *memStore) lastTypingWrite() (typingWrite, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.typingWrites) == 0 {
		return typingWrite{}, false
	}
	return m.typingWrites[len(m.typingWrites)-1], true
}

func (m *memStore) conversationsForLocked(userID string) []Conversation {
	var out []Conversation
	for _, conv := range m.convs {
		if conv.Has(userID) {
			out = append(out, conv)
		}
	}
	return out
}

func (m *memStore) fanoutConversationsLocked() {
	for _, fn := range m.convSubs {
		all := make([]Conversation, 0, len(m.convs))
		for _, conv := range m.convs {
			all = append(all, conv)
		}
		fn(all)
	}
}

func (m *memStore) fanoutMessagesLocked(conversationID string) {
	for _, fn := range m.msgSubs[conversationID] {
		fn(Snapshot{ConversationID: conversationID, Messages: m.messages[conversationID]})
	}
}
