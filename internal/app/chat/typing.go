/*
Package chat contains the core logic for the direct-messaging overlay.

This file implements the typing-indicator coordinator: throttled writes of the
local user's typing flag on a conversation, with debounce, a minimum interval
between writes, and idle expiry back to false.
*/
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"seotracker/internal/pkg/clockx"
	"seotracker/internal/pkg/errs"
	"seotracker/internal/pkg/throttle"
)

// TypingConfig carries the coordinator's timing knobs. These are product
// constants surfaced as configuration.
type TypingConfig struct {
	// Debounce delays the first true write after the first keystroke.
	Debounce time.Duration

	// Interval is the floor between successive writes while typing continues.
	Interval time.Duration

	// Idle is the window without keystrokes after which false is written.
	Idle time.Duration
}

// DefaultTypingConfig mirrors the observed product behavior.
func DefaultTypingConfig() TypingConfig {
	return TypingConfig{
		Debounce: 500 * time.Millisecond,
		Interval: 3 * time.Second,
		Idle:     2 * time.Second,
	}
}

// TypingCoordinator throttles typing-flag writes for one conversation.
// Driven from the roster loop: Draft on keystrokes, Flush on the loop tick,
// Close on head teardown. Write errors are swallowed; typing is non-critical.
type TypingCoordinator struct {
	conversationID string
	selfID         string
	store          ConversationStore
	gate           *throttle.Gate
	logger         zerolog.Logger
}

// NewTypingCoordinator constructs a coordinator for one conversation.
func NewTypingCoordinator(store ConversationStore, clock clockx.Clock, cfg TypingConfig, conversationID, selfID string, logger zerolog.Logger) *TypingCoordinator {
	return &TypingCoordinator{
		conversationID: conversationID,
		selfID:         selfID,
		store:          store,
		gate:           throttle.NewGate(clock, cfg.Debounce, cfg.Interval, cfg.Idle),
		logger:         logger.With().Str("conversation_id", conversationID).Logger(),
	}
}

// Draft records the current draft text. Non-empty text counts as a typing
// signal; emptying the draft clears the desired flag.
func (t *TypingCoordinator) Draft(text string) {
	if text == "" {
		t.gate.Clear()
		return
	}
	t.gate.Signal()
}

// Flush evaluates the gate and issues a merge-write when one is due.
func (t *TypingCoordinator) Flush(ctx context.Context) {
	value, write := t.gate.Tick()
	if !write {
		return
	}
	t.write(ctx, value)
}

// Close best-effort clears the remote flag on unmount or conversation switch.
func (t *TypingCoordinator) Close(ctx context.Context) {
	t.gate.Clear()
	if _, write := t.gate.Tick(); write {
		t.write(ctx, false)
	}
}

func (t *TypingCoordinator) write(ctx context.Context, typing bool) {
	err := t.store.SetTyping(ctx, t.conversationID, t.selfID, typing)
	if err == nil {
		return
	}

	// Permission errors are expected during sign-out races and must not
	// surface as visible failures.
	var customErr *errs.CustomError
	if errors.As(err, &customErr) && customErr.Code == errs.ErrPermissionDenied {
		return
	}

	t.logger.Debug().Err(err).Bool("typing", typing).Msg("Typing flag write dropped.")
}
