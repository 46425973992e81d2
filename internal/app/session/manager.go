/*
Package session binds one authenticated WebSocket connection to its presence
tracker and chat roster.

This file defines the Manager, the registry of active sessions. Each user has
at most one live session: a new connection for the same user kicks the old
one with the replaced-session close code.
*/
package session

import (
	"sync"

	"github.com/rs/zerolog"

	"seotracker/internal/pkg/logx"
)

// Manager tracks the active session per user.
type Manager struct {
	// sessions stores the live Session per user id.
	sessions map[string]*Session

	// mu protects concurrent access to the sessions map.
	mu sync.Mutex

	// structured logger with Manager context.
	logger zerolog.Logger
}

// NewManager constructs and returns a new Manager instance.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   logx.Logger().With().Str("component", "SessionManager").Logger(),
	}
}

// Attach registers the session as the user's active one. An existing session
// for the same user is kicked first.
func (m *Manager) Attach(s *Session) {
	m.mu.Lock()
	old := m.sessions[s.UserID()]
	m.sessions[s.UserID()] = s
	m.mu.Unlock()

	if old != nil {
		m.logger.Info().Str("user_id", s.UserID()).Msg("Replacing existing session for user.")
		old.Kick("session replaced by a newer connection")
	}
}

// Detach removes the session from the registry if it is still the active one.
// A session that was already replaced leaves the newer entry untouched.
func (m *Manager) Detach(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessions[s.UserID()] == s {
		delete(m.sessions, s.UserID())
	}
}

// Shutdown kicks every active session. Used during server shutdown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	active := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		active = append(active, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range active {
		s.Kick("server shutting down")
	}

	m.logger.Info().Int("kicked", len(active)).Msg("Session manager shutdown complete.")
}
