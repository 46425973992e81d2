/*
Package user contains core data structures related to user identity and presence.

It defines the basic representation of a user within the tracker (the User
struct) together with the online/away/offline presence status written by the
presence tracker and read by every peer.
*/
package user

import "time"

// Status represents a user's presence state.
type Status string

const (
	// StatusOnline means the user has an active session with recent activity.
	StatusOnline Status = "online"

	// StatusAway means the session is alive but has been idle past the away threshold.
	StatusAway Status = "away"

	// StatusOffline means the session ended, or a staleness sweep downgraded the user.
	StatusOffline Status = "offline"
)

// Valid reports whether s is one of the three known presence states.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusOffline:
		return true
	}
	return false
}

// User represents a chat participant together with their presence fields.
// Fields use JSON tags for serialization in WebSocket snapshots.
type User struct {

	// ID is the unique identifier for the user.
	ID string `json:"id"`

	// DisplayName is the name shown on chat heads and message rows.
	DisplayName string `json:"displayName"`

	// Email is the account email. Not rendered by the chat overlay but kept
	// for parity with the account profile.
	Email string `json:"email,omitempty"`

	// Avatar is the object key for the user's avatar image, if one was uploaded.
	Avatar string `json:"avatar,omitempty"`

	// Status is the user's presence state.
	Status Status `json:"status"`

	// LastActivity is the last time the user's session observed activity.
	LastActivity time.Time `json:"lastActivity"`

	// LastOnline is the last time the user was seen online before going offline.
	LastOnline time.Time `json:"lastOnline"`
}

// StaleOnline reports whether the user still claims to be online even though
// their last activity is older than threshold at the given instant. Observers
// may unilaterally downgrade such users to offline; the check is idempotent
// and safe for independent observers to race on.
func (u User) StaleOnline(now time.Time, threshold time.Duration) bool {
	return u.Status == StatusOnline && now.Sub(u.LastActivity) >= threshold
}

// Displayed returns the status peers should render for this user, applying
// the staleness downgrade without mutating stored state.
func (u User) Displayed(now time.Time, threshold time.Duration) Status {
	if u.StaleOnline(now, threshold) {
		return StatusOffline
	}
	return u.Status
}
