// Package session implements the session random walk: the state machine
// that turns one scheduled session into an ordered event sequence, and the
// scheduler that spreads sessions across the run's date window.
package session

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Synthetic event names. Page-state events are named after their
// behavior-model state; these four mark the session lifecycle.
const (
	EventAppLaunch    = "AppLaunch"
	EventMainPageView = "MainPageView"
	EventDropOff      = "DropOff"
	EventReconnect    = "Reconnect"
)

// Property keys attached to generated events.
const (
	PropTimeSpentSec = "time_spent_sec"
	PropIsLoggedIn   = "is_logged_in"
	PropItemID       = "item_id"
	PropItemTitle    = "item_title"
	PropItemPrice    = "item_price"
	PropItemCategory = "item_category"
)

// Event is one generated log record. Events are immutable once emitted.
type Event struct {
	Name       string         `json:"event_name"`
	SessionID  string         `json:"session_id"`
	UserID     string         `json:"user_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Sequence   int            `json:"event_sequence"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ItemContext is the catalog item currently in view for a session. At most
// one is attached to a session at a time and it never crosses sessions.
type ItemContext struct {
	ID       string
	Title    string
	Price    float64
	Category string
}

// Session holds the mutable walk state for one generated session. It is
// created by the scheduler loop, consumed by the walker, and discarded once
// its events are appended to the run's log.
type Session struct {
	// ID is derived from the start date plus a random suffix. Uniqueness is
	// best effort; collisions are tolerated.
	ID string

	// StartTime anchors the session clock.
	StartTime time.Time

	// UserID is the selected user for this session.
	UserID string

	// LoggedIn is the session's current login flag. It starts from the
	// per-session login draw and flips on a successful login outcome.
	LoggedIn bool

	clock  time.Time
	seq    int
	item   *ItemContext
	events []Event
}

// NewSession creates a session anchored at start for the given user.
func NewSession(rng *rand.Rand, start time.Time, userID string, loggedIn bool) *Session {
	return &Session{
		ID:        fmt.Sprintf("s%s_%08d", start.Format("20060102"), rng.IntN(100000000)),
		StartTime: start,
		UserID:    userID,
		LoggedIn:  loggedIn,
		clock:     start,
	}
}

// advance moves the session clock forward by the given number of seconds.
func (s *Session) advance(seconds float64) {
	s.clock = s.clock.Add(time.Duration(seconds * float64(time.Second)))
}

// emit appends an event for the current clock and sequence position.
func (s *Session) emit(name string, properties map[string]any) {
	s.seq++
	s.events = append(s.events, Event{
		Name:       name,
		SessionID:  s.ID,
		UserID:     s.UserID,
		Timestamp:  s.clock,
		Sequence:   s.seq,
		Properties: properties,
	})
}

// Events returns the emitted event sequence.
func (s *Session) Events() []Event {
	return s.events
}
