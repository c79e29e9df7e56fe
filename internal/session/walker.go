package session

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/example/bookshop/tools/eventgen/internal/behavior"
)

// ErrInvalidWalkerConfig is returned when the walker configuration is invalid.
var ErrInvalidWalkerConfig = errors.New("session: invalid walker configuration")

// dropOffGapSeconds is the fixed gap between a page event and its DropOff.
const dropOffGapSeconds = 1.0

// reconnectExtraSeconds is added on top of the default delay before a
// Reconnect event.
const reconnectExtraSeconds = 5.0

// WalkerConfig configures the session walker.
type WalkerConfig struct {
	// Model is the behavior model driving transitions and delays.
	Model *behavior.Model

	// PickItem supplies the item context when the walk enters an item-view
	// state. Nil (an empty catalog) disables item context entirely.
	PickItem func(rng *rand.Rand) ItemContext

	// ReconnectProbability is the chance that a drop-off resumes at the same
	// state instead of ending the session.
	// Default: 0.5
	ReconnectProbability *float64

	// Warnf receives non-fatal walk diagnostics (unhandled outcomes).
	// Nil discards them.
	Warnf func(format string, args ...any)
}

// Validate validates the configuration.
func (c *WalkerConfig) Validate() error {
	if c.Model == nil {
		return fmt.Errorf("%w: behavior model is required", ErrInvalidWalkerConfig)
	}
	if c.ReconnectProbability != nil {
		if p := *c.ReconnectProbability; p < 0 || p > 1 {
			return fmt.Errorf("%w: reconnect probability must be in [0,1], got %v", ErrInvalidWalkerConfig, p)
		}
	}
	return nil
}

// ApplyDefaults applies default values to unset fields.
func (c *WalkerConfig) ApplyDefaults() {
	if c.ReconnectProbability == nil {
		p := 0.5
		c.ReconnectProbability = &p
	}
}

// Walker runs the behavior-model state machine for one session at a time.
// Events are recorded for the state being left, not the state being
// entered, so the AppLaunch and MainPageView preamble is emitted before the
// loop and is not subject to the transition tables.
type Walker struct {
	config WalkerConfig
}

// NewWalker creates a walker over the given behavior model.
func NewWalker(config WalkerConfig) (*Walker, error) {
	configCopy := config
	if err := configCopy.Validate(); err != nil {
		return nil, err
	}
	configCopy.ApplyDefaults()

	return &Walker{config: configCopy}, nil
}

// Walk generates the full event sequence for one session. Unhandled
// outcomes end the session with a warning; they never fail the run.
func (w *Walker) Walk(rng *rand.Rand, sess *Session) []Event {
	model := w.config.Model

	sess.emit(EventAppLaunch, nil)

	sess.advance(uniformDelay(rng, model.DefaultDelay()))
	sess.emit(EventMainPageView, map[string]any{PropIsLoggedIn: sess.LoggedIn})

	state := behavior.StateMainPageNotLogin
	if sess.LoggedIn {
		state = behavior.StateMainPageLogin
	}

	for {
		table, ok := model.Table(state)
		if !ok {
			w.warnf("session %s: no transition table for state %s; ending walk", sess.ID, state)
			break
		}
		outcome := behavior.Outcome(table.Choose(rng))

		delay := uniformDelay(rng, model.Delay(state))
		sess.advance(delay)

		properties := map[string]any{PropTimeSpentSec: round2(delay)}
		if sess.item != nil && behavior.PreservesItemContext(state) {
			properties[PropItemID] = sess.item.ID
			properties[PropItemTitle] = sess.item.Title
			properties[PropItemPrice] = sess.item.Price
			properties[PropItemCategory] = sess.item.Category
		}
		// The event for a clearing state still reflects the context it held.
		if sess.item != nil && behavior.ClearsItemContext(state) {
			sess.item = nil
		}

		sess.emit(string(state), properties)

		if outcome == behavior.OutcomeDropOff {
			sess.advance(dropOffGapSeconds)
			sess.emit(EventDropOff, nil)

			if rng.Float64() < *w.config.ReconnectProbability {
				sess.advance(uniformDelay(rng, model.DefaultDelay()) + reconnectExtraSeconds)
				sess.emit(EventReconnect, map[string]any{PropIsLoggedIn: sess.LoggedIn})
				continue
			}
			break
		}

		next, ok := behavior.NextState(outcome, sess.LoggedIn)
		if !ok {
			w.warnf("session %s: unhandled outcome %q at state %s; ending walk", sess.ID, outcome, state)
			break
		}
		if outcome == behavior.OutcomeLoginSuccess {
			sess.LoggedIn = true
		}

		if behavior.EntersItemView(outcome) && w.config.PickItem != nil {
			item := w.config.PickItem(rng)
			sess.item = &item
		}

		state = next
	}

	return sess.Events()
}

func (w *Walker) warnf(format string, args ...any) {
	if w.config.Warnf != nil {
		w.config.Warnf(format, args...)
	}
}

// uniformDelay samples a dwell time uniformly from the inclusive bounds.
func uniformDelay(rng *rand.Rand, d behavior.DelayBounds) float64 {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + rng.Float64()*(d.Max-d.Min)
}

// round2 rounds to two decimal places for the time_spent_sec property.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
