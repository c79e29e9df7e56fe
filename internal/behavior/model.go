// Package behavior defines the hand-authored user-behavior model: the named
// page states, the weighted outcome table of each state, the per-state dwell
// time bounds, and the fixed outcome-to-state mapping that drives the
// session walk.
package behavior

import (
	"errors"
	"fmt"

	"github.com/example/bookshop/tools/eventgen/internal/sampler"
)

// Errors returned by the behavior package.
var (
	// ErrUnknownState is returned when a state is not part of the model.
	ErrUnknownState = errors.New("behavior: unknown state")
	// ErrInvalidDelay is returned when delay bounds are inverted or negative.
	ErrInvalidDelay = errors.New("behavior: invalid delay bounds")
)

// State names a page/action context. The identifiers double as event names
// in the generated log, so they keep the rule naming of the source dataset.
type State string

// Behavior-model states.
const (
	StateLoginAttempt     State = "PROB_ON_LOGIN_ATTEMPT"
	StateMainPageLogin    State = "PROB_MAINPAGE_LOGIN"
	StateMainPageNotLogin State = "PROB_MAINPAGE_NOT_LOGIN"
	StateMyPageLogin      State = "PROB_MYPAGE_LOGIN"
	StateMyPageNotLogin   State = "PROB_MYPAGE_NOT_LOGIN"
	StateSearch           State = "PROB_SEARCH"
	StateOrderDetail      State = "PROB_ORDER_DETAIL"
	StateAfterPromotion   State = "PROB_ACTION_AFTER_PROMOTION"
	StateRecommendedItem  State = "PROB_RECOMMANDED_ITEM"
	StateViewItemList     State = "PROB_VIEW_ITEM_LIST"
	StateViewItemNotLogin State = "PROB_VIEW_ITEM_NOT_LOGIN"
	StateViewItemLogin    State = "PROB_VIEW_ITEM_LOGIN"
	StateAfterAddToCart   State = "PROB_ACTION_AFTER_ADD_TO_CART"
	StateAfterViewCart    State = "PROB_ACTION_AFTER_VIEW_CART"
	StateBaroShop         State = "PROB_BARO_SHOP"
	StateBaroVisit        State = "PROB_BARO_VISIT"
	StateBaroPurchase     State = "PROB_BARO_PURCHASE"
	StatePurchase         State = "PROB_PURCHASE"
	StatePurchaseClear    State = "PROB_PURCHASE_CLEAR"
)

// Outcome is a possible user choice at a given state.
type Outcome string

// Outcomes drawn from the transition tables. The spellings are data
// constants carried over from the source dataset.
const (
	OutcomeSearch       Outcome = "search"
	OutcomeSearchText   Outcome = "search_text"
	OutcomeViewRecItem  Outcome = "view_recommended_item"
	OutcomeRecommend    Outcome = "recommand"
	OutcomePromotion    Outcome = "promotion"
	OutcomeLogin        Outcome = "login"
	OutcomeLoginSuccess Outcome = "login_success"
	OutcomeMyPage       Outcome = "mypage"
	OutcomeOrderDetail  Outcome = "order_detail"
	OutcomeItem         Outcome = "item"
	OutcomeClickItem    Outcome = "click_item"
	OutcomeAddToCart    Outcome = "add_to_cart"
	OutcomeViewCart     Outcome = "view_cart"
	OutcomePurchase     Outcome = "purchase"
	OutcomeBuyBaro      Outcome = "buy_baro"
	OutcomeChooseShop   Outcome = "choose_shop"
	OutcomeChooseVisit  Outcome = "choose_visit"
	OutcomeReturnMain   Outcome = "return_mainpage"
	OutcomeReturnList   Outcome = "return_item_list"
	OutcomeMainPage     Outcome = "mainpage"
	OutcomeAbandon      Outcome = "abandon"
	OutcomeDropOff      Outcome = "drop-off"
)

// DelayBounds is an inclusive dwell-time range in seconds for one state.
type DelayBounds struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Validate checks that the bounds are non-negative and ordered.
func (d DelayBounds) Validate() error {
	if d.Min < 0 || d.Max < d.Min {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidDelay, d.Min, d.Max)
	}
	return nil
}

// Model is the immutable-by-convention behavior definition. It is built once
// at startup (optionally adjusted by profile overlays) and then only read.
type Model struct {
	tables map[State]*sampler.Table
	delays map[State]DelayBounds

	// defaultDelay applies to any state without explicit bounds, and to the
	// synthetic pre-loop and reconnect delays.
	defaultDelay DelayBounds
}

// transition pairs an outcome with its weight in source order.
type transition struct {
	outcome Outcome
	weight  float64
}

// defaultTransitions is the hand-authored transition table of the model.
// Weights within a state need not sum to 1.
var defaultTransitions = map[State][]transition{
	StateLoginAttempt: {
		{OutcomeLoginSuccess, 0.9},
		{OutcomeDropOff, 0.1},
	},
	StateMainPageNotLogin: {
		{OutcomeSearch, 0.5},
		{OutcomeRecommend, 0.1},
		{OutcomePromotion, 0.35},
		{OutcomeLogin, 0.05},
	},
	StateMainPageLogin: {
		{OutcomeSearch, 0.5},
		{OutcomeRecommend, 0.1},
		{OutcomePromotion, 0.35},
		{OutcomeMyPage, 0.05},
	},
	StateMyPageLogin: {
		{OutcomeOrderDetail, 0.8},
		{OutcomeMainPage, 0.2},
	},
	StateMyPageNotLogin: {
		{OutcomeLogin, 0.9},
		{OutcomeMainPage, 0.1},
	},
	StateSearch: {
		{OutcomeSearchText, 0.3},
		{OutcomeViewRecItem, 0.5},
		{OutcomeReturnMain, 0.2},
	},
	StateOrderDetail: {
		{OutcomeMainPage, 0.1},
		{OutcomeDropOff, 0.9},
	},
	StateAfterPromotion: {
		{OutcomeMainPage, 0.9},
		{OutcomeDropOff, 0.1},
	},
	StateRecommendedItem: {
		{OutcomeItem, 0.3},
		{OutcomeMainPage, 0.6},
		{OutcomeDropOff, 0.1},
	},
	StateViewItemList: {
		{OutcomeClickItem, 0.95},
		{OutcomeDropOff, 0.05},
	},
	StateViewItemNotLogin: {
		{OutcomeLogin, 0.5},
		{OutcomeDropOff, 0.5},
	},
	StateViewItemLogin: {
		{OutcomeAddToCart, 0.2},
		{OutcomeDropOff, 0.2},
		{OutcomeBuyBaro, 0.1},
		{OutcomePurchase, 0.1},
		{OutcomeReturnList, 0.4},
	},
	StateAfterAddToCart: {
		{OutcomeViewCart, 0.6},
		{OutcomeReturnMain, 0.05},
		{OutcomeReturnList, 0.35},
	},
	StateAfterViewCart: {
		{OutcomePurchase, 0.3},
		{OutcomeAbandon, 0.35},
		{OutcomeReturnMain, 0.3},
		{OutcomeDropOff, 0.05},
	},
	StateBaroShop: {
		{OutcomeChooseShop, 0.7},
		{OutcomeDropOff, 0.1},
		{OutcomeReturnList, 0.2},
	},
	StateBaroVisit: {
		{OutcomeChooseVisit, 1},
	},
	StateBaroPurchase: {
		{OutcomePurchase, 0.95},
		{OutcomeDropOff, 0.05},
	},
	StatePurchase: {
		{OutcomePurchase, 0.95},
		{OutcomeDropOff, 0.05},
	},
	StatePurchaseClear: {
		{OutcomeReturnMain, 0.15},
		{OutcomeOrderDetail, 0.6},
		{OutcomeDropOff, 0.25},
	},
}

// defaultDelays holds the per-state dwell-time bounds in seconds. States not
// listed here use DefaultDelayBounds.
var defaultDelays = map[State]DelayBounds{
	StateMainPageLogin:    {Min: 3, Max: 7},
	StateMainPageNotLogin: {Min: 2, Max: 5},
	StateSearch:           {Min: 5, Max: 12},
	StateViewItemList:     {Min: 8, Max: 15},
	StateViewItemLogin:    {Min: 15, Max: 30},
	StateRecommendedItem:  {Min: 4, Max: 10},
	StateMyPageLogin:      {Min: 7, Max: 15},
	StateOrderDetail:      {Min: 10, Max: 20},
	StateAfterViewCart:    {Min: 10, Max: 25},
	StatePurchaseClear:    {Min: 5, Max: 10},
	StateAfterPromotion:   {Min: 3, Max: 8},
}

// DefaultDelayBounds is the fallback dwell-time range for unlisted states.
var DefaultDelayBounds = DelayBounds{Min: 1, Max: 3}

// Default builds the built-in behavior model.
func Default() *Model {
	m := &Model{
		tables:       make(map[State]*sampler.Table, len(defaultTransitions)),
		delays:       make(map[State]DelayBounds, len(defaultDelays)),
		defaultDelay: DefaultDelayBounds,
	}

	for state, transitions := range defaultTransitions {
		entries := make([]sampler.Entry, len(transitions))
		for i, tr := range transitions {
			entries[i] = sampler.Entry{Name: string(tr.outcome), Weight: tr.weight}
		}
		table, err := sampler.NewTable(entries)
		if err != nil {
			// The built-in tables are compile-time data; a failure here is a
			// programming error, not a runtime condition.
			panic(fmt.Sprintf("behavior: built-in table for %s: %v", state, err))
		}
		m.tables[state] = table
	}

	for state, bounds := range defaultDelays {
		m.delays[state] = bounds
	}

	return m
}

// Table returns the transition table for a state.
func (m *Model) Table(s State) (*sampler.Table, bool) {
	t, ok := m.tables[s]
	return t, ok
}

// Delay returns the dwell-time bounds for a state, falling back to the
// model default when the state has no explicit bounds.
func (m *Model) Delay(s State) DelayBounds {
	if d, ok := m.delays[s]; ok {
		return d
	}
	return m.defaultDelay
}

// DefaultDelay returns the fallback dwell-time bounds.
func (m *Model) DefaultDelay() DelayBounds {
	return m.defaultDelay
}

// States returns the set of states with a transition table.
func (m *Model) States() []State {
	states := make([]State, 0, len(m.tables))
	for s := range m.tables {
		states = append(states, s)
	}
	return states
}

// SetTransitions replaces the outcome table of an existing state. Used by
// profile overlays before generation starts.
func (m *Model) SetTransitions(s State, entries []sampler.Entry) error {
	if _, ok := m.tables[s]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownState, s)
	}
	table, err := sampler.NewTable(entries)
	if err != nil {
		return fmt.Errorf("behavior: transitions for %s: %w", s, err)
	}
	m.tables[s] = table
	return nil
}

// SetDelay replaces the dwell-time bounds of a state.
func (m *Model) SetDelay(s State, d DelayBounds) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%s: %w", s, err)
	}
	if _, ok := m.tables[s]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownState, s)
	}
	m.delays[s] = d
	return nil
}
