package behavior

// The outcome-to-state mapping is deliberately many-to-one: several
// semantically different outcomes funnel into the same downstream page.
// Outcomes absent from the mapping terminate the session walk.

// mainPageGroup lists the outcomes that return the user to the main page
// variant matching the current login flag.
var mainPageGroup = map[Outcome]bool{
	OutcomeMainPage:   true,
	OutcomeReturnMain: true,
	OutcomeAbandon:    true,
	OutcomeRecommend:  true,
}

// itemListGroup lists the outcomes that land on the item-list page.
var itemListGroup = map[Outcome]bool{
	OutcomeSearch:      true,
	OutcomeSearchText:  true,
	OutcomeViewRecItem: true,
	OutcomeReturnList:  true,
}

// NextState maps a drawn outcome to the following state. The login flag
// selects between the logged-in and logged-out variants of the main page
// and the item-view page. The second return value is false for unmapped
// outcomes, which the walker treats as a forced termination.
func NextState(o Outcome, loggedIn bool) (State, bool) {
	switch {
	case itemListGroup[o]:
		return StateViewItemList, true
	case mainPageGroup[o]:
		if loggedIn {
			return StateMainPageLogin, true
		}
		return StateMainPageNotLogin, true
	}

	switch o {
	case OutcomeItem, OutcomeClickItem:
		if loggedIn {
			return StateViewItemLogin, true
		}
		return StateViewItemNotLogin, true
	case OutcomeLoginSuccess:
		return StateMainPageLogin, true
	case OutcomeLogin:
		return StateLoginAttempt, true
	case OutcomeMyPage:
		return StateMyPageLogin, true
	case OutcomeAddToCart:
		return StateAfterAddToCart, true
	case OutcomeViewCart:
		return StateAfterViewCart, true
	case OutcomePurchase:
		return StatePurchaseClear, true
	case OutcomeBuyBaro:
		return StateBaroShop, true
	case OutcomeChooseShop:
		return StateBaroVisit, true
	case OutcomeChooseVisit:
		return StateBaroPurchase, true
	case OutcomeOrderDetail:
		return StateOrderDetail, true
	case OutcomePromotion:
		// Routed to the dedicated post-promotion page rather than the
		// main-page fallback group.
		return StateAfterPromotion, true
	}

	return "", false
}

// EntersItemView reports whether an outcome opens an item detail page and
// therefore attaches a fresh item context to the session.
func EntersItemView(o Outcome) bool {
	return o == OutcomeItem || o == OutcomeClickItem
}

// contextPreserving lists the states whose events carry the item properties
// of the session's current item context.
var contextPreserving = map[State]bool{
	StateViewItemLogin:    true,
	StateViewItemNotLogin: true,
	StateAfterAddToCart:   true,
	StateAfterViewCart:    true,
	StatePurchaseClear:    true,
	StateBaroShop:         true,
	StateBaroVisit:        true,
	StateBaroPurchase:     true,
}

// contextClearing lists the states that drop the item context. The event
// emitted for the clearing state itself still reflects the context.
var contextClearing = map[State]bool{
	StateMainPageLogin:    true,
	StateMainPageNotLogin: true,
	StateViewItemList:     true,
}

// PreservesItemContext reports whether events for this state include item
// properties while an item context is active.
func PreservesItemContext(s State) bool {
	return contextPreserving[s]
}

// ClearsItemContext reports whether entering this state drops the session's
// item context.
func ClearsItemContext(s State) bool {
	return contextClearing[s]
}
