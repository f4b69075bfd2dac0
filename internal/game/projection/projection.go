// Package projection derives read-only views from a game History: current
// location and state, visit counts and neighbor-action lookups used by the
// presentation layer to pick narrative variants.
package projection

import (
	"github.com/louisbranch/latchkey.house/internal/game/domain"
)

// CurrentLocation returns the location of the last entry.
func CurrentLocation(h domain.History) domain.LocationID {
	if len(h) == 0 {
		return domain.StartLocation
	}
	return h[len(h)-1].Location
}

// CurrentState returns the state as of entering the current location, which
// is also the latest state of the game.
func CurrentState(h domain.History) domain.GameState {
	return StateAt(h, len(h))
}

// StateAt returns the state in effect when entry index is entered.
//
// Index 0 is the well-known initial state. Otherwise it is the state of the
// last action of entry index-1; an entry with no actions contributes no state
// of its own and defers to the entry before it.
func StateAt(h domain.History, index int) domain.GameState {
	if index > len(h) {
		index = len(h)
	}
	for index > 0 {
		entry := h[index-1]
		if len(entry.Actions) > 0 {
			return entry.Actions[len(entry.Actions)-1].State
		}
		index--
	}
	return domain.InitialState()
}

// VisitCount counts entries at a location with index strictly below
// beforeIndex. Pass len(h) to count every visit, or an entry's own index to
// count visits before it.
func VisitCount(location domain.LocationID, h domain.History, beforeIndex int) int {
	if beforeIndex > len(h) {
		beforeIndex = len(h)
	}
	count := 0
	for index := 0; index < beforeIndex; index++ {
		if h[index].Location == location {
			count++
		}
	}
	return count
}

// ActionVisitCount counts actions recorded at a location in entries strictly
// below beforeIndex.
func ActionVisitCount(location domain.LocationID, h domain.History, beforeIndex int) int {
	if beforeIndex > len(h) {
		beforeIndex = len(h)
	}
	count := 0
	for index := 0; index < beforeIndex; index++ {
		if h[index].Location == location {
			count += len(h[index].Actions)
		}
	}
	return count
}

// PreviousAction returns the record before (entryIndex, actionIndex), walking
// into earlier entries and skipping entries without actions.
func PreviousAction(h domain.History, entryIndex, actionIndex int) (domain.ActionRecord, bool) {
	if entryIndex < 0 || entryIndex >= len(h) {
		return domain.ActionRecord{}, false
	}
	if actionIndex > 0 {
		actions := h[entryIndex].Actions
		if actionIndex-1 < len(actions) {
			return actions[actionIndex-1], true
		}
		return domain.ActionRecord{}, false
	}
	for index := entryIndex - 1; index >= 0; index-- {
		actions := h[index].Actions
		if len(actions) > 0 {
			return actions[len(actions)-1], true
		}
	}
	return domain.ActionRecord{}, false
}

// NextAction returns the record after (entryIndex, actionIndex), walking into
// later entries and skipping entries without actions.
func NextAction(h domain.History, entryIndex, actionIndex int) (domain.ActionRecord, bool) {
	if entryIndex < 0 || entryIndex >= len(h) {
		return domain.ActionRecord{}, false
	}
	if actionIndex+1 < len(h[entryIndex].Actions) {
		return h[entryIndex].Actions[actionIndex+1], true
	}
	for index := entryIndex + 1; index < len(h); index++ {
		if len(h[index].Actions) > 0 {
			return h[index].Actions[0], true
		}
	}
	return domain.ActionRecord{}, false
}

// IsCurrent reports whether (entryIndex, actionIndex) addresses the most
// recent action of the most recent entry. Only that record renders as live
// and interactive; every earlier one is read-only history.
func IsCurrent(h domain.History, entryIndex, actionIndex int) bool {
	if len(h) == 0 || entryIndex != len(h)-1 {
		return false
	}
	return actionIndex == len(h[entryIndex].Actions)-1
}
