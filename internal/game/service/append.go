package service

import (
	"github.com/louisbranch/latchkey.house/internal/game/domain"
	"github.com/louisbranch/latchkey.house/internal/game/projection"
	"github.com/louisbranch/latchkey.house/internal/game/rules"
)

// Append applies one action to a history and returns the new history value.
//
// The transition is all-or-nothing: the reducer runs before anything is
// appended, so a rule error leaves no trace. The input history is never
// mutated.
func Append(h domain.History, action domain.Action, mode domain.PlayerMode, recorder rules.Recorder) (domain.History, error) {
	if len(h) == 0 {
		h = domain.NewHistory()
	}

	location := projection.CurrentLocation(h)
	state := projection.CurrentState(h)

	result, err := rules.Reduce(location, state, action, mode, recorder)
	if err != nil {
		return nil, err
	}

	record := domain.ActionRecord{Action: action, State: result.State}
	return h.WithRecord(record, result.Location), nil
}
