package rules

import (
	"errors"
	"fmt"

	"github.com/louisbranch/latchkey.house/internal/game/domain"
)

// Code is a machine-readable rule error code.
type Code string

const (
	// CodeActionUnknown marks an action type with no rule at the current location.
	CodeActionUnknown Code = "ACTION_UNKNOWN"
	// CodeMoveTargetUnknown marks a move to a location that does not exist.
	CodeMoveTargetUnknown Code = "MOVE_TARGET_UNKNOWN"
	// CodeUnlockTargetUnknown marks an unlockDoor whose target is not reachable
	// from the current location.
	CodeUnlockTargetUnknown Code = "UNLOCK_TARGET_UNKNOWN"
	// CodeUnlockNotReady marks an unlockDoor dispatched before its
	// prerequisite flags are set.
	CodeUnlockNotReady Code = "UNLOCK_NOT_READY"
	// CodeFinishNotReady marks the terminal action dispatched before every
	// puzzle is solved.
	CodeFinishNotReady Code = "FINISH_NOT_READY"
)

// RuleError is an invalid game transition. It signals a wiring bug between
// the presentation layer and the rules tables, not a recoverable runtime
// condition.
type RuleError struct {
	Code     Code
	Location domain.LocationID
	Action   string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid action %q at %s (%s)", e.Action, e.Location, e.Code)
}

// AsRuleError unwraps err into a RuleError when it is one.
func AsRuleError(err error) (*RuleError, bool) {
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return ruleErr, true
	}
	return nil, false
}

func invalid(code Code, location domain.LocationID, action domain.Action) error {
	return &RuleError{Code: code, Location: location, Action: action.Type}
}
