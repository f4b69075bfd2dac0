package rules

import (
	"github.com/louisbranch/latchkey.house/internal/game/domain"
)

// Puzzle keys used by progress statistics and telemetry.
const (
	PuzzleOfficeDoor    = "officeDoor"
	PuzzleMathsDoor     = "mathsDoor"
	PuzzleDarkLamp      = "darkLamp"
	PuzzleLibraryCipher = "libraryCipher"
	PuzzleAtticShapes   = "atticShapes"
	PuzzleGame          = "game"
)

// Result is the outcome of reducing one action.
type Result struct {
	Location domain.LocationID
	State    domain.GameState
}

type reduceFunc func(state domain.GameState, action domain.Action, solve func(string)) (Result, error)

// locationRules enumerates every legal non-move action type per location.
var locationRules = map[domain.LocationID]map[string]reduceFunc{
	domain.LocationOffice: {
		"search":    noop(domain.LocationOffice),
		"checkDoor": setFlag(domain.LocationOffice, "officeDoor.checked"),
		"checkBox":  setFlag(domain.LocationOffice, "officeBox.checked"),
		domain.ActionUnlockDoor: unlockDoor(domain.LocationOffice, domain.LocationMaths,
			[]string{"officeDoor.checked", "officeBox.checked"}, "officeDoor.unlocked", PuzzleOfficeDoor),
	},
	domain.LocationMaths: {
		"readNote": setFlag(domain.LocationMaths, "mathsNote.read"),
		domain.ActionUnlockDoor: unlockDoor(domain.LocationMaths, domain.LocationDark,
			[]string{"mathsNote.read"}, "mathsDoor.unlocked", PuzzleMathsDoor),
	},
	domain.LocationDark: {
		"feelWalls": setFlag(domain.LocationDark, "darkWalls.felt"),
		"lightLamp": solveFlag(domain.LocationDark, []string{"darkWalls.felt"}, "darkLamp.lit", PuzzleDarkLamp),
		domain.ActionUnlockDoor: unlockDoor(domain.LocationDark, domain.LocationLibrary,
			[]string{"darkLamp.lit"}, "darkDoor.unlocked", ""),
	},
	domain.LocationLibrary: {
		"searchShelves": setFlag(domain.LocationLibrary, "libraryShelves.searched"),
		"solveCipher": solveFlag(domain.LocationLibrary, []string{"libraryShelves.searched"},
			"libraryCipher.solved", PuzzleLibraryCipher),
		domain.ActionUnlockDoor: unlockDoor(domain.LocationLibrary, domain.LocationAttic,
			[]string{"libraryCipher.solved"}, "libraryDoor.unlocked", ""),
	},
	domain.LocationAttic: {
		"openTrunk": setFlag(domain.LocationAttic, "atticTrunk.opened"),
		"placeShapes": solveFlag(domain.LocationAttic, []string{"atticTrunk.opened"},
			"atticShapes.solved", PuzzleAtticShapes),
		"finishGame": finishGame,
	},
	// Credits offers no actions beyond plain moves.
	domain.LocationCredits: {},
}

// Reduce applies one action to the current location and state and returns the
// new location and state. It never mutates its inputs.
//
// move actions are location-agnostic and short-circuit to the target without
// consulting per-location rules. Every other action type must appear in the
// current location's table or Reduce fails with a RuleError.
//
// Solve side effects go through recorder and are suppressed unless mode
// records statistics.
func Reduce(location domain.LocationID, state domain.GameState, action domain.Action, mode domain.PlayerMode, recorder Recorder) (Result, error) {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	solve := func(puzzleKey string) {
		if puzzleKey == "" || !mode.RecordsStatistics() {
			return
		}
		recorder.RecordSolve(puzzleKey)
	}

	if action.Type == domain.ActionMove {
		if !domain.KnownLocation(action.To) {
			return Result{}, invalid(CodeMoveTargetUnknown, location, action)
		}
		return Result{Location: action.To, State: state.Clone()}, nil
	}

	table, ok := locationRules[location]
	if !ok {
		return Result{}, invalid(CodeActionUnknown, location, action)
	}
	apply, ok := table[action.Type]
	if !ok {
		return Result{}, invalid(CodeActionUnknown, location, action)
	}
	return apply(state, action, solve)
}

// noop returns the state unchanged, as a fresh copy.
func noop(location domain.LocationID) reduceFunc {
	return func(state domain.GameState, _ domain.Action, _ func(string)) (Result, error) {
		return Result{Location: location, State: state.Clone()}, nil
	}
}

func setFlag(location domain.LocationID, flag string) reduceFunc {
	return func(state domain.GameState, _ domain.Action, _ func(string)) (Result, error) {
		return Result{Location: location, State: state.WithFlag(flag)}, nil
	}
}

// solveFlag sets a puzzle-solved flag and records the solve, once. Re-solving
// an already-set flag does not double-count.
func solveFlag(location domain.LocationID, requires []string, flag, puzzleKey string) reduceFunc {
	return func(state domain.GameState, action domain.Action, solve func(string)) (Result, error) {
		for _, required := range requires {
			if !state.Flag(required) {
				return Result{}, invalid(CodeUnlockNotReady, location, action)
			}
		}
		if !state.Flag(flag) {
			solve(puzzleKey)
		}
		return Result{Location: location, State: state.WithFlag(flag)}, nil
	}
}

// unlockDoor validates the target and prerequisites, marks the door unlocked
// and moves through it.
func unlockDoor(location, target domain.LocationID, requires []string, flag, puzzleKey string) reduceFunc {
	return func(state domain.GameState, action domain.Action, solve func(string)) (Result, error) {
		if action.To != target {
			return Result{}, invalid(CodeUnlockTargetUnknown, location, action)
		}
		for _, required := range requires {
			if !state.Flag(required) {
				return Result{}, invalid(CodeUnlockNotReady, location, action)
			}
		}
		if !state.Flag(flag) {
			solve(puzzleKey)
		}
		return Result{Location: action.To, State: state.WithFlag(flag)}, nil
	}
}

// finishGame is the terminal action. The history keeps accepting appends
// afterwards; the options catalog simply stops offering choices.
func finishGame(state domain.GameState, action domain.Action, solve func(string)) (Result, error) {
	for _, required := range []string{
		"officeDoor.unlocked",
		"mathsDoor.unlocked",
		"darkLamp.lit",
		"libraryCipher.solved",
		"atticShapes.solved",
	} {
		if !state.Flag(required) {
			return Result{}, invalid(CodeFinishNotReady, domain.LocationAttic, action)
		}
	}
	if !state.Flag("allDone") {
		solve(PuzzleGame)
	}
	return Result{Location: domain.LocationCredits, State: state.WithFlag("allDone")}, nil
}
