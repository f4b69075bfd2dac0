package domain

import "strings"

// GameState is the bag of named flags, counters and seed values describing
// puzzle-unlock progress. It grows monotonically in practice (fields are only
// added or flipped true) but nothing enforces that structurally; the rules
// tables are trusted to only add forward progress.
//
// GameState values are shared between history snapshots, so mutations must go
// through the copy-on-write helpers below.
type GameState map[string]any

// InitialState returns the state a fresh game enters the start location with.
//
// Puzzle seeds live in state rather than being drawn at solve time, so replay
// of a history is deterministic.
func InitialState() GameState {
	return GameState{
		"seed": map[string]any{
			"dials":  []any{3, 1, 4},
			"shapes": "LTSZ",
		},
	}
}

// Clone returns a shallow copy of the state.
func (s GameState) Clone() GameState {
	cloned := make(GameState, len(s))
	for key, value := range s {
		cloned[key] = value
	}
	return cloned
}

// Flag reports whether a boolean flag is set. The path is either a top-level
// name or a dotted pair such as "officeDoor.checked".
func (s GameState) Flag(path string) bool {
	group, name, nested := strings.Cut(path, ".")
	if !nested {
		value, _ := s[group].(bool)
		return value
	}
	object, ok := s[group].(map[string]any)
	if !ok {
		return false
	}
	value, _ := object[name].(bool)
	return value
}

// WithFlag returns a copy of the state with a boolean flag set. Nested groups
// are themselves copied before mutation so prior snapshots are untouched.
func (s GameState) WithFlag(path string) GameState {
	cloned := s.Clone()
	group, name, nested := strings.Cut(path, ".")
	if !nested {
		cloned[group] = true
		return cloned
	}
	object := make(map[string]any)
	if existing, ok := s[group].(map[string]any); ok {
		for key, value := range existing {
			object[key] = value
		}
	}
	object[name] = true
	cloned[group] = object
	return cloned
}
