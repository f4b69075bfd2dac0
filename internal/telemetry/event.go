package telemetry

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Event types produced by the core subsystems. Signal-bridged events reuse
// the signal name as their type.
const (
	EventPuzzleStart    = "puzzle_start"
	EventPuzzleSolved   = "puzzle_solved"
	EventPuzzleAbandon  = "puzzle_abandon"
	EventAreaVisit      = "area_visit"
	EventGameComplete   = "game_complete"
	EventSessionEnd     = "session_end"
	EventSolvedBaseline = "solved_baseline"
)

// Event is one analytics record: a type, an epoch-milliseconds timestamp and
// type-specific fields. Events are never mutated after creation.
type Event struct {
	Type      string
	Timestamp int64
	Fields    map[string]any
}

// MarshalJSON flattens type-specific fields next to type and timestamp, the
// shape the analytics sink expects.
func (e Event) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Fields)+2)
	for key, value := range e.Fields {
		flat[key] = value
	}
	flat["type"] = e.Type
	flat["timestamp"] = e.Timestamp
	return json.Marshal(flat)
}

// UnmarshalJSON reverses MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	eventType, _ := flat["type"].(string)
	if eventType == "" {
		return fmt.Errorf("event type is required")
	}
	timestamp, _ := flat["timestamp"].(float64)
	delete(flat, "type")
	delete(flat, "timestamp")

	e.Type = eventType
	e.Timestamp = int64(timestamp)
	if len(flat) > 0 {
		e.Fields = flat
	} else {
		e.Fields = nil
	}
	return nil
}
