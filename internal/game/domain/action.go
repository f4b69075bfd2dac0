package domain

// Action is a player action as dispatched by the presentation layer.
//
// A bare action name is shorthand for an Action with only Type set; use
// ActionOf for that case. To carries the target location for move and
// unlockDoor actions. Payload holds puzzle-specific values such as entered
// codes or placed shapes.
type Action struct {
	Type    string         `json:"type"`
	To      LocationID     `json:"to,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Well-known action types shared between the rules tables and the options
// catalog. Per-location actions are declared next to their rules.
const (
	ActionMove       = "move"
	ActionUnlockDoor = "unlockDoor"
)

// ActionOf normalizes a bare action name into an Action.
func ActionOf(actionType string) Action {
	return Action{Type: actionType}
}
