package domain

// ActionRecord pairs an action with the state snapshot immediately after
// applying it. Records are immutable once appended.
type ActionRecord struct {
	Action Action    `json:"action"`
	State  GameState `json:"state"`
}

// HistoryEntry represents one visit to a location. Actions accumulates every
// action taken while there, in dispatch order.
type HistoryEntry struct {
	Location LocationID     `json:"location"`
	Actions  []ActionRecord `json:"actions"`
}

// History is the ordered sequence of location visits. A valid History always
// has at least one entry; entry 0 is entered with InitialState.
type History []HistoryEntry

// NewHistory returns the single-entry history at the start location.
func NewHistory() History {
	return History{{Location: StartLocation}}
}

// clone copies the entry spine plus the last entry's action list, which is
// exactly the part Append extends. Earlier entries stay shared: they are
// never modified again.
func (h History) clone() History {
	cloned := make(History, len(h))
	copy(cloned, h)
	if len(cloned) > 0 {
		last := cloned[len(cloned)-1]
		last.Actions = append([]ActionRecord(nil), last.Actions...)
		cloned[len(cloned)-1] = last
	}
	return cloned
}

// WithRecord returns a new History with the record appended to the last
// entry, plus a fresh empty entry when the record moved to a new location.
// The record belongs to the entry where the action was taken, not to the
// destination.
func (h History) WithRecord(record ActionRecord, newLocation LocationID) History {
	next := h.clone()
	if len(next) == 0 {
		next = NewHistory()
	}
	last := len(next) - 1
	next[last].Actions = append(next[last].Actions, record)
	if newLocation != next[last].Location {
		next = append(next, HistoryEntry{Location: newLocation})
	}
	return next
}
