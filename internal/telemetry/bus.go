package telemetry

import "sync"

// Signal names published by the presentation layer.
const (
	SignalAttemptFail    = "attempt_fail"
	SignalSubstep        = "substep"
	SignalPuzzleSnapshot = "puzzle_snapshot"
	SignalInfoTab        = "info_tab"
	SignalLinkClick      = "link_click"
	SignalGameStart      = "game_start"
	SignalNewGame        = "new_game"
	SignalAssetLoad      = "asset_load"
)

// Signal is one inbound presentation message.
type Signal struct {
	Type   string
	Fields map[string]any
}

// Handler consumes a signal.
type Handler func(Signal)

// Bus is the message-passing boundary between the presentation layer and the
// core: an explicit subscriber list, no framework emitter.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a signal type.
func (b *Bus) Subscribe(signalType string, handler Handler) {
	if b == nil || signalType == "" || handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[signalType] = append(b.handlers[signalType], handler)
}

// Publish delivers a signal to every subscriber, in subscription order.
func (b *Bus) Publish(signal Signal) {
	if b == nil {
		return
	}
	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[signal.Type]...)
	b.mu.Unlock()
	for _, handler := range handlers {
		handler(signal)
	}
}
