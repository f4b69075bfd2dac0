package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/louisbranch/latchkey.house/internal/platform/id"
)

// DeviceInfo describes the client environment, reported once per payload.
type DeviceInfo struct {
	UserAgent    string `json:"userAgent,omitempty"`
	Language     string `json:"language,omitempty"`
	Platform     string `json:"platform,omitempty"`
	ScreenWidth  int    `json:"screenWidth,omitempty"`
	ScreenHeight int    `json:"screenHeight,omitempty"`
}

// Payload is the unit of remote delivery: the full session metadata plus
// every buffered event. It is re-sent whole on each flush, never diffed;
// duplicate documents are deduplicated downstream by session id.
type Payload struct {
	SessionID string     `json:"sessionId"`
	PlayerID  string     `json:"playerId"`
	Device    DeviceInfo `json:"deviceInfo"`
	Events    []Event    `json:"events"`
}

// Session buffers analytics events for one process lifetime.
type Session struct {
	mu       sync.Mutex
	id       string
	playerID string
	device   DeviceInfo
	clock    func() time.Time
	events   []Event
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock overrides the session clock.
func WithClock(clock func() time.Time) SessionOption {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSession creates a session with a fresh random id.
func NewSession(playerID string, device DeviceInfo, opts ...SessionOption) (*Session, error) {
	sessionID, err := id.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	session := &Session{
		id:       sessionID,
		playerID: playerID,
		device:   device,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(session)
		}
	}
	return session, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// PlayerID returns the persistent player identifier.
func (s *Session) PlayerID() string {
	return s.playerID
}

// Record appends one event to the buffer. Insertion order is wall-clock
// order: all producers run in this process.
func (s *Session) Record(eventType string, fields map[string]any) {
	if s == nil || eventType == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{
		Type:      eventType,
		Timestamp: s.clock().UTC().UnixMilli(),
		Fields:    fields,
	})
}

// Len returns the number of buffered events.
func (s *Session) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Snapshot copies the session into a delivery payload.
func (s *Session) Snapshot() Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Payload{
		SessionID: s.id,
		PlayerID:  s.playerID,
		Device:    s.device,
		Events:    append([]Event(nil), s.events...),
	}
}
