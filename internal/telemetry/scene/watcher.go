// Package scene turns a polled "what is the player looking at" signal into
// discrete telemetry events by diffing consecutive samples.
//
// The presentation layer does not emit puzzle start or abandon itself, so the
// watcher infers them from scene transitions. Sampling is an explicit
// abstraction so the poll can be swapped for a push subscription without
// touching the diff logic.
package scene

import (
	"context"
	"sync"
	"time"

	"github.com/louisbranch/latchkey.house/internal/telemetry"
)

// DefaultInterval is the sampling period.
const DefaultInterval = 500 * time.Millisecond

// Sampler reports the scene currently shown.
type Sampler interface {
	Sample() string
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func() string

// Sample implements Sampler.
func (f SamplerFunc) Sample() string {
	return f()
}

// Recorder receives the watcher's events; satisfied by *telemetry.Session.
type Recorder interface {
	Record(eventType string, fields map[string]any)
}

// Timers is the puzzle stopwatch surface the watcher drives.
type Timers interface {
	ResetPuzzle()
	StopPuzzle()
	PuzzleElapsed() time.Duration
}

// Config declares which scenes the watcher tracks.
type Config struct {
	// Puzzles maps tracked puzzle scene keys to puzzle keys.
	Puzzles map[string]string
	// Areas lists tracked area scene keys; entering one always emits a visit.
	Areas []string
	// Credits is the terminal scene; entering it emits game_complete and
	// forces a flush.
	Credits string
	// Interval overrides the sampling period.
	Interval time.Duration
}

// Watcher diffs consecutive scene samples into lifecycle events.
type Watcher struct {
	mu       sync.Mutex
	cfg      Config
	areas    map[string]bool
	sampler  Sampler
	recorder Recorder
	timers   Timers
	flush    func(context.Context)
	solved   func() []string

	last         string
	activePuzzle string
	attempts     int
	snapshot     map[string]any
	completed    bool
}

// NewWatcher creates a watcher. flush and solved may be nil.
func NewWatcher(cfg Config, sampler Sampler, recorder Recorder, timers Timers, flush func(context.Context), solved func() []string) *Watcher {
	areas := make(map[string]bool, len(cfg.Areas))
	for _, area := range cfg.Areas {
		areas[area] = true
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if flush == nil {
		flush = func(context.Context) {}
	}
	if solved == nil {
		solved = func() []string { return nil }
	}
	return &Watcher{
		cfg:      cfg,
		areas:    areas,
		sampler:  sampler,
		recorder: recorder,
		timers:   timers,
		flush:    flush,
		solved:   solved,
	}
}

// Run samples on a ticker until the context ends.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick samples once and emits events for any transition since the last
// sample.
func (w *Watcher) Tick(ctx context.Context) {
	w.mu.Lock()

	current := w.sampler.Sample()
	if current == w.last {
		w.mu.Unlock()
		return
	}
	w.last = current

	var emits []func()

	puzzleKey, isPuzzle := w.cfg.Puzzles[current]
	switch {
	case isPuzzle && w.activePuzzle == "":
		// Entering a puzzle from a non-puzzle scene.
		w.activePuzzle = puzzleKey
		w.attempts = 0
		w.snapshot = nil
		w.completed = false
		w.timers.ResetPuzzle()
		emits = append(emits, w.emit(telemetry.EventPuzzleStart, map[string]any{
			"puzzle": puzzleKey,
		}))
	case isPuzzle:
		// Puzzle to puzzle counts as one logical puzzle: no start, no
		// abandon, counters keep running.
	case w.activePuzzle != "":
		// Leaving a puzzle for a non-puzzle scene.
		if w.completed {
			w.completed = false
		} else {
			fields := map[string]any{
				"puzzle":         w.activePuzzle,
				"durationMs":     w.timers.PuzzleElapsed().Milliseconds(),
				"failedAttempts": w.attempts,
			}
			if w.snapshot != nil {
				fields["snapshot"] = w.snapshot
			}
			emits = append(emits, w.emit(telemetry.EventPuzzleAbandon, fields))
		}
		w.timers.StopPuzzle()
		w.activePuzzle = ""
	}

	if w.areas[current] {
		emits = append(emits, w.emit(telemetry.EventAreaVisit, map[string]any{
			"area": current,
		}))
	}

	finished := current == w.cfg.Credits && w.cfg.Credits != ""
	if finished {
		emits = append(emits, w.emit(telemetry.EventGameComplete, map[string]any{
			"solvedPuzzles": w.solved(),
		}))
	}
	w.mu.Unlock()

	for _, emit := range emits {
		emit()
	}
	if finished {
		w.flush(ctx)
	}
}

func (w *Watcher) emit(eventType string, fields map[string]any) func() {
	return func() {
		w.recorder.Record(eventType, fields)
	}
}

// NoteAttemptFail counts one failed attempt inside the active puzzle.
func (w *Watcher) NoteAttemptFail() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activePuzzle != "" {
		w.attempts++
	}
}

// NoteSnapshot stores the latest puzzle snapshot, reported with an abandon.
func (w *Watcher) NoteSnapshot(fields map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activePuzzle != "" {
		w.snapshot = fields
	}
}

// NoteCompleted suppresses the next abandon check once: a puzzle that was
// explicitly completed and then exited must not also count as abandoned.
func (w *Watcher) NoteCompleted(puzzleKey string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activePuzzle == "" || (puzzleKey != "" && puzzleKey != w.activePuzzle) {
		return
	}
	w.completed = true
}
