// Package timing tracks active wall-clock time for the overall session and
// the currently open puzzle, pausing while the page is hidden.
package timing

import (
	"sync"
	"time"
)

// DefaultEndDelay is how long a hide must last before it counts as a session
// end. Brief tab switches stay inside the session.
const DefaultEndDelay = 5 * time.Second

// accumulator is one pausable stopwatch.
type accumulator struct {
	start       time.Time
	accumulated time.Duration
	paused      bool
}

func (a *accumulator) pause(now time.Time) {
	if a.paused {
		return
	}
	a.accumulated += now.Sub(a.start)
	a.paused = true
}

func (a *accumulator) resume(now time.Time) {
	if !a.paused {
		return
	}
	a.start = now
	a.paused = false
}

func (a *accumulator) elapsed(now time.Time) time.Duration {
	if a.paused {
		return a.accumulated
	}
	return a.accumulated + now.Sub(a.start)
}

// Tracker holds the session and puzzle stopwatches plus the debounced
// session-end callback.
type Tracker struct {
	mu        sync.Mutex
	session   accumulator
	puzzle    accumulator
	clock     func() time.Time
	schedule  func(delay time.Duration, fn func()) (cancel func())
	endDelay  time.Duration
	onEnd     func()
	cancelEnd func()
	// endGen identifies the currently armed end callback. A real timer can
	// fire at the same instant a show cancels it; the callback re-checks
	// its generation under the lock so a canceled end never records.
	endGen uint64
	// heldPuzzle marks that the last hide paused a running puzzle
	// stopwatch, so the next show should resume it.
	heldPuzzle bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the tracker clock.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithScheduler overrides the callback scheduler.
func WithScheduler(schedule func(delay time.Duration, fn func()) (cancel func())) Option {
	return func(t *Tracker) {
		if schedule != nil {
			t.schedule = schedule
		}
	}
}

// WithEndDelay overrides the session-end debounce delay.
func WithEndDelay(delay time.Duration) Option {
	return func(t *Tracker) {
		if delay > 0 {
			t.endDelay = delay
		}
	}
}

// NewTracker creates a running tracker. onEnd fires once a hide lasts the
// full debounce delay without the page becoming visible again.
func NewTracker(onEnd func(), opts ...Option) *Tracker {
	t := &Tracker{
		clock:    time.Now,
		endDelay: DefaultEndDelay,
		onEnd:    onEnd,
	}
	t.schedule = func(delay time.Duration, fn func()) func() {
		timer := time.AfterFunc(delay, fn)
		return func() { timer.Stop() }
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	now := t.clock()
	t.session.start = now
	t.puzzle.start = now
	t.puzzle.paused = true
	t.puzzle.accumulated = 0
	return t
}

// Hide folds running time into both accumulators and arms the session-end
// callback. A second hide while already paused is a no-op on the
// accumulators and keeps the already-armed callback.
func (t *Tracker) Hide() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	t.session.pause(now)
	if !t.puzzle.paused {
		t.puzzle.pause(now)
		t.heldPuzzle = true
	}

	if t.cancelEnd != nil || t.onEnd == nil {
		return
	}
	t.endGen++
	gen := t.endGen
	t.cancelEnd = t.schedule(t.endDelay, func() {
		t.mu.Lock()
		if t.cancelEnd == nil || gen != t.endGen {
			t.mu.Unlock()
			return
		}
		t.cancelEnd = nil
		t.mu.Unlock()
		t.onEnd()
	})
}

// Show cancels a pending session end and resumes whichever accumulators a
// hide paused.
func (t *Tracker) Show() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelEnd != nil {
		t.cancelEnd()
		t.cancelEnd = nil
	}
	now := t.clock()
	t.session.resume(now)
	if t.heldPuzzle {
		t.puzzle.resume(now)
		t.heldPuzzle = false
	}
}

// ResetPuzzle restarts the puzzle stopwatch from zero, running.
func (t *Tracker) ResetPuzzle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.puzzle = accumulator{start: t.clock()}
	t.heldPuzzle = false
}

// StopPuzzle pauses the puzzle stopwatch without touching the session one.
func (t *Tracker) StopPuzzle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.puzzle.pause(t.clock())
	t.heldPuzzle = false
}

// SessionElapsed returns active session time so far.
func (t *Tracker) SessionElapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.elapsed(t.clock())
}

// PuzzleElapsed returns active time in the current puzzle so far.
func (t *Tracker) PuzzleElapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.puzzle.elapsed(t.clock())
}
