package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/louisbranch/latchkey.house/internal/game/content"
	"github.com/louisbranch/latchkey.house/internal/game/service"
	"github.com/louisbranch/latchkey.house/internal/storage"
	"github.com/louisbranch/latchkey.house/internal/telemetry"
	"github.com/louisbranch/latchkey.house/internal/telemetry/delivery"
	"github.com/louisbranch/latchkey.house/internal/telemetry/scene"
	"github.com/louisbranch/latchkey.house/internal/telemetry/timing"
)

const flushTimeout = 5 * time.Second

// telemetryRuntime bundles the analytics subsystems for one server run. A
// nil runtime is valid and inert, which is how a denied budget or a
// telemetry-free test runs the server.
type telemetryRuntime struct {
	session  *telemetry.Session
	bus      *telemetry.Bus
	tracker  *timing.Tracker
	watcher  *scene.Watcher
	delivery *delivery.Manager
	logger   *log.Logger
}

// newTelemetryRuntime wires session, bus, timers, scene watcher and delivery
// together. Recovery of a previously parked payload runs before anything is
// recorded, and the solved baseline is the first event of every session.
func newTelemetryRuntime(ctx context.Context, local storage.LocalStore, remote storage.DocumentStore, controller *service.Controller, catalog *content.Catalog, playerID string, logger *log.Logger) (*telemetryRuntime, error) {
	session, err := telemetry.NewSession(playerID, telemetry.DeviceInfo{})
	if err != nil {
		return nil, fmt.Errorf("create telemetry session: %w", err)
	}

	tele := &telemetryRuntime{
		session:  session,
		bus:      telemetry.NewBus(),
		delivery: delivery.NewManager(local, remote, session, logger),
		logger:   logger,
	}
	tele.delivery.RecoverPending(ctx)

	session.Record(telemetry.EventSolvedBaseline, map[string]any{
		"solvedPuzzles": controller.SolvedPuzzles(),
	})

	tele.tracker = timing.NewTracker(func() {
		tele.record(telemetry.EventSessionEnd, map[string]any{
			"sessionDurationMs": tele.tracker.SessionElapsed().Milliseconds(),
		})
		tele.flushAsync()
	})

	sampler := scene.SamplerFunc(func() string {
		return catalog.SceneKey(controller.History())
	})
	tele.watcher = scene.NewWatcher(scene.Config{
		Puzzles: catalog.PuzzleScenes(),
		Areas:   catalog.AreaScenes(),
		Credits: catalog.CreditsScene(),
	}, sampler, session, tele.tracker, func(ctx context.Context) {
		if err := tele.delivery.Flush(ctx); err != nil {
			logger.Printf("flush telemetry: %v", err)
		}
	}, controller.SolvedPuzzles)

	for _, signalType := range []string{
		telemetry.SignalAttemptFail,
		telemetry.SignalSubstep,
		telemetry.SignalPuzzleSnapshot,
		telemetry.SignalInfoTab,
		telemetry.SignalLinkClick,
		telemetry.SignalGameStart,
		telemetry.SignalNewGame,
		telemetry.SignalAssetLoad,
	} {
		tele.bus.Subscribe(signalType, func(signal telemetry.Signal) {
			session.Record(signal.Type, signal.Fields)
		})
	}
	tele.bus.Subscribe(telemetry.SignalAttemptFail, func(telemetry.Signal) {
		tele.watcher.NoteAttemptFail()
	})
	tele.bus.Subscribe(telemetry.SignalPuzzleSnapshot, func(signal telemetry.Signal) {
		tele.watcher.NoteSnapshot(signal.Fields)
	})

	return tele, nil
}

func (t *telemetryRuntime) record(eventType string, fields map[string]any) {
	if t == nil {
		return
	}
	t.session.Record(eventType, fields)
}

func (t *telemetryRuntime) publish(signal telemetry.Signal) {
	if t == nil {
		return
	}
	t.bus.Publish(signal)
}

// noteSolved reacts to a puzzle newly solved through the rules engine: a
// solved event, abandon suppression for the open puzzle, and a flush.
func (t *telemetryRuntime) noteSolved(puzzleKey string) {
	if t == nil {
		return
	}
	t.record(telemetry.EventPuzzleSolved, map[string]any{
		"puzzle":     puzzleKey,
		"durationMs": t.tracker.PuzzleElapsed().Milliseconds(),
	})
	t.watcher.NoteCompleted(puzzleKey)
	t.flushAsync()
}

func (t *telemetryRuntime) hide() {
	if t == nil {
		return
	}
	t.tracker.Hide()
	t.flushAsync()
}

func (t *telemetryRuntime) show() {
	if t == nil {
		return
	}
	t.tracker.Show()
}

// flushAsync delivers off the request path. Failures are logged by the
// manager and retried by whichever flush comes next.
func (t *telemetryRuntime) flushAsync() {
	if t == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := t.delivery.Flush(ctx); err != nil {
			t.logger.Printf("flush telemetry: %v", err)
		}
	}()
}

// shutdown records the session end and makes one last synchronous delivery
// attempt before the process exits.
func (t *telemetryRuntime) shutdown(ctx context.Context) {
	if t == nil {
		return
	}
	t.record(telemetry.EventSessionEnd, map[string]any{
		"sessionDurationMs": t.tracker.SessionElapsed().Milliseconds(),
	})
	if err := t.delivery.Flush(ctx); err != nil {
		t.logger.Printf("final telemetry flush: %v", err)
	}
}
