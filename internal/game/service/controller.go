// Package service glues the rules engine and projections to dispatch and
// persistence: the game controller owns the live history, saves it after
// every append and restores it on boot.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/louisbranch/latchkey.house/internal/game/domain"
	"github.com/louisbranch/latchkey.house/internal/game/projection"
	"github.com/louisbranch/latchkey.house/internal/game/rules"
	"github.com/louisbranch/latchkey.house/internal/storage"
)

const (
	// HistoryKey is the local-store key holding the full history. It is the
	// sole source of truth across reloads.
	HistoryKey = "game/history"
	// ScratchPrefix is the child namespace for puzzle-local scratch keys
	// (dial positions, shape placements). Reset clears the whole namespace.
	ScratchPrefix = "game/scratch/"
)

// Controller owns the live game history.
//
// Local-store failures never fail gameplay: the history simply stops being
// persisted for this session, matching a browser running without storage.
type Controller struct {
	mu       sync.Mutex
	history  domain.History
	local    storage.LocalStore
	recorder rules.Recorder
	mode     domain.PlayerMode
	logger   *log.Logger
}

// New creates a controller with a fresh single-entry history. Call Restore to
// load a persisted one.
func New(local storage.LocalStore, recorder rules.Recorder, mode domain.PlayerMode, logger *log.Logger) *Controller {
	if recorder == nil {
		recorder = rules.NopRecorder{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		history:  domain.NewHistory(),
		local:    local,
		recorder: recorder,
		mode:     mode,
		logger:   logger,
	}
}

// Restore loads the persisted history, keeping the fresh one when nothing is
// stored or the payload does not parse.
func (c *Controller) Restore(ctx context.Context) {
	if c.local == nil {
		return
	}
	payload, err := c.local.Get(ctx, HistoryKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Printf("restore history: %v", err)
		}
		return
	}

	var restored domain.History
	if err := json.Unmarshal(payload, &restored); err != nil {
		c.logger.Printf("restore history: %v", err)
		return
	}
	if len(restored) == 0 {
		return
	}

	c.mu.Lock()
	c.history = restored
	c.mu.Unlock()
}

// AppendAction dispatches one action, persists the new history and returns
// it. A rule error leaves both the in-memory and the persisted history
// untouched.
func (c *Controller) AppendAction(ctx context.Context, action domain.Action) (domain.History, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := Append(c.history, action, c.mode, c.recorder)
	if err != nil {
		return nil, err
	}
	c.history = next
	c.persist(ctx)
	return next, nil
}

// Reset clears the persisted history and the puzzle scratch namespace and
// reinitializes the single-entry start history.
func (c *Controller) Reset(ctx context.Context) domain.History {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = domain.NewHistory()
	if c.local != nil {
		if err := c.local.Delete(ctx, HistoryKey); err != nil {
			c.logger.Printf("reset history: %v", err)
		}
		if err := c.local.DeletePrefix(ctx, ScratchPrefix); err != nil {
			c.logger.Printf("reset scratch: %v", err)
		}
	}
	return c.history
}

// History returns the current history value.
func (c *Controller) History() domain.History {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history
}

// Mode returns the player mode the controller was built with.
func (c *Controller) Mode() domain.PlayerMode {
	return c.mode
}

// SolvedPuzzles returns the puzzle keys the current state marks solved.
func (c *Controller) SolvedPuzzles() []string {
	return rules.SolvedPuzzles(projection.CurrentState(c.History()))
}

func (c *Controller) persist(ctx context.Context) {
	if c.local == nil {
		return
	}
	payload, err := json.Marshal(c.history)
	if err != nil {
		c.logger.Printf("persist history: %v", err)
		return
	}
	if err := c.local.Set(ctx, HistoryKey, payload); err != nil {
		c.logger.Printf("persist history: %v", err)
	}
}
