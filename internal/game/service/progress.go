package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/louisbranch/latchkey.house/internal/storage"
)

const (
	progressCollection = "progress"
	progressDocument   = "solves"
	progressTimeout    = 5 * time.Second
)

// ProgressRecorder increments shared per-puzzle solve counters in the remote
// document store. Increments are fire-and-forget: failures are logged and
// dropped, so undercounting under remote write failures is expected.
type ProgressRecorder struct {
	remote storage.DocumentStore
	logger *log.Logger
}

// NewProgressRecorder creates a recorder against the remote store.
func NewProgressRecorder(remote storage.DocumentStore, logger *log.Logger) *ProgressRecorder {
	if logger == nil {
		logger = log.Default()
	}
	return &ProgressRecorder{remote: remote, logger: logger}
}

// RecordSolve implements rules.Recorder without blocking the reducer.
func (r *ProgressRecorder) RecordSolve(puzzleKey string) {
	if r == nil || r.remote == nil || puzzleKey == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), progressTimeout)
		defer cancel()

		err := r.remote.IncrementField(ctx, progressCollection, progressDocument, puzzleKey, 1)
		if errors.Is(err, storage.ErrNotFound) {
			if err = r.remote.SetDocument(ctx, progressCollection, progressDocument, []byte(`{}`)); err == nil {
				err = r.remote.IncrementField(ctx, progressCollection, progressDocument, puzzleKey, 1)
			}
		}
		if err != nil {
			r.logger.Printf("record solve %s: %v", puzzleKey, err)
		}
	}()
}
