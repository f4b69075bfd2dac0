package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// LocalStore persists small string-keyed payloads on the player's machine.
//
// It mirrors a browser localStorage surface: callers must tolerate every
// method failing (quota exceeded, private mode, unwritable disk) and carry on
// without persistence.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key under a child namespace, such as the
	// per-puzzle scratch keys cleared by a game reset.
	DeletePrefix(ctx context.Context, prefix string) error
}

// DocumentStore is the remote append-only collection store consumed by the
// telemetry pipeline.
//
// AddDocument appends a new record to a named collection. GetDocument and
// SetDocument address a single well-known record, used for the shared budget
// counter. IncrementField adjusts one numeric field atomically so concurrent
// sessions on different clients do not race a read-modify-write cycle; the
// result is best-effort, not linearizable.
type DocumentStore interface {
	AddDocument(ctx context.Context, collection string, payload []byte) (string, error)
	GetDocument(ctx context.Context, collection, id string) ([]byte, error)
	SetDocument(ctx context.Context, collection, id string, payload []byte) error
	IncrementField(ctx context.Context, collection, id, field string, delta int64) error
}
