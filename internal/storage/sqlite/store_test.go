package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/louisbranch/latchkey.house/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "remote.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestAddAndGetDocument(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.AddDocument(ctx, "telemetrySessions", []byte(`{"sessionId":"abc"}`))
	if err != nil {
		t.Fatalf("add document: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty document id")
	}

	payload, err := store.GetDocument(ctx, "telemetrySessions", id)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if string(payload) != `{"sessionId":"abc"}` {
		t.Fatalf("unexpected payload %q", payload)
	}
}

func TestGetMissingDocument(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.GetDocument(context.Background(), "telemetryMeta", "absent"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetDocumentUpserts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SetDocument(ctx, "telemetryMeta", "budget", []byte(`{"date":"2026-08-26","count":3}`)); err != nil {
		t.Fatalf("set document: %v", err)
	}
	if err := store.SetDocument(ctx, "telemetryMeta", "budget", []byte(`{"date":"2026-08-27","count":1}`)); err != nil {
		t.Fatalf("overwrite document: %v", err)
	}

	payload, err := store.GetDocument(ctx, "telemetryMeta", "budget")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}

	var record struct {
		Date  string `json:"date"`
		Count int64  `json:"count"`
	}
	if err := json.Unmarshal(payload, &record); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if record.Date != "2026-08-27" || record.Count != 1 {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestIncrementField(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SetDocument(ctx, "telemetryMeta", "budget", []byte(`{"date":"2026-08-27","count":5}`)); err != nil {
		t.Fatalf("set document: %v", err)
	}
	if err := store.IncrementField(ctx, "telemetryMeta", "budget", "count", 7); err != nil {
		t.Fatalf("increment field: %v", err)
	}

	payload, err := store.GetDocument(ctx, "telemetryMeta", "budget")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	var record struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(payload, &record); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if record.Count != 12 {
		t.Fatalf("expected count 12, got %d", record.Count)
	}
}

func TestIncrementFieldStartsFromZero(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SetDocument(ctx, "progress", "solves", []byte(`{}`)); err != nil {
		t.Fatalf("set document: %v", err)
	}
	if err := store.IncrementField(ctx, "progress", "solves", "mathsDoor", 1); err != nil {
		t.Fatalf("increment field: %v", err)
	}

	payload, err := store.GetDocument(ctx, "progress", "solves")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	var record struct {
		MathsDoor int64 `json:"mathsDoor"`
	}
	if err := json.Unmarshal(payload, &record); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if record.MathsDoor != 1 {
		t.Fatalf("expected count 1, got %d", record.MathsDoor)
	}
}

func TestIncrementFieldMissingDocument(t *testing.T) {
	store := openTestStore(t)

	err := store.IncrementField(context.Background(), "telemetryMeta", "absent", "count", 1)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
