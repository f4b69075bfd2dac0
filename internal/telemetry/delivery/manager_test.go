package delivery

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/louisbranch/latchkey.house/internal/storage"
	"github.com/louisbranch/latchkey.house/internal/telemetry"
)

type fakeLocal struct {
	mu      sync.Mutex
	values  map[string][]byte
	failing bool
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{values: make(map[string][]byte)}
}

func (f *fakeLocal) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("local store unavailable")
	}
	value, ok := f.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return value, nil
}

func (f *fakeLocal) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("local store unavailable")
	}
	f.values[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeLocal) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("local store unavailable")
	}
	delete(f.values, key)
	return nil
}

func (f *fakeLocal) DeletePrefix(_ context.Context, _ string) error {
	return nil
}

type fakeRemote struct {
	mu      sync.Mutex
	added   [][]byte
	failing bool
}

func (f *fakeRemote) AddDocument(_ context.Context, _ string, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return "", errors.New("remote unavailable")
	}
	f.added = append(f.added, append([]byte(nil), payload...))
	return "doc-1", nil
}

func (f *fakeRemote) addCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

func (f *fakeRemote) GetDocument(_ context.Context, _, _ string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeRemote) SetDocument(_ context.Context, _, _ string, _ []byte) error {
	return nil
}

func (f *fakeRemote) IncrementField(_ context.Context, _, _, _ string, _ int64) error {
	return nil
}

func newTestSession(t *testing.T) *telemetry.Session {
	t.Helper()
	session, err := telemetry.NewSession("player-1", telemetry.DeviceInfo{}, telemetry.WithClock(func() time.Time {
		return time.UnixMilli(1700000000000)
	}))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return session
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestFlushDeliversAndClearsRecoveryKey(t *testing.T) {
	ctx := context.Background()
	local := newFakeLocal()
	remote := &fakeRemote{}
	session := newTestSession(t)
	session.Record("area_visit", map[string]any{"area": "area/office"})
	manager := NewManager(local, remote, session, quietLogger())

	if err := manager.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(remote.added) != 1 {
		t.Fatalf("expected 1 remote write, got %d", len(remote.added))
	}
	if _, err := local.Get(ctx, RecoveryKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("recovery key must be cleared after ack, got err=%v", err)
	}

	var payload telemetry.Payload
	if err := json.Unmarshal(remote.added[0], &payload); err != nil {
		t.Fatalf("decode delivered payload: %v", err)
	}
	if payload.SessionID != session.ID() || payload.PlayerID != "player-1" {
		t.Fatalf("unexpected payload identity: %+v", payload)
	}
	if len(payload.Events) != 1 || payload.Events[0].Type != "area_visit" {
		t.Fatalf("unexpected payload events: %+v", payload.Events)
	}
}

func TestFlushNoOpWithoutGrowth(t *testing.T) {
	ctx := context.Background()
	local := newFakeLocal()
	remote := &fakeRemote{}
	session := newTestSession(t)
	session.Record("area_visit", nil)
	manager := NewManager(local, remote, session, quietLogger())

	if err := manager.Flush(ctx); err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	if err := manager.Flush(ctx); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if len(remote.added) != 1 {
		t.Fatalf("unchanged buffer must not rewrite, got %d writes", len(remote.added))
	}

	session.Record("puzzle_start", nil)
	if err := manager.Flush(ctx); err != nil {
		t.Fatalf("third Flush: %v", err)
	}
	if len(remote.added) != 2 {
		t.Fatalf("grown buffer must flush again, got %d writes", len(remote.added))
	}
}

func TestFlushFailureKeepsRecoveryKeyAndResends(t *testing.T) {
	ctx := context.Background()
	local := newFakeLocal()
	remote := &fakeRemote{failing: true}
	session := newTestSession(t)
	session.Record("area_visit", nil)
	manager := NewManager(local, remote, session, quietLogger())

	if err := manager.Flush(ctx); err == nil {
		t.Fatal("expected flush error while remote is down")
	}
	if _, err := local.Get(ctx, RecoveryKey); err != nil {
		t.Fatalf("recovery key must survive a failed flush: %v", err)
	}

	// The next flush resends the full buffer, not a diff.
	remote.failing = false
	session.Record("puzzle_start", nil)
	if err := manager.Flush(ctx); err != nil {
		t.Fatalf("Flush after recovery: %v", err)
	}
	var payload telemetry.Payload
	if err := json.Unmarshal(remote.added[0], &payload); err != nil {
		t.Fatalf("decode delivered payload: %v", err)
	}
	if len(payload.Events) != 2 {
		t.Fatalf("expected full resend of 2 events, got %d", len(payload.Events))
	}
}

func TestRecoverPendingClearsKeyBeforeResend(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	session.Record("area_visit", nil)
	parked, err := json.Marshal(session.Snapshot())
	if err != nil {
		t.Fatalf("marshal parked payload: %v", err)
	}

	for _, failing := range []bool{false, true} {
		local := newFakeLocal()
		local.values[RecoveryKey] = parked
		remote := &fakeRemote{failing: failing}
		manager := NewManager(local, remote, session, quietLogger())

		manager.RecoverPending(ctx)

		if _, err := local.Get(ctx, RecoveryKey); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("failing=%v: recovery key must be cleared regardless of outcome, got err=%v", failing, err)
		}
		wantWrites := 1
		if failing {
			wantWrites = 0
		}
		if len(remote.added) != wantWrites {
			t.Fatalf("failing=%v: expected %d resends, got %d", failing, wantWrites, len(remote.added))
		}
	}
}

func TestRecoverPendingIgnoresMissingAndGarbage(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)

	local := newFakeLocal()
	remote := &fakeRemote{}
	manager := NewManager(local, remote, session, quietLogger())
	manager.RecoverPending(ctx)
	if len(remote.added) != 0 {
		t.Fatalf("nothing parked, nothing to resend, got %d writes", len(remote.added))
	}

	local.values[RecoveryKey] = []byte("{not json")
	manager.RecoverPending(ctx)
	if len(remote.added) != 0 {
		t.Fatalf("garbage payload must be dropped, got %d writes", len(remote.added))
	}
	if _, ok := local.values[RecoveryKey]; ok {
		t.Fatal("garbage payload must still clear the recovery key")
	}
}

func TestFlushIsSafeUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	local := newFakeLocal()
	remote := &fakeRemote{}
	session := newTestSession(t)
	manager := NewManager(local, remote, session, quietLogger())

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				session.Record("area_visit", nil)
				manager.Flush(ctx)
			}
		}()
	}
	wg.Wait()

	// After the dust settles one more flush must be a no-op: the growth
	// bookkeeping has to match the remote's last delivered snapshot.
	if err := manager.Flush(ctx); err != nil {
		t.Fatalf("final Flush: %v", err)
	}
	writes := remote.addCount()
	if err := manager.Flush(ctx); err != nil {
		t.Fatalf("repeat Flush: %v", err)
	}
	if remote.addCount() != writes {
		t.Fatalf("unchanged buffer flushed again: %d -> %d writes", writes, remote.addCount())
	}
	if _, err := local.Get(ctx, RecoveryKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("recovery key must be clear after acknowledged flushes, got err=%v", err)
	}
}
