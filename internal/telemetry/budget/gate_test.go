package budget

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/louisbranch/latchkey.house/internal/storage"
)

type fakeRemote struct {
	doc        []byte
	getErr     error
	setErr     error
	incErr     error
	sets       int
	increments []int64
}

func (f *fakeRemote) AddDocument(_ context.Context, _ string, _ []byte) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeRemote) GetDocument(_ context.Context, _, _ string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.doc == nil {
		return nil, storage.ErrNotFound
	}
	return f.doc, nil
}

func (f *fakeRemote) SetDocument(_ context.Context, _, _ string, payload []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.doc = append([]byte(nil), payload...)
	return nil
}

func (f *fakeRemote) IncrementField(_ context.Context, _, _, _ string, delta int64) error {
	if f.incErr != nil {
		return f.incErr
	}
	f.increments = append(f.increments, delta)
	return nil
}

func fixedClock(value string) func() time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return parsed }
}

func counterDoc(t *testing.T, date string, count int64) []byte {
	t.Helper()
	data, err := json.Marshal(counter{Date: date, Count: count})
	if err != nil {
		t.Fatalf("marshal counter: %v", err)
	}
	return data
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestReserveMissingDocumentResetsAndGrants(t *testing.T) {
	remote := &fakeRemote{}
	gate := NewGate(remote, quietLogger(), WithClock(fixedClock("2026-08-27")))

	if !gate.Reserve(context.Background(), 40) {
		t.Fatal("missing counter must grant")
	}
	if remote.sets != 1 {
		t.Fatalf("expected 1 reset write, got %d", remote.sets)
	}
	var current counter
	if err := json.Unmarshal(remote.doc, &current); err != nil {
		t.Fatalf("decode counter: %v", err)
	}
	if current.Date != "2026-08-27" || current.Count != 40 {
		t.Fatalf("unexpected counter after reset: %+v", current)
	}
}

func TestReserveStaleDateRollsOver(t *testing.T) {
	remote := &fakeRemote{doc: nil}
	remote.doc = counterDoc(t, "2026-08-26", 299)
	gate := NewGate(remote, quietLogger(), WithClock(fixedClock("2026-08-27")))

	if !gate.Reserve(context.Background(), 40) {
		t.Fatal("stale counter must grant after rollover")
	}
	var current counter
	if err := json.Unmarshal(remote.doc, &current); err != nil {
		t.Fatalf("decode counter: %v", err)
	}
	if current.Date != "2026-08-27" || current.Count != 40 {
		t.Fatalf("rollover must reset to the estimate: %+v", current)
	}
	if len(remote.increments) != 0 {
		t.Fatalf("rollover must not also increment, got %v", remote.increments)
	}
}

func TestReserveUnderCeilingIncrements(t *testing.T) {
	remote := &fakeRemote{doc: nil}
	remote.doc = counterDoc(t, "2026-08-27", 100)
	gate := NewGate(remote, quietLogger(), WithClock(fixedClock("2026-08-27")))

	if !gate.Reserve(context.Background(), 40) {
		t.Fatal("count under ceiling must grant")
	}
	if len(remote.increments) != 1 || remote.increments[0] != 40 {
		t.Fatalf("expected one increment of 40, got %v", remote.increments)
	}
	if remote.sets != 0 {
		t.Fatalf("same-day grant must not reset the counter, got %d sets", remote.sets)
	}
}

func TestReserveAtCeilingDenies(t *testing.T) {
	remote := &fakeRemote{doc: nil}
	remote.doc = counterDoc(t, "2026-08-27", DefaultDailyCeiling)
	gate := NewGate(remote, quietLogger(), WithClock(fixedClock("2026-08-27")))

	if gate.Reserve(context.Background(), 1) {
		t.Fatal("count at ceiling must deny")
	}
	if len(remote.increments) != 0 || remote.sets != 0 {
		t.Fatal("a denial must not write anything")
	}
}

func TestReserveFailsOpenOnRemoteErrors(t *testing.T) {
	gate := NewGate(&fakeRemote{getErr: errors.New("remote down")}, quietLogger(),
		WithClock(fixedClock("2026-08-27")))
	if !gate.Reserve(context.Background(), 40) {
		t.Fatal("read failure must fail open")
	}

	remote := &fakeRemote{incErr: errors.New("remote down")}
	remote.doc = counterDoc(t, "2026-08-27", 10)
	gate = NewGate(remote, quietLogger(), WithClock(fixedClock("2026-08-27")))
	if !gate.Reserve(context.Background(), 40) {
		t.Fatal("increment failure must fail open")
	}
}

func TestReserveCustomCeiling(t *testing.T) {
	remote := &fakeRemote{doc: nil}
	remote.doc = counterDoc(t, "2026-08-27", 5)
	gate := NewGate(remote, quietLogger(), WithClock(fixedClock("2026-08-27")), WithCeiling(5))

	if gate.Reserve(context.Background(), 1) {
		t.Fatal("custom ceiling must be honored")
	}
}
