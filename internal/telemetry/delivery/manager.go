// Package delivery moves buffered telemetry to the remote document store,
// parking each payload in the local store first so a crash between flush and
// acknowledgement can be recovered on the next start.
package delivery

import (
	"context"
	"fmt"
	"log"
	"sync"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/latchkey.house/internal/storage"
	"github.com/louisbranch/latchkey.house/internal/telemetry"
)

// Collection is the remote collection session payloads land in.
const Collection = "telemetrySessions"

// RecoveryKey is the local key holding the last unacknowledged payload.
const RecoveryKey = "telemetry/pending"

// Manager flushes session payloads to the remote store.
//
// Flush is at-least-once until success: the payload stays under the recovery
// key until the remote write is acknowledged, so duplicates are possible and
// are deduplicated downstream by session id. Recovery is deliberately
// at-most-once instead.
type Manager struct {
	mu          sync.Mutex
	local       storage.LocalStore
	remote      storage.DocumentStore
	session     *telemetry.Session
	logger      *log.Logger
	tracer      trace.Tracer
	lastFlushed int
}

// NewManager creates a delivery manager. logger may be nil.
func NewManager(local storage.LocalStore, remote storage.DocumentStore, session *telemetry.Session, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		local:   local,
		remote:  remote,
		session: session,
		logger:  logger,
		tracer:  otel.Tracer("latchkey.house/telemetry/delivery"),
	}
}

// Flush snapshots the session and delivers it remotely. It is a no-op when
// the buffer has not grown since the last flush. Failures are logged and the
// payload stays parked locally; the next flush resends the whole buffer.
func (m *Manager) Flush(ctx context.Context) error {
	if m == nil || m.session == nil {
		return nil
	}
	ctx, span := m.tracer.Start(ctx, "delivery.Flush")
	defer span.End()

	// Hide transitions, solves and shutdown all flush concurrently; one
	// flush at a time keeps the park-then-send sequence and the growth
	// bookkeeping coherent.
	m.mu.Lock()
	defer m.mu.Unlock()

	payload := m.session.Snapshot()
	if len(payload.Events) == m.lastFlushed {
		return nil
	}
	span.SetAttributes(attribute.Int("telemetry.events", len(payload.Events)))

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telemetry payload: %w", err)
	}
	if err := m.local.Set(ctx, RecoveryKey, data); err != nil {
		m.logger.Printf("park telemetry payload: %v", err)
	}

	if _, err := m.remote.AddDocument(ctx, Collection, data); err != nil {
		m.logger.Printf("deliver telemetry payload: %v", err)
		return fmt.Errorf("deliver telemetry payload: %w", err)
	}

	m.lastFlushed = len(payload.Events)
	if err := m.local.Delete(ctx, RecoveryKey); err != nil {
		m.logger.Printf("clear telemetry recovery key: %v", err)
	}
	return nil
}

// RecoverPending resends a payload parked by a previous run, if any. The key
// is cleared before the resend: a payload that fails again is dropped rather
// than retried forever, so recovery delivers at most once.
func (m *Manager) RecoverPending(ctx context.Context) {
	if m == nil {
		return
	}
	ctx, span := m.tracer.Start(ctx, "delivery.RecoverPending")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.local.Get(ctx, RecoveryKey)
	if err != nil {
		return
	}
	if err := m.local.Delete(ctx, RecoveryKey); err != nil {
		m.logger.Printf("clear telemetry recovery key: %v", err)
	}

	var payload telemetry.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		m.logger.Printf("decode recovered telemetry payload: %v", err)
		return
	}
	if payload.SessionID == "" || len(payload.Events) == 0 {
		return
	}
	if _, err := m.remote.AddDocument(ctx, Collection, data); err != nil {
		m.logger.Printf("resend recovered telemetry payload: %v", err)
	}
}
