// Package budget caps how many telemetry documents all active players may
// write to the remote store per UTC day.
package budget

import (
	"context"
	"errors"
	"log"
	"time"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/latchkey.house/internal/storage"
)

// DefaultDailyCeiling is the shared daily write quota.
const DefaultDailyCeiling = 300

// Collection and DocumentID address the shared counter document.
const (
	Collection = "telemetryMeta"
	DocumentID = "budget"
)

// counter is the persisted quota document.
type counter struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Gate decides once per boot whether telemetry may run today.
type Gate struct {
	remote  storage.DocumentStore
	ceiling int64
	clock   func() time.Time
	logger  *log.Logger
	tracer  trace.Tracer
}

// Option configures a Gate.
type Option func(*Gate)

// WithCeiling overrides the daily write quota.
func WithCeiling(ceiling int64) Option {
	return func(g *Gate) {
		if ceiling > 0 {
			g.ceiling = ceiling
		}
	}
}

// WithClock overrides the gate clock.
func WithClock(clock func() time.Time) Option {
	return func(g *Gate) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// NewGate creates a budget gate. logger may be nil.
func NewGate(remote storage.DocumentStore, logger *log.Logger, opts ...Option) *Gate {
	if logger == nil {
		logger = log.Default()
	}
	g := &Gate{
		remote:  remote,
		ceiling: DefaultDailyCeiling,
		clock:   time.Now,
		logger:  logger,
		tracer:  otel.Tracer("latchkey.house/telemetry/budget"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Reserve claims estimatedWrites against today's quota and reports whether
// telemetry may run. The counter is shared across all players, keyed by UTC
// date; a stale or missing document resets the day.
//
// The quota protects against runaway spend, not abuse, so any remote failure
// fails open: a session is worth more than strict accounting.
func (g *Gate) Reserve(ctx context.Context, estimatedWrites int64) bool {
	if g == nil || g.remote == nil {
		return false
	}
	ctx, span := g.tracer.Start(ctx, "budget.Reserve")
	defer span.End()
	if estimatedWrites < 1 {
		estimatedWrites = 1
	}
	today := g.clock().UTC().Format("2006-01-02")
	span.SetAttributes(attribute.String("budget.date", today))

	data, err := g.remote.GetDocument(ctx, Collection, DocumentID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		g.logger.Printf("read telemetry budget: %v", err)
		return true
	}

	var current counter
	if err == nil {
		if err := json.Unmarshal(data, &current); err != nil {
			g.logger.Printf("decode telemetry budget: %v", err)
			current = counter{}
		}
	}

	if current.Date != today {
		fresh, err := json.Marshal(counter{Date: today, Count: estimatedWrites})
		if err != nil {
			return true
		}
		if err := g.remote.SetDocument(ctx, Collection, DocumentID, fresh); err != nil {
			g.logger.Printf("reset telemetry budget: %v", err)
		}
		return true
	}

	if current.Count >= g.ceiling {
		span.SetAttributes(attribute.Bool("budget.denied", true))
		return false
	}

	if err := g.remote.IncrementField(ctx, Collection, DocumentID, "count", estimatedWrites); err != nil {
		g.logger.Printf("reserve telemetry budget: %v", err)
	}
	return true
}
