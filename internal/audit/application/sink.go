package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/restaurant-pos/internal/audit/domain"
)

var ErrQueueFull = errors.New("audit queue full")

type NopSink struct{}

func (NopSink) Record(context.Context, domain.Fact) error { return nil }

// AsyncSink hands facts to a background worker so producers never wait on
// the underlying sink. Facts arriving while the buffer is full are dropped.
// The span of the recording request travels with each fact so the outbox
// row still links to its trace.
type AsyncSink struct {
	log   *slog.Logger
	next  Sink
	queue chan queuedFact
}

type queuedFact struct {
	fact domain.Fact
	span trace.SpanContext
}

func NewAsyncSink(log *slog.Logger, next Sink, buffer int) *AsyncSink {
	return &AsyncSink{log: log, next: next, queue: make(chan queuedFact, buffer)}
}

func (s *AsyncSink) Record(ctx context.Context, f domain.Fact) error {
	select {
	case s.queue <- queuedFact{fact: f, span: trace.SpanContextFromContext(ctx)}:
		return nil
	default:
		s.log.Warn("audit fact dropped", "action", f.Action, "entity_id", f.EntityID)
		return ErrQueueFull
	}
}

// Run forwards queued facts until ctx is cancelled, then flushes what is left.
func (s *AsyncSink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case q := <-s.queue:
			s.forward(ctx, q)
		}
	}
}

func (s *AsyncSink) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case q := <-s.queue:
			s.forward(ctx, q)
		default:
			return
		}
	}
}

func (s *AsyncSink) forward(ctx context.Context, q queuedFact) {
	if q.span.IsValid() {
		ctx = trace.ContextWithSpanContext(ctx, q.span)
	}
	f := q.fact
	if err := s.next.Record(ctx, f); err != nil {
		s.log.Error("audit record failed", "action", f.Action, "entity_id", f.EntityID, "err", err)
	}
}

// MemorySink keeps facts in memory, newest last.
type MemorySink struct {
	mu    sync.Mutex
	facts []domain.Fact
}

func (m *MemorySink) Record(_ context.Context, f domain.Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts = append(m.facts, f)
	return nil
}

func (m *MemorySink) Facts() []domain.Fact {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Fact, len(m.facts))
	copy(out, m.facts)
	return out
}
