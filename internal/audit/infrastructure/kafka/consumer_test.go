package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/dmehra2102/restaurant-pos/internal/audit/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	commits   []int64
	commitErr int // number of commits to fail before succeeding
	committed chan int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr > 0 {
		r.commitErr--
		return errors.New("coordinator moved")
	}
	for _, m := range msgs {
		r.commits = append(r.commits, m.Offset)
		r.committed <- m.Offset
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type flakyIngester struct {
	mu       sync.Mutex
	failures map[string]int
	stored   []string
}

func (i *flakyIngester) Ingest(_ context.Context, f domain.Fact) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if f.Action == "" {
		return fmt.Errorf("%w: no action", apperr.ErrValidation)
	}
	if i.failures[f.ID] > 0 {
		i.failures[f.ID]--
		return errors.New("audit_logs unavailable")
	}
	i.stored = append(i.stored, f.ID)
	return nil
}

type memDeduper struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (d *memDeduper) MessageKey(topic string, partition int, offset int64) string {
	return fmt.Sprintf("%s:%d:%d", topic, partition, offset)
}

func (d *memDeduper) Seen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.keys[key] {
		return true, nil
	}
	d.keys[key] = true
	return false, nil
}

func (d *memDeduper) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	return nil
}

func factMessage(t *testing.T, offset int64, f domain.Fact) kafka.Message {
	t.Helper()
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Topic: "audit.events", Partition: 0, Offset: offset, Value: b}
}

func newTestConsumer(r messageReader, svc Ingester) *Consumer {
	return &Consumer{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		reader:   r,
		svc:      svc,
		idem:     &memDeduper{keys: map[string]bool{}},
		tracer:   otel.Tracer("audit-consumer-test"),
		minDelay: time.Millisecond,
		maxDelay: 5 * time.Millisecond,
	}
}

func runUntilCommitted(t *testing.T, c *Consumer, r *fakeReader, n int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	for i := 0; i < n; i++ {
		select {
		case <-r.committed:
		case <-time.After(2 * time.Second):
			cancel()
			t.Fatalf("only %d of %d offsets committed", i, n)
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestConsumer_FailedIngestIsRetriedBeforeLaterOffsets(t *testing.T) {
	ok := domain.Fact{ID: "f-1", Action: domain.ActionCreate, EntityType: domain.EntityOrder, EntityID: "o-1"}
	next := domain.Fact{ID: "f-2", Action: domain.ActionItemAdd, EntityType: domain.EntityOrderItem, EntityID: "i-1"}
	r := &fakeReader{
		msgs:      []kafka.Message{factMessage(t, 10, ok), factMessage(t, 11, next)},
		committed: make(chan int64, 8),
	}
	svc := &flakyIngester{failures: map[string]int{"f-1": 2}}

	runUntilCommitted(t, newTestConsumer(r, svc), r, 2)

	if len(r.commits) != 2 || r.commits[0] != 10 || r.commits[1] != 11 {
		t.Fatalf("commits = %v", r.commits)
	}
	if len(svc.stored) != 2 || svc.stored[0] != "f-1" || svc.stored[1] != "f-2" {
		t.Fatalf("stored = %v", svc.stored)
	}
}

func TestConsumer_CommitFailureIsRetried(t *testing.T) {
	f := domain.Fact{ID: "f-1", Action: domain.ActionOrderVoid, EntityType: domain.EntityOrder, EntityID: "o-1"}
	r := &fakeReader{
		msgs:      []kafka.Message{factMessage(t, 3, f)},
		commitErr: 1,
		committed: make(chan int64, 8),
	}
	svc := &flakyIngester{failures: map[string]int{}}

	runUntilCommitted(t, newTestConsumer(r, svc), r, 1)

	if len(r.commits) != 1 || r.commits[0] != 3 {
		t.Fatalf("commits = %v", r.commits)
	}
}

func TestConsumer_PoisonRecordsAreCommitted(t *testing.T) {
	r := &fakeReader{
		msgs: []kafka.Message{
			{Topic: "audit.events", Offset: 1, Value: []byte("{not json")},
			factMessage(t, 2, domain.Fact{ID: "f-bad"}),
		},
		committed: make(chan int64, 8),
	}
	svc := &flakyIngester{failures: map[string]int{}}

	runUntilCommitted(t, newTestConsumer(r, svc), r, 2)

	if len(svc.stored) != 0 {
		t.Fatalf("stored = %v", svc.stored)
	}
}
