package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dmehra2102/restaurant-pos/internal/order/application"
	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

// Store keeps orders in process memory. One mutex covers every order, which
// is plenty for a single restaurant.
type Store struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func NewStore() *Store {
	return &Store{orders: make(map[string]domain.Order)}
}

func (s *Store) Create(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("%w: order %s already exists", apperr.ErrConflict, o.ID)
	}
	o.Version = 1
	s.orders[o.ID] = o.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order %s", apperr.ErrNotFound, id)
	}
	return o.Clone(), nil
}

func (s *Store) List(_ context.Context, f application.ListFilter) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if f.ActiveOnly && !o.Active() {
			continue
		}
		if f.TableID != "" && o.TableID != f.TableID {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber > out[j].OrderNumber })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Update runs fn on a private copy and stores it only when fn succeeds.
func (s *Store) Update(_ context.Context, id string, fn application.MutateFunc) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order %s", apperr.ErrNotFound, id)
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return domain.Order{}, err
	}
	next.Version = cur.Version + 1
	s.orders[id] = next
	return next.Clone(), nil
}

// Sequence hands out order numbers from an in-process counter.
type Sequence struct {
	n atomic.Int64
}

// NewSequence starts a counter whose first number is start+1.
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.n.Store(start)
	return s
}

func (s *Sequence) Next(context.Context) (int64, error) {
	return s.n.Add(1), nil
}
