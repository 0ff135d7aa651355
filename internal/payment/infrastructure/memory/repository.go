package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmehra2102/restaurant-pos/internal/payment/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

type Repository struct {
	mu       sync.RWMutex
	payments map[string]domain.Payment
}

func NewRepository() *Repository {
	return &Repository{payments: make(map[string]domain.Payment)}
}

func (r *Repository) Create(_ context.Context, p domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; ok {
		return fmt.Errorf("%w: payment %s already exists", apperr.ErrConflict, p.ID)
	}
	r.payments[p.ID] = p
	return nil
}

func (r *Repository) Get(_ context.Context, id string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return domain.Payment{}, fmt.Errorf("%w: payment %s", apperr.ErrNotFound, id)
	}
	return p, nil
}

func (r *Repository) Update(_ context.Context, p domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; !ok {
		return fmt.Errorf("%w: payment %s", apperr.ErrNotFound, p.ID)
	}
	r.payments[p.ID] = p
	return nil
}

func (r *Repository) ListByOrder(_ context.Context, orderID string) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
