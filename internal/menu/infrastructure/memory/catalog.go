package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmehra2102/restaurant-pos/internal/menu/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

type Catalog struct {
	mu    sync.RWMutex
	items map[string]domain.Item
}

func NewCatalog(items ...domain.Item) *Catalog {
	c := &Catalog{items: make(map[string]domain.Item, len(items))}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

// Put replaces an item, e.g. after a price change.
func (c *Catalog) Put(it domain.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[it.ID] = it
}

func (c *Catalog) Lookup(_ context.Context, id string) (domain.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	if !ok {
		return domain.Item{}, fmt.Errorf("%w: menu item %s", apperr.ErrNotFound, id)
	}
	return it, nil
}

func (c *Catalog) List(_ context.Context, f domain.Filter) ([]domain.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Item, 0, len(c.items))
	for _, it := range c.items {
		if f.Matches(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}
