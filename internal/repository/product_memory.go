package repository

import (
	"context"
	"sync"

	"minimart/internal/model"
)

// MemoryProductStore is an in-memory ProductStore for tests and ephemeral
// runs. Items are kept in insertion order, which defines storage order
// for listing and search tie-breaks.
type MemoryProductStore struct {
	mu       sync.RWMutex
	items    []*model.Item
	index    map[string]*model.Item
	counters map[int]int
}

// NewMemoryProductStore creates an empty in-memory product store.
func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{
		index:    make(map[string]*model.Item),
		counters: make(map[int]int),
	}
}

// NextItemSeq advances and returns the per-category sequence counter.
func (s *MemoryProductStore) NextItemSeq(ctx context.Context, category int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[category]++
	return s.counters[category], nil
}

// InsertItem stores a new catalog item.
func (s *MemoryProductStore) InsertItem(ctx context.Context, item *model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := cloneItem(item)
	s.items = append(s.items, copied)
	s.index[copied.ID] = copied
	return nil
}

// GetItem returns an item by id.
func (s *MemoryProductStore) GetItem(ctx context.Context, itemID string) (*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.index[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneItem(item), nil
}

// SetItemPrice updates an item's price.
func (s *MemoryProductStore) SetItemPrice(ctx context.Context, itemID string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.index[itemID]
	if !ok {
		return ErrNotFound
	}
	item.Price = price
	return nil
}

// SetItemQuantity updates an item's units-for-sale count.
func (s *MemoryProductStore) SetItemQuantity(ctx context.Context, itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.index[itemID]
	if !ok {
		return ErrNotFound
	}
	item.Quantity = quantity
	return nil
}

// AddFeedback increments one feedback counter and returns the tally.
func (s *MemoryProductStore) AddFeedback(ctx context.Context, itemID string, up bool) (model.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.index[itemID]
	if !ok {
		return model.Feedback{}, ErrNotFound
	}
	if up {
		item.Feedback.Up++
	} else {
		item.Feedback.Down++
	}
	return item.Feedback, nil
}

// ItemsBySeller returns all items owned by a seller in storage order.
func (s *MemoryProductStore) ItemsBySeller(ctx context.Context, sellerID int64) ([]*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Item
	for _, item := range s.items {
		if item.SellerID == sellerID {
			out = append(out, cloneItem(item))
		}
	}
	return out, nil
}

// ItemsInStock returns items with quantity > 0 in storage order.
func (s *MemoryProductStore) ItemsInStock(ctx context.Context, category *int) ([]*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Item
	for _, item := range s.items {
		if item.Quantity <= 0 {
			continue
		}
		if category != nil && item.Category != *category {
			continue
		}
		out = append(out, cloneItem(item))
	}
	return out, nil
}

// Stats returns record counts.
func (s *MemoryProductStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"backend":    "memory",
		"items":      len(s.items),
		"categories": len(s.counters),
	}, nil
}

// Close is a no-op for the memory store.
func (s *MemoryProductStore) Close() error { return nil }

func cloneItem(item *model.Item) *model.Item {
	copied := *item
	copied.Keywords = append([]string(nil), item.Keywords...)
	return &copied
}

var _ ProductStore = (*MemoryProductStore)(nil)
