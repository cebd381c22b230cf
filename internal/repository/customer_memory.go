package repository

import (
	"context"
	"fmt"
	"sync"

	"minimart/internal/model"
)

// MemoryCustomerStore is an in-memory CustomerStore for tests and
// ephemeral single-process runs. Nothing is persisted across restarts.
type MemoryCustomerStore struct {
	mu      sync.RWMutex
	buyers  map[int64]*model.Buyer
	sellers map[int64]*model.Seller
	carts   map[int64]map[string]int

	nextBuyerID  int64
	nextSellerID int64
}

// NewMemoryCustomerStore creates an empty in-memory customer store.
func NewMemoryCustomerStore() *MemoryCustomerStore {
	return &MemoryCustomerStore{
		buyers:  make(map[int64]*model.Buyer),
		sellers: make(map[int64]*model.Seller),
		carts:   make(map[int64]map[string]int),
	}
}

// CreateBuyer stores a buyer record and returns its assigned id.
func (s *MemoryCustomerStore) CreateBuyer(ctx context.Context, name, password string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextBuyerID++
	s.buyers[s.nextBuyerID] = &model.Buyer{ID: s.nextBuyerID, Name: name, Password: password}
	return s.nextBuyerID, nil
}

// CreateSeller stores a seller record and returns its assigned id.
func (s *MemoryCustomerStore) CreateSeller(ctx context.Context, name, password string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSellerID++
	s.sellers[s.nextSellerID] = &model.Seller{ID: s.nextSellerID, Name: name, Password: password}
	return s.nextSellerID, nil
}

// GetBuyer returns a buyer by id.
func (s *MemoryCustomerStore) GetBuyer(ctx context.Context, id int64) (*model.Buyer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buyers[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *b
	return &copied, nil
}

// GetSeller returns a seller by id.
func (s *MemoryCustomerStore) GetSeller(ctx context.Context, id int64) (*model.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.sellers[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *sl
	return &copied, nil
}

// FindAccountByName returns the lowest-id account with the given name.
func (s *MemoryCustomerStore) FindAccountByName(ctx context.Context, role, name string) (int64, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bestID int64
	var password string
	switch role {
	case model.RoleBuyer:
		for id, b := range s.buyers {
			if b.Name == name && (bestID == 0 || id < bestID) {
				bestID, password = id, b.Password
			}
		}
	case model.RoleSeller:
		for id, sl := range s.sellers {
			if sl.Name == name && (bestID == 0 || id < bestID) {
				bestID, password = id, sl.Password
			}
		}
	default:
		return 0, "", fmt.Errorf("unknown role %q", role)
	}
	if bestID == 0 {
		return 0, "", ErrNotFound
	}
	return bestID, password, nil
}

// CartQuantity returns the persisted quantity, zero when absent.
func (s *MemoryCustomerStore) CartQuantity(ctx context.Context, buyerID int64, itemID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.carts[buyerID][itemID], nil
}

// SetCartQuantity upserts a cart entry.
func (s *MemoryCustomerStore) SetCartQuantity(ctx context.Context, buyerID int64, itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[buyerID]
	if !ok {
		cart = make(map[string]int)
		s.carts[buyerID] = cart
	}
	cart[itemID] = quantity
	return nil
}

// DeleteCartEntry removes one cart entry.
func (s *MemoryCustomerStore) DeleteCartEntry(ctx context.Context, buyerID int64, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts[buyerID], itemID)
	return nil
}

// GetCart returns a copy of the buyer's cart.
func (s *MemoryCustomerStore) GetCart(ctx context.Context, buyerID int64) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart := make(map[string]int, len(s.carts[buyerID]))
	for itemID, qty := range s.carts[buyerID] {
		cart[itemID] = qty
	}
	return cart, nil
}

// ClearCart empties a buyer's cart.
func (s *MemoryCustomerStore) ClearCart(ctx context.Context, buyerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, buyerID)
	return nil
}

// Stats returns record counts.
func (s *MemoryCustomerStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := 0
	for _, cart := range s.carts {
		entries += len(cart)
	}
	return map[string]interface{}{
		"backend":      "memory",
		"buyers":       len(s.buyers),
		"sellers":      len(s.sellers),
		"cart_entries": entries,
	}, nil
}

// Close is a no-op for the memory store.
func (s *MemoryCustomerStore) Close() error { return nil }

var _ CustomerStore = (*MemoryCustomerStore)(nil)
