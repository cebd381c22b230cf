package repository

import (
	"context"
	"errors"

	"minimart/internal/model"
)

// ErrNotFound indicates a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// CustomerStore defines persistence for accounts and carts. Read-modify-
// write sequences are NOT atomic at this level; the customer service
// serializes every operation under its own lock.
type CustomerStore interface {
	// CreateBuyer stores a buyer record and returns its assigned id.
	CreateBuyer(ctx context.Context, name, password string) (int64, error)

	// CreateSeller stores a seller record and returns its assigned id.
	CreateSeller(ctx context.Context, name, password string) (int64, error)

	// GetBuyer returns a buyer by id, or ErrNotFound.
	GetBuyer(ctx context.Context, id int64) (*model.Buyer, error)

	// GetSeller returns a seller by id, or ErrNotFound.
	GetSeller(ctx context.Context, id int64) (*model.Seller, error)

	// FindAccountByName returns the lowest-id account with the given name
	// in the role's table, or ErrNotFound.
	FindAccountByName(ctx context.Context, role, name string) (id int64, password string, err error)

	// CartQuantity returns the persisted quantity for one cart entry,
	// zero when the entry is absent.
	CartQuantity(ctx context.Context, buyerID int64, itemID string) (int, error)

	// SetCartQuantity upserts a cart entry. Callers never pass zero or
	// negative quantities; entries at zero are deleted instead.
	SetCartQuantity(ctx context.Context, buyerID int64, itemID string, quantity int) error

	// DeleteCartEntry removes one cart entry if present.
	DeleteCartEntry(ctx context.Context, buyerID int64, itemID string) error

	// GetCart returns the full cart mapping for a buyer.
	GetCart(ctx context.Context, buyerID int64) (map[string]int, error)

	// ClearCart empties a buyer's cart.
	ClearCart(ctx context.Context, buyerID int64) error

	// Stats returns row counts for the debug endpoint.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close releases the underlying store.
	Close() error
}

// ProductStore defines persistence for the item catalog.
type ProductStore interface {
	// NextItemSeq advances and returns the per-category sequence counter.
	// The counter is a persisted high-water mark independent of current
	// row count, so sequence numbers are never reused.
	NextItemSeq(ctx context.Context, category int) (int, error)

	// InsertItem stores a new catalog item.
	InsertItem(ctx context.Context, item *model.Item) error

	// GetItem returns an item by id, or ErrNotFound.
	GetItem(ctx context.Context, itemID string) (*model.Item, error)

	// SetItemPrice updates an item's price.
	SetItemPrice(ctx context.Context, itemID string, price float64) error

	// SetItemQuantity updates an item's units-for-sale count.
	SetItemQuantity(ctx context.Context, itemID string, quantity int) error

	// AddFeedback increments one feedback counter and returns the tally.
	AddFeedback(ctx context.Context, itemID string, up bool) (model.Feedback, error)

	// ItemsBySeller returns all items owned by a seller in storage order.
	ItemsBySeller(ctx context.Context, sellerID int64) ([]*model.Item, error)

	// ItemsInStock returns items with quantity > 0 in storage order,
	// optionally restricted to one category.
	ItemsInStock(ctx context.Context, category *int) ([]*model.Item, error)

	// Stats returns row counts for the debug endpoint.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close releases the underlying store.
	Close() error
}
