// Package product implements the product backing service: catalog
// registration, pricing, stock levels, keyword search and feedback.
package product

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"minimart/internal/model"
	"minimart/internal/protocol"
	"minimart/internal/repository"
	"minimart/pkg/apierror"
)

// Service handles product requests under one service-wide mutex, the
// same serialization model as the customer service.
type Service struct {
	mu    sync.Mutex
	store repository.ProductStore
}

// New creates a product service over the given store.
func New(store repository.ProductStore) *Service {
	return &Service{store: store}
}

// Stats exposes store counters for the debug endpoint.
func (s *Service) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.store.Stats(ctx)
}

// Handle dispatches one request over the closed api set.
func (s *Service) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		data any
		err  error
	)
	switch req.API {
	case "Ping":
		data = map[string]float64{"now": float64(time.Now().UnixNano()) / 1e9}
	case "RegisterItem":
		data, err = s.registerItem(ctx, req)
	case "ChangeItemPrice":
		data, err = s.changeItemPrice(ctx, req)
	case "UpdateUnitsForSale":
		data, err = s.updateUnitsForSale(ctx, req)
	case "DisplayItemsForSale":
		data, err = s.displayItemsForSale(ctx, req)
	case "SearchItems":
		data, err = s.searchItems(ctx, req)
	case "GetItem":
		data, err = s.getItem(ctx, req)
	case "ProvideFeedback":
		data, err = s.provideFeedback(ctx, req)
	case "CheckAvailability":
		data, err = s.checkAvailability(ctx, req)
	default:
		err = apierror.Unimplemented(fmt.Sprintf("unknown api %s", req.API))
	}

	if err != nil {
		return protocol.ErrResponse(req, apierror.From(err))
	}
	return protocol.OKResponse(req, data)
}

func (s *Service) registerItem(ctx context.Context, req *protocol.Request) (any, error) {
	// Pointer fields distinguish absent from zero-valued: category 0,
	// price 0 and quantity 0 are all legal registrations.
	var p struct {
		Name      *string  `json:"name"`
		Category  *int     `json:"category"`
		Keywords  []string `json:"keywords"`
		Condition *string  `json:"condition"`
		Price     *float64 `json:"price"`
		Quantity  *int     `json:"quantity"`
		SellerID  *int64   `json:"seller_id"`
	}
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if p.Name == nil || p.Category == nil || p.Condition == nil ||
		p.Price == nil || p.Quantity == nil || p.SellerID == nil {
		return nil, apierror.InvalidArgument("missing required item fields")
	}
	if err := model.ValidateKeywords(p.Keywords); err != nil {
		return nil, apierror.InvalidArgument(err.Error())
	}

	seq, err := s.store.NextItemSeq(ctx, *p.Category)
	if err != nil {
		return nil, err
	}
	item := &model.Item{
		ID:        model.ItemID(*p.Category, seq),
		Name:      *p.Name,
		Category:  *p.Category,
		Seq:       seq,
		Keywords:  p.Keywords,
		Condition: *p.Condition,
		Price:     *p.Price,
		Quantity:  *p.Quantity,
		SellerID:  *p.SellerID,
	}
	if err := s.store.InsertItem(ctx, item); err != nil {
		return nil, err
	}
	return map[string]string{"item_id": item.ID}, nil
}

func (s *Service) changeItemPrice(ctx context.Context, req *protocol.Request) (any, error) {
	var p struct {
		ItemID string  `json:"item_id"`
		Price  float64 `json:"price"`
	}
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	err := s.store.SetItemPrice(ctx, p.ItemID, p.Price)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.NotFound("item not found")
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"item_id": p.ItemID, "price": p.Price}, nil
}

func (s *Service) updateUnitsForSale(ctx context.Context, req *protocol.Request) (any, error) {
	var p struct {
		ItemID        *string `json:"item_id"`
		QuantityDelta *int    `json:"quantity_delta"`
	}
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if p.ItemID == nil || p.QuantityDelta == nil {
		return nil, apierror.InvalidArgument("item_id and quantity_delta required")
	}

	item, err := s.lookupItem(ctx, *p.ItemID)
	if err != nil {
		return nil, err
	}
	newQty := item.Quantity + *p.QuantityDelta
	if newQty < 0 {
		// Rejected with no mutation.
		return nil, apierror.InvalidArgument("quantity cannot be negative")
	}
	if err := s.store.SetItemQuantity(ctx, item.ID, newQty); err != nil {
		return nil, err
	}
	return map[string]any{"item_id": item.ID, "quantity": newQty}, nil
}

func (s *Service) displayItemsForSale(ctx context.Context, req *protocol.Request) (any, error) {
	var p struct {
		SellerID int64 `json:"seller_id"`
	}
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	items, err := s.store.ItemsBySeller(ctx, p.SellerID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"items": itemsOrEmpty(items)}, nil
}

func (s *Service) searchItems(ctx context.Context, req *protocol.Request) (any, error) {
	var p struct {
		Category *int     `json:"category"`
		Keywords []string `json:"keywords"`
	}
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if len(p.Keywords) == 0 {
		return nil, apierror.InvalidArgument("keywords required")
	}
	if err := model.ValidateKeywords(p.Keywords); err != nil {
		return nil, apierror.InvalidArgument(err.Error())
	}

	candidates, err := s.store.ItemsInStock(ctx, p.Category)
	if err != nil {
		return nil, err
	}

	type scored struct {
		score int
		item  *model.Item
	}
	var matches []scored
	for _, item := range candidates {
		score := model.KeywordScore(item.Keywords, p.Keywords)
		if score == 0 {
			continue
		}
		matches = append(matches, scored{score: score, item: item})
	}
	// Descending score; ties keep underlying storage order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	items := make([]*model.Item, len(matches))
	for i, m := range matches {
		items[i] = m.item
	}
	return map[string]any{"items": itemsOrEmpty(items)}, nil
}

func (s *Service) getItem(ctx context.Context, req *protocol.Request) (any, error) {
	var p struct {
		ItemID string `json:"item_id"`
	}
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	item, err := s.lookupItem(ctx, p.ItemID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"item": item}, nil
}

func (s *Service) provideFeedback(ctx context.Context, req *protocol.Request) (any, error) {
	var p struct {
		ItemID string `json:"item_id"`
		Vote   string `json:"vote"`
	}
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if p.Vote != "up" && p.Vote != "down" {
		return nil, apierror.InvalidArgument("vote must be up or down")
	}

	fb, err := s.store.AddFeedback(ctx, p.ItemID, p.Vote == "up")
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.NotFound("item not found")
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"item_id": p.ItemID, "feedback": fb}, nil
}

func (s *Service) checkAvailability(ctx context.Context, req *protocol.Request) (any, error) {
	var p struct {
		ItemID   string `json:"item_id"`
		Quantity int    `json:"quantity"`
	}
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	item, err := s.lookupItem(ctx, p.ItemID)
	if err != nil {
		return nil, err
	}
	// A non-committing stock check, not a reservation.
	return map[string]any{
		"available": item.Quantity,
		"ok":        item.Quantity >= p.Quantity,
	}, nil
}

func (s *Service) lookupItem(ctx context.Context, itemID string) (*model.Item, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.NotFound("item not found")
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func itemsOrEmpty(items []*model.Item) []*model.Item {
	if items == nil {
		return []*model.Item{}
	}
	return items
}

func decode(req *protocol.Request, v any) error {
	if err := protocol.DecodeData(req.Data, v); err != nil {
		return apierror.InvalidArgument(err.Error())
	}
	return nil
}
