// Package customer implements the customer backing service: buyer and
// seller accounts, sessions, and per-buyer shopping carts.
package customer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"minimart/internal/model"
	"minimart/internal/protocol"
	"minimart/internal/repository"
	"minimart/internal/session"
	"minimart/pkg/apierror"
)

// Service handles customer requests. Every operation runs under one
// service-wide mutex so read-modify-write sequences never interleave;
// correctness here is bought with serialization, not fine-grained locks.
type Service struct {
	mu       sync.Mutex
	store    repository.CustomerStore
	sessions session.Store
}

// New creates a customer service over the given stores.
func New(store repository.CustomerStore, sessions session.Store) *Service {
	return &Service{store: store, sessions: sessions}
}

// Stats exposes store counters for the debug endpoint.
func (s *Service) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.store.Stats(ctx)
}

// Handle dispatches one request. The api set is closed: every name the
// service answers is enumerated here, anything else is UNIMPLEMENTED.
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
	case "CreateBuyer":
		data, err = s.createBuyer(ctx, req)
	case "CreateSeller":
		data, err = s.createSeller(ctx, req)
	case "Login":
		data, err = s.login(ctx, req)
	case "Logout":
		data, err = s.logout(ctx, req)
	case "ValidateSession":
		data, err = s.validateSession(ctx, req)
	case "GetSellerRating":
		data, err = s.getSellerRating(ctx, req)
	case "GetBuyerPurchases":
		data, err = s.getBuyerPurchases(ctx, req)
	case "GetCart":
		data, err = s.getCart(ctx, req)
	case "UpdateCart":
		data, err = s.updateCart(ctx, req)
	case "ClearCart":
		data, err = s.clearCart(ctx, req)
	default:
		err = apierror.Unimplemented(fmt.Sprintf("unknown api %s", req.API))
	}

	if err != nil {
		return protocol.ErrResponse(req, apierror.From(err))
	}
	return protocol.OKResponse(req, data)
}

type credentialsParams struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Service) createBuyer(ctx context.Context, req *protocol.Request) (any, error) {
	var p credentialsParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if err := validateCredentials(p); err != nil {
		return nil, err
	}
	id, err := s.store.CreateBuyer(ctx, p.Name, p.Password)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"buyer_id": id}, nil
}

func (s *Service) createSeller(ctx context.Context, req *protocol.Request) (any, error) {
	var p credentialsParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if err := validateCredentials(p); err != nil {
		return nil, err
	}
	id, err := s.store.CreateSeller(ctx, p.Name, p.Password)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"seller_id": id}, nil
}

func validateCredentials(p credentialsParams) error {
	if p.Name == "" || p.Password == "" {
		return apierror.InvalidArgument("name and password required")
	}
	// Limits count characters, not bytes.
	if utf8.RuneCountInString(p.Name) > model.MaxNameLen {
		return apierror.InvalidArgument(fmt.Sprintf("name must be at most %d characters", model.MaxNameLen))
	}
	return nil
}

func (s *Service) login(ctx context.Context, req *protocol.Request) (any, error) {
	var p struct {
		Role     string `json:"role"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if !model.ValidRole(p.Role) {
		return nil, apierror.InvalidArgument("role must be buyer or seller")
	}

	userID, password, err := s.store.FindAccountByName(ctx, p.Role, p.Name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.AuthFailed("")
	}
	if err != nil {
		return nil, err
	}
	// Opaque equality, no hashing: the store never interprets the secret.
	if password != p.Password {
		return nil, apierror.AuthFailed("")
	}

	token, err := s.sessions.Create(ctx, p.Role, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"session_id": token,
		"user_id":    userID,
		"role":       p.Role,
	}, nil
}

type sessionParams struct {
	SessionID string `json:"session_id"`
}

func (s *Service) logout(ctx context.Context, req *protocol.Request) (any, error) {
	var p sessionParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if p.SessionID == "" {
		return nil, apierror.InvalidArgument("session_id required")
	}
	// Idempotent: logging out an absent token still succeeds.
	if err := s.sessions.Delete(ctx, p.SessionID); err != nil {
		return nil, err
	}
	return map[string]bool{"logged_out": true}, nil
}

func (s *Service) validateSession(ctx context.Context, req *protocol.Request) (any, error) {
	var p sessionParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if p.SessionID == "" {
		return nil, apierror.InvalidArgument("session_id required")
	}

	sess, err := s.sessions.Get(ctx, p.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, apierror.NotLoggedIn("invalid session")
	}
	if errors.Is(err, session.ErrExpired) {
		return nil, apierror.SessionTimeout("session expired")
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"role": sess.Role, "user_id": sess.UserID}, nil
}

func (s *Service) getSellerRating(ctx context.Context, req *protocol.Request) (any, error) {
	var p struct {
		SellerID int64 `json:"seller_id"`
	}
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	seller, err := s.store.GetSeller(ctx, p.SellerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.NotFound("seller not found")
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"seller_id": seller.ID,
		"feedback":  model.Feedback{Up: seller.FeedbackUp, Down: seller.FeedbackDown},
	}, nil
}

type buyerParams struct {
	BuyerID int64 `json:"buyer_id"`
}

func (s *Service) getBuyerPurchases(ctx context.Context, req *protocol.Request) (any, error) {
	var p buyerParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	buyer, err := s.lookupBuyer(ctx, p.BuyerID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"buyer_id":        buyer.ID,
		"purchases_count": buyer.PurchasesCount,
	}, nil
}

func (s *Service) getCart(ctx context.Context, req *protocol.Request) (any, error) {
	var p buyerParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	buyer, err := s.lookupBuyer(ctx, p.BuyerID)
	if err != nil {
		return nil, err
	}
	cart, err := s.store.GetCart(ctx, buyer.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"cart": cart}, nil
}

func (s *Service) updateCart(ctx context.Context, req *protocol.Request) (any, error) {
	var p struct {
		BuyerID       int64  `json:"buyer_id"`
		ItemID        string `json:"item_id"`
		QuantityDelta int    `json:"quantity_delta"`
	}
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if p.ItemID == "" || p.QuantityDelta == 0 {
		return nil, apierror.InvalidArgument("item_id and quantity_delta required")
	}
	buyer, err := s.lookupBuyer(ctx, p.BuyerID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.CartQuantity(ctx, buyer.ID, p.ItemID)
	if err != nil {
		return nil, err
	}
	newQty := current + p.QuantityDelta
	if newQty < 0 {
		// Rejected atomically: the store is left unchanged.
		return nil, apierror.InvalidArgument("cart quantity cannot be negative")
	}
	if newQty == 0 {
		err = s.store.DeleteCartEntry(ctx, buyer.ID, p.ItemID)
	} else {
		err = s.store.SetCartQuantity(ctx, buyer.ID, p.ItemID, newQty)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"item_id": p.ItemID, "quantity": newQty}, nil
}

func (s *Service) clearCart(ctx context.Context, req *protocol.Request) (any, error) {
	var p buyerParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	buyer, err := s.lookupBuyer(ctx, p.BuyerID)
	if err != nil {
		return nil, err
	}
	if err := s.store.ClearCart(ctx, buyer.ID); err != nil {
		return nil, err
	}
	return map[string]bool{"cleared": true}, nil
}

func (s *Service) lookupBuyer(ctx context.Context, id int64) (*model.Buyer, error) {
	buyer, err := s.store.GetBuyer(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.NotFound("buyer not found")
	}
	if err != nil {
		return nil, err
	}
	return buyer, nil
}

func decode(req *protocol.Request, v any) error {
	if err := protocol.DecodeData(req.Data, v); err != nil {
		return apierror.InvalidArgument(err.Error())
	}
	return nil
}
