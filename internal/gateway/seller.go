package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"minimart/internal/protocol"
	"minimart/pkg/apierror"
)

// Seller is the seller-facing gateway. One instance serves one client
// connection and owns its caller.
type Seller struct {
	core
}

// NewSeller creates a seller gateway handler bound to a caller.
func NewSeller(customerAddr, productAddr string, caller Caller) *Seller {
	return &Seller{core: core{
		name:         "SellerGateway",
		customerAddr: customerAddr,
		productAddr:  productAddr,
		caller:       caller,
	}}
}

// Handle dispatches one seller request over the closed api set.
func (s *Seller) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	switch req.API {
	case "Ping":
		return protocol.OKResponse(req, map[string]bool{"ok": true})

	case "CreateAccount":
		return s.dbCall(ctx, s.customerAddr, "CreateSeller", req.Data, req)

	case "Login":
		return s.login(ctx, req)

	case "Logout":
		return s.logout(ctx, req)

	case "GetSellerRating", "RegisterItemForSale", "ChangeItemPrice",
		"UpdateUnitsForSale", "DisplayItemsForSale":
		sess, errResp := s.requireSession(ctx, req)
		if errResp != nil {
			return errResp
		}
		return s.handleSessioned(ctx, req, sess)

	default:
		return protocol.ErrResponse(req, apierror.Unimplemented(fmt.Sprintf("unknown api %s", req.API)))
	}
}

func (s *Seller) login(ctx context.Context, req *protocol.Request) *protocol.Response {
	var p struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := protocol.DecodeData(req.Data, &p); err != nil {
		return protocol.ErrResponse(req, apierror.InvalidArgument(err.Error()))
	}
	return s.dbCall(ctx, s.customerAddr, "Login", map[string]string{
		"role":     "seller",
		"name":     p.Name,
		"password": p.Password,
	}, req)
}

func (s *Seller) logout(ctx context.Context, req *protocol.Request) *protocol.Response {
	var p struct {
		SessionID string `json:"session_id"`
	}
	if err := protocol.DecodeData(req.Data, &p); err != nil {
		return protocol.ErrResponse(req, apierror.InvalidArgument(err.Error()))
	}
	return s.dbCall(ctx, s.customerAddr, "Logout",
		map[string]string{"session_id": p.SessionID}, req)
}

func (s *Seller) handleSessioned(ctx context.Context, req *protocol.Request, sess *sessionInfo) *protocol.Response {
	sellerID := sess.UserID

	switch req.API {
	case "GetSellerRating":
		return s.dbCall(ctx, s.customerAddr, "GetSellerRating",
			map[string]int64{"seller_id": sellerID}, req)

	case "RegisterItemForSale":
		return s.registerItemForSale(ctx, req, sellerID)

	case "ChangeItemPrice":
		var p struct {
			ItemID string  `json:"item_id"`
			Price  float64 `json:"price"`
		}
		if err := protocol.DecodeData(req.Data, &p); err != nil {
			return protocol.ErrResponse(req, apierror.InvalidArgument(err.Error()))
		}
		return s.dbCall(ctx, s.productAddr, "ChangeItemPrice",
			map[string]any{"item_id": p.ItemID, "price": p.Price}, req)

	case "UpdateUnitsForSale":
		var p struct {
			ItemID        *string `json:"item_id"`
			QuantityDelta *int    `json:"quantity_delta"`
		}
		if err := protocol.DecodeData(req.Data, &p); err != nil {
			return protocol.ErrResponse(req, apierror.InvalidArgument(err.Error()))
		}
		payload := map[string]any{}
		if p.ItemID != nil {
			payload["item_id"] = *p.ItemID
		}
		if p.QuantityDelta != nil {
			payload["quantity_delta"] = *p.QuantityDelta
		}
		return s.dbCall(ctx, s.productAddr, "UpdateUnitsForSale", payload, req)

	case "DisplayItemsForSale":
		return s.dbCall(ctx, s.productAddr, "DisplayItemsForSale",
			map[string]int64{"seller_id": sellerID}, req)
	}

	return protocol.ErrResponse(req, apierror.Unimplemented(fmt.Sprintf("unknown api %s", req.API)))
}

// registerItemForSale forwards the registration with seller_id resolved
// from the validated session, overriding anything the client sent, so a
// caller cannot register items under another seller's id.
func (s *Seller) registerItemForSale(ctx context.Context, req *protocol.Request, sellerID int64) *protocol.Response {
	var payload map[string]json.RawMessage
	if err := protocol.DecodeData(req.Data, &payload); err != nil {
		return protocol.ErrResponse(req, apierror.InvalidArgument(err.Error()))
	}
	if payload == nil {
		payload = make(map[string]json.RawMessage)
	}
	delete(payload, "session_id")

	id, err := json.Marshal(sellerID)
	if err != nil {
		return protocol.ErrResponse(req, apierror.Unavailable("failed to encode seller id"))
	}
	payload["seller_id"] = id

	return s.dbCall(ctx, s.productAddr, "RegisterItem", payload, req)
}
