package gateway

import (
	"context"
	"fmt"

	"minimart/internal/protocol"
	"minimart/pkg/apierror"
)

// Buyer is the buyer-facing gateway. One instance serves one client
// connection and owns its caller.
type Buyer struct {
	core
}

// NewBuyer creates a buyer gateway handler bound to a caller.
func NewBuyer(customerAddr, productAddr string, caller Caller) *Buyer {
	return &Buyer{core: core{
		name:         "BuyerGateway",
		customerAddr: customerAddr,
		productAddr:  productAddr,
		caller:       caller,
	}}
}

// Handle dispatches one buyer request over the closed api set.
func (b *Buyer) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	switch req.API {
	case "Ping":
		return protocol.OKResponse(req, map[string]bool{"ok": true})

	case "CreateAccount":
		return b.dbCall(ctx, b.customerAddr, "CreateBuyer", req.Data, req)

	case "Login":
		return b.login(ctx, req)

	case "Logout":
		return b.logout(ctx, req)

	case "SearchItemsForSale":
		return b.dbCall(ctx, b.productAddr, "SearchItems", req.Data, req)

	case "GetItem":
		return b.dbCall(ctx, b.productAddr, "GetItem", req.Data, req)

	case "AddItemToCart", "RemoveItemFromCart", "SaveCart", "ClearCart",
		"DisplayCart", "ProvideFeedback", "GetSellerRating", "GetBuyerPurchases":
		sess, errResp := b.requireSession(ctx, req)
		if errResp != nil {
			return errResp
		}
		return b.handleSessioned(ctx, req, sess)

	default:
		return protocol.ErrResponse(req, apierror.Unimplemented(fmt.Sprintf("unknown api %s", req.API)))
	}
}

func (b *Buyer) login(ctx context.Context, req *protocol.Request) *protocol.Response {
	var p struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := protocol.DecodeData(req.Data, &p); err != nil {
		return protocol.ErrResponse(req, apierror.InvalidArgument(err.Error()))
	}
	return b.dbCall(ctx, b.customerAddr, "Login", map[string]string{
		"role":     "buyer",
		"name":     p.Name,
		"password": p.Password,
	}, req)
}

func (b *Buyer) logout(ctx context.Context, req *protocol.Request) *protocol.Response {
	var p struct {
		SessionID string `json:"session_id"`
	}
	if err := protocol.DecodeData(req.Data, &p); err != nil {
		return protocol.ErrResponse(req, apierror.InvalidArgument(err.Error()))
	}
	return b.dbCall(ctx, b.customerAddr, "Logout",
		map[string]string{"session_id": p.SessionID}, req)
}

func (b *Buyer) handleSessioned(ctx context.Context, req *protocol.Request, sess *sessionInfo) *protocol.Response {
	buyerID := sess.UserID

	switch req.API {
	case "AddItemToCart":
		return b.addItemToCart(ctx, req, buyerID)

	case "RemoveItemFromCart":
		itemID, qty, errResp := b.cartItemParams(req)
		if errResp != nil {
			return errResp
		}
		return b.dbCall(ctx, b.customerAddr, "UpdateCart", map[string]any{
			"buyer_id":       buyerID,
			"item_id":        itemID,
			"quantity_delta": -qty,
		}, req)

	case "SaveCart":
		// Carts are persisted on every UpdateCart; this is an
		// API-compatibility stub.
		return protocol.OKResponse(req, map[string]bool{"saved": true})

	case "ClearCart":
		return b.dbCall(ctx, b.customerAddr, "ClearCart",
			map[string]int64{"buyer_id": buyerID}, req)

	case "DisplayCart":
		return b.dbCall(ctx, b.customerAddr, "GetCart",
			map[string]int64{"buyer_id": buyerID}, req)

	case "ProvideFeedback":
		var p struct {
			ItemID string `json:"item_id"`
			Vote   string `json:"vote"`
		}
		if err := protocol.DecodeData(req.Data, &p); err != nil {
			return protocol.ErrResponse(req, apierror.InvalidArgument(err.Error()))
		}
		return b.dbCall(ctx, b.productAddr, "ProvideFeedback",
			map[string]string{"item_id": p.ItemID, "vote": p.Vote}, req)

	case "GetSellerRating":
		var p struct {
			SellerID int64 `json:"seller_id"`
		}
		if err := protocol.DecodeData(req.Data, &p); err != nil {
			return protocol.ErrResponse(req, apierror.InvalidArgument(err.Error()))
		}
		return b.dbCall(ctx, b.customerAddr, "GetSellerRating",
			map[string]int64{"seller_id": p.SellerID}, req)

	case "GetBuyerPurchases":
		return b.dbCall(ctx, b.customerAddr, "GetBuyerPurchases",
			map[string]int64{"buyer_id": buyerID}, req)
	}

	return protocol.ErrResponse(req, apierror.Unimplemented(fmt.Sprintf("unknown api %s", req.API)))
}

// addItemToCart is the check-then-act composition: availability on the
// product service, then the cart mutation on the customer service. The
// two calls are not atomic across services — concurrent buyers can both
// pass the check before either commits. That oversell window is inherent
// to the split-service design and is kept as-is.
func (b *Buyer) addItemToCart(ctx context.Context, req *protocol.Request, buyerID int64) *protocol.Response {
	itemID, qty, errResp := b.cartItemParams(req)
	if errResp != nil {
		return errResp
	}

	avail := b.dbCall(ctx, b.productAddr, "CheckAvailability",
		map[string]any{"item_id": itemID, "quantity": qty}, req)
	if !avail.OK {
		return avail
	}
	var check struct {
		Available int  `json:"available"`
		OK        bool `json:"ok"`
	}
	if err := protocol.DecodeData(avail.Data, &check); err != nil {
		return protocol.ErrResponse(req, apierror.Unavailable("malformed availability data"))
	}
	if !check.OK {
		return protocol.ErrResponse(req, apierror.OutOfStock(""))
	}

	return b.dbCall(ctx, b.customerAddr, "UpdateCart", map[string]any{
		"buyer_id":       buyerID,
		"item_id":        itemID,
		"quantity_delta": qty,
	}, req)
}

func (b *Buyer) cartItemParams(req *protocol.Request) (string, int, *protocol.Response) {
	var p struct {
		ItemID   string `json:"item_id"`
		Quantity int    `json:"quantity"`
	}
	if err := protocol.DecodeData(req.Data, &p); err != nil {
		return "", 0, protocol.ErrResponse(req, apierror.InvalidArgument(err.Error()))
	}
	if p.ItemID == "" || p.Quantity <= 0 {
		return "", 0, protocol.ErrResponse(req, apierror.InvalidArgument("item_id and positive quantity required"))
	}
	return p.ItemID, p.Quantity, nil
}
