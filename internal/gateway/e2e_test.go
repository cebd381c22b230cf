package gateway_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimart/internal/customer"
	"minimart/internal/gateway"
	"minimart/internal/product"
	"minimart/internal/repository"
	"minimart/internal/session"
	"minimart/internal/transport"
	"minimart/pkg/apierror"
)

// marketplace spins up all four daemons on loopback with in-memory
// stores, returning the two gateway addresses.
func marketplace(t *testing.T) (buyerAddr, sellerAddr string) {
	t.Helper()

	sessions := session.NewMemoryStore(session.DefaultTimeout)
	custStore := repository.NewMemoryCustomerStore()
	prodStore := repository.NewMemoryProductStore()
	custSvc := customer.New(custStore, sessions)
	prodSvc := product.New(prodStore)

	custSrv := transport.NewServer("Customer", "127.0.0.1:0", func() transport.Handler {
		return custSvc
	})
	require.NoError(t, custSrv.Start())

	prodSrv := transport.NewServer("Product", "127.0.0.1:0", func() transport.Handler {
		return prodSvc
	})
	require.NoError(t, prodSrv.Start())

	customerAddr := custSrv.Addr().String()
	productAddr := prodSrv.Addr().String()

	buyerSrv := transport.NewServer("BuyerGW", "127.0.0.1:0", func() transport.Handler {
		return gateway.NewBuyer(customerAddr, productAddr, transport.NewClient())
	})
	require.NoError(t, buyerSrv.Start())

	sellerSrv := transport.NewServer("SellerGW", "127.0.0.1:0", func() transport.Handler {
		return gateway.NewSeller(customerAddr, productAddr, transport.NewClient())
	})
	require.NoError(t, sellerSrv.Start())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		buyerSrv.Shutdown(ctx)
		sellerSrv.Shutdown(ctx)
		custSrv.Shutdown(ctx)
		prodSrv.Shutdown(ctx)
		sessions.Close()
	})

	return buyerSrv.Addr().String(), sellerSrv.Addr().String()
}

func mustCall(t *testing.T, client *transport.Client, addr, api string, data any) map[string]any {
	t.Helper()

	resp, err := client.Call(context.Background(), addr, api, data, "")
	require.NoError(t, err)
	require.True(t, resp.OK, "%s failed: %+v", api, resp.Error)

	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestSellerListsAndBuyerShops(t *testing.T) {
	buyerAddr, sellerAddr := marketplace(t)

	seller := transport.NewClient()
	defer seller.Close()

	mustCall(t, seller, sellerAddr, "CreateAccount", map[string]string{"name": "shop", "password": "pw"})
	login := mustCall(t, seller, sellerAddr, "Login", map[string]string{"name": "shop", "password": "pw"})
	sellerTok := login["session_id"].(string)

	reg := mustCall(t, seller, sellerAddr, "RegisterItemForSale", map[string]any{
		"session_id": sellerTok,
		"name":       "mug",
		"category":   3,
		"keywords":   []string{"mug", "coffee"},
		"condition":  "new",
		"price":      9.99,
		"quantity":   5,
	})
	itemID := reg["item_id"].(string)
	assert.Equal(t, "3:1", itemID)

	listing := mustCall(t, seller, sellerAddr, "DisplayItemsForSale", map[string]string{"session_id": sellerTok})
	require.Len(t, listing["items"].([]any), 1)

	buyer := transport.NewClient()
	defer buyer.Close()

	mustCall(t, buyer, buyerAddr, "CreateAccount", map[string]string{"name": "alice", "password": "pw"})
	login = mustCall(t, buyer, buyerAddr, "Login", map[string]string{"name": "alice", "password": "pw"})
	buyerTok := login["session_id"].(string)

	found := mustCall(t, buyer, buyerAddr, "SearchItemsForSale", map[string]any{
		"keywords": []string{"coffee"},
	})
	items := found["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, itemID, items[0].(map[string]any)["item_id"])

	added := mustCall(t, buyer, buyerAddr, "AddItemToCart", map[string]any{
		"session_id": buyerTok, "item_id": itemID, "quantity": 2,
	})
	assert.Equal(t, float64(2), added["quantity"])

	cart := mustCall(t, buyer, buyerAddr, "DisplayCart", map[string]string{"session_id": buyerTok})
	assert.Equal(t, float64(2), cart["cart"].(map[string]any)[itemID])

	removed := mustCall(t, buyer, buyerAddr, "RemoveItemFromCart", map[string]any{
		"session_id": buyerTok, "item_id": itemID, "quantity": 1,
	})
	assert.Equal(t, float64(1), removed["quantity"])

	mustCall(t, buyer, buyerAddr, "Logout", map[string]string{"session_id": buyerTok})

	// The session is gone; the guard rejects before any backing call.
	resp, err := buyer.Call(context.Background(), buyerAddr, "DisplayCart",
		map[string]string{"session_id": buyerTok}, "")
	require.NoError(t, err)
	require.False(t, resp.OK)
	assert.Equal(t, apierror.CodeNotLoggedIn, resp.Error.Code)
}

func TestOversubscribedAddIsRejectedEndToEnd(t *testing.T) {
	buyerAddr, sellerAddr := marketplace(t)

	seller := transport.NewClient()
	defer seller.Close()

	mustCall(t, seller, sellerAddr, "CreateAccount", map[string]string{"name": "shop", "password": "pw"})
	login := mustCall(t, seller, sellerAddr, "Login", map[string]string{"name": "shop", "password": "pw"})
	sellerTok := login["session_id"].(string)

	reg := mustCall(t, seller, sellerAddr, "RegisterItemForSale", map[string]any{
		"session_id": sellerTok,
		"name":       "lamp",
		"category":   7,
		"keywords":   []string{"lamp"},
		"condition":  "used",
		"price":      4.5,
		"quantity":   1,
	})
	itemID := reg["item_id"].(string)

	buyer := transport.NewClient()
	defer buyer.Close()

	mustCall(t, buyer, buyerAddr, "CreateAccount", map[string]string{"name": "bob", "password": "pw"})
	login = mustCall(t, buyer, buyerAddr, "Login", map[string]string{"name": "bob", "password": "pw"})
	buyerTok := login["session_id"].(string)

	resp, err := buyer.Call(context.Background(), buyerAddr, "AddItemToCart",
		map[string]any{"session_id": buyerTok, "item_id": itemID, "quantity": 2}, "")
	require.NoError(t, err)
	require.False(t, resp.OK)
	assert.Equal(t, apierror.CodeOutOfStock, resp.Error.Code)

	// The failed add never touched the cart.
	cart := mustCall(t, buyer, buyerAddr, "DisplayCart", map[string]string{"session_id": buyerTok})
	assert.Empty(t, cart["cart"])
}
