package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimart/pkg/apierror"
)

func TestSellerLoginInjectsRole(t *testing.T) {
	caller := newFakeCaller()
	s := NewSeller(testCustomerAddr, testProductAddr, caller)

	s.Handle(context.Background(), makeReq(t, "Login",
		map[string]string{"name": "shop", "password": "pw"}))

	calls := caller.callsTo("Login")
	require.Len(t, calls, 1)
	assert.Equal(t, testCustomerAddr, calls[0].Addr)
	data := decodeData(t, calls[0].Data)
	assert.Equal(t, "seller", data["role"])
}

func TestSellerCreateAccountForwards(t *testing.T) {
	caller := newFakeCaller()
	caller.scriptOK("CreateSeller", map[string]int64{"seller_id": 1})
	s := NewSeller(testCustomerAddr, testProductAddr, caller)

	resp := s.Handle(context.Background(), makeReq(t, "CreateAccount",
		map[string]string{"name": "shop", "password": "pw"}))
	require.True(t, resp.OK)
	require.Len(t, caller.callsTo("CreateSeller"), 1)
}

func TestSellerRegisterItemOverridesSellerID(t *testing.T) {
	caller := newFakeCaller()
	caller.scriptSession("seller", 7)
	caller.scriptOK("RegisterItem", map[string]string{"item_id": "3:1"})
	s := NewSeller(testCustomerAddr, testProductAddr, caller)

	// The client claims seller 99; the validated session says 7.
	resp := s.Handle(context.Background(), makeReq(t, "RegisterItemForSale", map[string]any{
		"session_id": "tok",
		"name":       "mug",
		"category":   3,
		"condition":  "new",
		"price":      9.99,
		"quantity":   5,
		"seller_id":  99,
	}))
	require.True(t, resp.OK)

	calls := caller.callsTo("RegisterItem")
	require.Len(t, calls, 1)
	assert.Equal(t, testProductAddr, calls[0].Addr)
	data := decodeData(t, calls[0].Data)
	assert.Equal(t, float64(7), data["seller_id"])
	assert.Equal(t, "mug", data["name"])
	// The session token never leaks into the catalog payload.
	assert.NotContains(t, data, "session_id")
}

func TestSellerRegisterItemRequiresSession(t *testing.T) {
	caller := newFakeCaller()
	s := NewSeller(testCustomerAddr, testProductAddr, caller)

	resp := s.Handle(context.Background(), makeReq(t, "RegisterItemForSale",
		map[string]any{"name": "mug"}))
	requireErrCode(t, resp, apierror.CodeNotLoggedIn)
	assert.Empty(t, caller.callsTo("RegisterItem"))
}

func TestSellerGetRatingUsesSessionIdentity(t *testing.T) {
	caller := newFakeCaller()
	caller.scriptSession("seller", 7)
	caller.scriptOK("GetSellerRating", map[string]any{"seller_id": 7})
	s := NewSeller(testCustomerAddr, testProductAddr, caller)

	resp := s.Handle(context.Background(), makeReq(t, "GetSellerRating",
		map[string]string{"session_id": "tok"}))
	require.True(t, resp.OK)

	calls := caller.callsTo("GetSellerRating")
	require.Len(t, calls, 1)
	assert.Equal(t, testCustomerAddr, calls[0].Addr)
	data := decodeData(t, calls[0].Data)
	assert.Equal(t, float64(7), data["seller_id"])
}

func TestSellerChangeItemPriceForwards(t *testing.T) {
	caller := newFakeCaller()
	caller.scriptSession("seller", 7)
	s := NewSeller(testCustomerAddr, testProductAddr, caller)

	s.Handle(context.Background(), makeReq(t, "ChangeItemPrice",
		map[string]any{"session_id": "tok", "item_id": "3:1", "price": 12.5}))

	calls := caller.callsTo("ChangeItemPrice")
	require.Len(t, calls, 1)
	assert.Equal(t, testProductAddr, calls[0].Addr)
	data := decodeData(t, calls[0].Data)
	assert.Equal(t, "3:1", data["item_id"])
	assert.Equal(t, 12.5, data["price"])
}

func TestSellerUpdateUnitsPreservesAbsentFields(t *testing.T) {
	caller := newFakeCaller()
	caller.scriptSession("seller", 7)
	s := NewSeller(testCustomerAddr, testProductAddr, caller)

	// Absent quantity_delta stays absent so the product service can
	// report the missing field itself.
	s.Handle(context.Background(), makeReq(t, "UpdateUnitsForSale",
		map[string]any{"session_id": "tok", "item_id": "3:1"}))

	calls := caller.callsTo("UpdateUnitsForSale")
	require.Len(t, calls, 1)
	data := decodeData(t, calls[0].Data)
	assert.Equal(t, "3:1", data["item_id"])
	assert.NotContains(t, data, "quantity_delta")
}

func TestSellerDisplayItemsUsesSessionIdentity(t *testing.T) {
	caller := newFakeCaller()
	caller.scriptSession("seller", 7)
	caller.scriptOK("DisplayItemsForSale", map[string]any{"items": []any{}})
	s := NewSeller(testCustomerAddr, testProductAddr, caller)

	resp := s.Handle(context.Background(), makeReq(t, "DisplayItemsForSale",
		map[string]string{"session_id": "tok"}))
	require.True(t, resp.OK)

	calls := caller.callsTo("DisplayItemsForSale")
	require.Len(t, calls, 1)
	assert.Equal(t, testProductAddr, calls[0].Addr)
	data := decodeData(t, calls[0].Data)
	assert.Equal(t, float64(7), data["seller_id"])
}

func TestSellerUnknownAPI(t *testing.T) {
	caller := newFakeCaller()
	s := NewSeller(testCustomerAddr, testProductAddr, caller)

	resp := s.Handle(context.Background(), makeReq(t, "AddItemToCart", nil))
	requireErrCode(t, resp, apierror.CodeUnimplemented)
}
