package customer

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimart/internal/protocol"
	"minimart/internal/repository"
	"minimart/internal/session"
	"minimart/pkg/apierror"
)

func newTestService(t *testing.T) (*Service, *session.MemoryStore, *time.Time) {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := session.NewMemoryStore(session.DefaultTimeout)
	sessions.SetClock(func() time.Time { return now })
	t.Cleanup(func() { sessions.Close() })

	store := repository.NewMemoryCustomerStore()
	t.Cleanup(func() { store.Close() })

	return New(store, sessions), sessions, &now
}

func call(t *testing.T, svc *Service, api string, data any) *protocol.Response {
	t.Helper()

	req, err := protocol.NewRequest("req-1", api, data)
	require.NoError(t, err)

	resp := svc.Handle(context.Background(), req)
	require.NotNil(t, resp)
	assert.Equal(t, "req-1", resp.RequestID)
	return resp
}

func decodeOK(t *testing.T, resp *protocol.Response) map[string]any {
	t.Helper()

	require.True(t, resp.OK, "expected success, got error: %+v", resp.Error)
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func requireErrCode(t *testing.T, resp *protocol.Response, code string) {
	t.Helper()

	require.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, code, resp.Error.Code)
}

func TestPing(t *testing.T) {
	svc, _, _ := newTestService(t)

	out := decodeOK(t, call(t, svc, "Ping", nil))
	assert.Greater(t, out["now"].(float64), 0.0)
}

func TestCreateBuyerAssignsSequentialIDs(t *testing.T) {
	svc, _, _ := newTestService(t)

	out := decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "alice", "password": "pw"}))
	assert.Equal(t, float64(1), out["buyer_id"])

	out = decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "bob", "password": "pw"}))
	assert.Equal(t, float64(2), out["buyer_id"])
}

func TestCreateAccountValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp := call(t, svc, "CreateBuyer", map[string]string{"name": "", "password": "pw"})
	requireErrCode(t, resp, apierror.CodeInvalidArgument)
	assert.Equal(t, "name and password required", resp.Error.Message)

	resp = call(t, svc, "CreateSeller", map[string]string{"name": "alice", "password": ""})
	requireErrCode(t, resp, apierror.CodeInvalidArgument)

	long := strings.Repeat("x", 33)
	resp = call(t, svc, "CreateSeller", map[string]string{"name": long, "password": "pw"})
	requireErrCode(t, resp, apierror.CodeInvalidArgument)

	// The name limit counts characters, not bytes: 32 two-byte runes
	// are accepted, 33 are not.
	wide := strings.Repeat("ä", 32)
	decodeOK(t, call(t, svc, "CreateSeller", map[string]string{"name": wide, "password": "pw"}))

	resp = call(t, svc, "CreateSeller", map[string]string{"name": wide + "ä", "password": "pw"})
	requireErrCode(t, resp, apierror.CodeInvalidArgument)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)

	decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "alice", "password": "secret"}))

	out := decodeOK(t, call(t, svc, "Login", map[string]string{
		"role": "buyer", "name": "alice", "password": "secret",
	}))
	assert.NotEmpty(t, out["session_id"])
	assert.Equal(t, float64(1), out["user_id"])
	assert.Equal(t, "buyer", out["role"])
}

func TestLoginFailures(t *testing.T) {
	svc, _, _ := newTestService(t)

	decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "alice", "password": "secret"}))

	resp := call(t, svc, "Login", map[string]string{"role": "admin", "name": "alice", "password": "secret"})
	requireErrCode(t, resp, apierror.CodeInvalidArgument)

	resp = call(t, svc, "Login", map[string]string{"role": "buyer", "name": "alice", "password": "wrong"})
	requireErrCode(t, resp, apierror.CodeAuthFailed)

	resp = call(t, svc, "Login", map[string]string{"role": "buyer", "name": "nobody", "password": "secret"})
	requireErrCode(t, resp, apierror.CodeAuthFailed)

	// Same name registered only as buyer: the seller namespace misses.
	resp = call(t, svc, "Login", map[string]string{"role": "seller", "name": "alice", "password": "secret"})
	requireErrCode(t, resp, apierror.CodeAuthFailed)
}

func TestLoginPicksLowestIDOnDuplicateName(t *testing.T) {
	svc, _, _ := newTestService(t)

	decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "alice", "password": "first"}))
	decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "alice", "password": "second"}))

	out := decodeOK(t, call(t, svc, "Login", map[string]string{
		"role": "buyer", "name": "alice", "password": "first",
	}))
	assert.Equal(t, float64(1), out["user_id"])

	// The later duplicate is shadowed.
	resp := call(t, svc, "Login", map[string]string{"role": "buyer", "name": "alice", "password": "second"})
	requireErrCode(t, resp, apierror.CodeAuthFailed)
}

func loginBuyer(t *testing.T, svc *Service) string {
	t.Helper()

	decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "alice", "password": "pw"}))
	out := decodeOK(t, call(t, svc, "Login", map[string]string{
		"role": "buyer", "name": "alice", "password": "pw",
	}))
	return out["session_id"].(string)
}

func TestValidateSessionLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)

	token := loginBuyer(t, svc)

	out := decodeOK(t, call(t, svc, "ValidateSession", map[string]string{"session_id": token}))
	assert.Equal(t, "buyer", out["role"])
	assert.Equal(t, float64(1), out["user_id"])

	decodeOK(t, call(t, svc, "Logout", map[string]string{"session_id": token}))

	resp := call(t, svc, "ValidateSession", map[string]string{"session_id": token})
	requireErrCode(t, resp, apierror.CodeNotLoggedIn)
}

func TestValidateSessionTimeout(t *testing.T) {
	svc, _, now := newTestService(t)

	token := loginBuyer(t, svc)

	// Exactly at the timeout boundary the session is still live.
	*now = now.Add(session.DefaultTimeout)
	out := decodeOK(t, call(t, svc, "ValidateSession", map[string]string{"session_id": token}))
	assert.Equal(t, "buyer", out["role"])

	// The validation above refreshed the window; one second past the
	// next boundary it has expired.
	*now = now.Add(session.DefaultTimeout + time.Second)
	resp := call(t, svc, "ValidateSession", map[string]string{"session_id": token})
	requireErrCode(t, resp, apierror.CodeSessionTimeout)

	// Expiry is reported once; afterwards the token is simply unknown.
	resp = call(t, svc, "ValidateSession", map[string]string{"session_id": token})
	requireErrCode(t, resp, apierror.CodeNotLoggedIn)
}

func TestValidateSessionUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp := call(t, svc, "ValidateSession", map[string]string{"session_id": "no-such-token"})
	requireErrCode(t, resp, apierror.CodeNotLoggedIn)

	resp = call(t, svc, "ValidateSession", map[string]string{"session_id": ""})
	requireErrCode(t, resp, apierror.CodeInvalidArgument)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)

	token := loginBuyer(t, svc)

	out := decodeOK(t, call(t, svc, "Logout", map[string]string{"session_id": token}))
	assert.Equal(t, true, out["logged_out"])

	out = decodeOK(t, call(t, svc, "Logout", map[string]string{"session_id": token}))
	assert.Equal(t, true, out["logged_out"])

	resp := call(t, svc, "Logout", map[string]string{"session_id": ""})
	requireErrCode(t, resp, apierror.CodeInvalidArgument)
}

func TestGetSellerRating(t *testing.T) {
	svc, _, _ := newTestService(t)

	decodeOK(t, call(t, svc, "CreateSeller", map[string]string{"name": "shop", "password": "pw"}))

	out := decodeOK(t, call(t, svc, "GetSellerRating", map[string]int64{"seller_id": 1}))
	assert.Equal(t, float64(1), out["seller_id"])
	feedback := out["feedback"].(map[string]any)
	assert.Equal(t, float64(0), feedback["up"])
	assert.Equal(t, float64(0), feedback["down"])

	resp := call(t, svc, "GetSellerRating", map[string]int64{"seller_id": 99})
	requireErrCode(t, resp, apierror.CodeNotFound)
	assert.Equal(t, "seller not found", resp.Error.Message)
}

func TestGetBuyerPurchases(t *testing.T) {
	svc, _, _ := newTestService(t)

	decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "alice", "password": "pw"}))

	out := decodeOK(t, call(t, svc, "GetBuyerPurchases", map[string]int64{"buyer_id": 1}))
	assert.Equal(t, float64(0), out["purchases_count"])

	resp := call(t, svc, "GetBuyerPurchases", map[string]int64{"buyer_id": 42})
	requireErrCode(t, resp, apierror.CodeNotFound)
	assert.Equal(t, "buyer not found", resp.Error.Message)
}

func TestUpdateCartRunningSum(t *testing.T) {
	svc, _, _ := newTestService(t)

	decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "alice", "password": "pw"}))

	out := decodeOK(t, call(t, svc, "UpdateCart", map[string]any{
		"buyer_id": 1, "item_id": "3:1", "quantity_delta": 3,
	}))
	assert.Equal(t, float64(3), out["quantity"])

	out = decodeOK(t, call(t, svc, "UpdateCart", map[string]any{
		"buyer_id": 1, "item_id": "3:1", "quantity_delta": 2,
	}))
	assert.Equal(t, float64(5), out["quantity"])

	out = decodeOK(t, call(t, svc, "GetCart", map[string]int64{"buyer_id": 1}))
	cart := out["cart"].(map[string]any)
	assert.Equal(t, float64(5), cart["3:1"])

	// Delta down to exactly zero removes the entry.
	out = decodeOK(t, call(t, svc, "UpdateCart", map[string]any{
		"buyer_id": 1, "item_id": "3:1", "quantity_delta": -5,
	}))
	assert.Equal(t, float64(0), out["quantity"])

	out = decodeOK(t, call(t, svc, "GetCart", map[string]int64{"buyer_id": 1}))
	assert.Empty(t, out["cart"])
}

func TestUpdateCartRejectsNegativeResult(t *testing.T) {
	svc, _, _ := newTestService(t)

	decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "alice", "password": "pw"}))

	// Removing from an empty cart would go negative; nothing mutates.
	resp := call(t, svc, "UpdateCart", map[string]any{
		"buyer_id": 1, "item_id": "3:1", "quantity_delta": -1,
	})
	requireErrCode(t, resp, apierror.CodeInvalidArgument)
	assert.Equal(t, "cart quantity cannot be negative", resp.Error.Message)

	out := decodeOK(t, call(t, svc, "GetCart", map[string]int64{"buyer_id": 1}))
	assert.Empty(t, out["cart"])

	decodeOK(t, call(t, svc, "UpdateCart", map[string]any{
		"buyer_id": 1, "item_id": "3:1", "quantity_delta": 2,
	}))
	resp = call(t, svc, "UpdateCart", map[string]any{
		"buyer_id": 1, "item_id": "3:1", "quantity_delta": -3,
	})
	requireErrCode(t, resp, apierror.CodeInvalidArgument)

	// The failed delta left the previous quantity intact.
	out = decodeOK(t, call(t, svc, "GetCart", map[string]int64{"buyer_id": 1}))
	cart := out["cart"].(map[string]any)
	assert.Equal(t, float64(2), cart["3:1"])
}

func TestUpdateCartValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "alice", "password": "pw"}))

	resp := call(t, svc, "UpdateCart", map[string]any{"buyer_id": 1, "item_id": "", "quantity_delta": 1})
	requireErrCode(t, resp, apierror.CodeInvalidArgument)

	resp = call(t, svc, "UpdateCart", map[string]any{"buyer_id": 1, "item_id": "3:1", "quantity_delta": 0})
	requireErrCode(t, resp, apierror.CodeInvalidArgument)

	resp = call(t, svc, "UpdateCart", map[string]any{"buyer_id": 9, "item_id": "3:1", "quantity_delta": 1})
	requireErrCode(t, resp, apierror.CodeNotFound)
}

func TestClearCart(t *testing.T) {
	svc, _, _ := newTestService(t)

	decodeOK(t, call(t, svc, "CreateBuyer", map[string]string{"name": "alice", "password": "pw"}))
	decodeOK(t, call(t, svc, "UpdateCart", map[string]any{"buyer_id": 1, "item_id": "3:1", "quantity_delta": 2}))
	decodeOK(t, call(t, svc, "UpdateCart", map[string]any{"buyer_id": 1, "item_id": "4:1", "quantity_delta": 1}))

	out := decodeOK(t, call(t, svc, "ClearCart", map[string]int64{"buyer_id": 1}))
	assert.Equal(t, true, out["cleared"])

	out = decodeOK(t, call(t, svc, "GetCart", map[string]int64{"buyer_id": 1}))
	assert.Empty(t, out["cart"])

	// Clearing an already empty cart still succeeds.
	decodeOK(t, call(t, svc, "ClearCart", map[string]int64{"buyer_id": 1}))
}

func TestUnknownAPI(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp := call(t, svc, "DoSomething", nil)
	requireErrCode(t, resp, apierror.CodeUnimplemented)
	assert.Equal(t, "unknown api DoSomething", resp.Error.Message)
}

func TestMalformedData(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := &protocol.Request{
		Type:      protocol.TypeRequest,
		RequestID: "req-1",
		API:       "CreateBuyer",
		Data:      json.RawMessage(`"not an object"`),
	}
	resp := svc.Handle(context.Background(), req)
	requireErrCode(t, resp, apierror.CodeInvalidArgument)
}
