package model

// Roles owned by the customer service. Buyers and sellers live in
// separate tables and separate id spaces.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// MaxNameLen is the hard limit on account display names.
const MaxNameLen = 32

// ValidRole reports whether role names a known account table.
func ValidRole(role string) bool {
	return role == RoleBuyer || role == RoleSeller
}

// Buyer is a buyer account record. The password is an opaque comparison
// value; the store never interprets it.
type Buyer struct {
	ID             int64  `json:"buyer_id"`
	Name           string `json:"name"`
	Password       string `json:"-"`
	PurchasesCount int64  `json:"purchases_count"`
}

// Seller is a seller account record with its feedback tally.
type Seller struct {
	ID           int64  `json:"seller_id"`
	Name         string `json:"name"`
	Password     string `json:"-"`
	FeedbackUp   int64  `json:"feedback_up"`
	FeedbackDown int64  `json:"feedback_down"`
	ItemsSold    int64  `json:"items_sold"`
}
