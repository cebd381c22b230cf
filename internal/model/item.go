package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Keyword limits are hard validation constraints on registration and
// search, not advisory.
const (
	MaxKeywords   = 5
	MaxKeywordLen = 8
)

// Feedback is an up/down vote tally.
type Feedback struct {
	Up   int64 `json:"up"`
	Down int64 `json:"down"`
}

// Item is a catalog entry. ID is "<category>:<seq>" where seq is assigned
// per category from a monotonically increasing counter that is never
// reused, even when no items remain in the category.
type Item struct {
	ID        string   `json:"item_id"`
	Name      string   `json:"name"`
	Category  int      `json:"category"`
	Seq       int      `json:"-"`
	Keywords  []string `json:"keywords"`
	Condition string   `json:"condition"`
	Price     float64  `json:"price"`
	Quantity  int      `json:"quantity"`
	SellerID  int64    `json:"seller_id"`
	Feedback  Feedback `json:"feedback"`
}

// ItemID formats the catalog id for a category and sequence number.
func ItemID(category, seq int) string {
	return fmt.Sprintf("%d:%d", category, seq)
}

// ValidateKeywords checks the count and per-keyword length limits.
func ValidateKeywords(keywords []string) error {
	if len(keywords) > MaxKeywords {
		return fmt.Errorf("keywords must have at most %d entries", MaxKeywords)
	}
	for _, k := range keywords {
		// Limits count characters, not bytes.
		if utf8.RuneCountInString(k) > MaxKeywordLen {
			return fmt.Errorf("keyword %q exceeds %d characters", k, MaxKeywordLen)
		}
	}
	return nil
}

// KeywordScore counts case-insensitive overlap between the query keywords
// and the item's keyword set. This is the sole search ranking signal.
func KeywordScore(itemKeywords, queryKeywords []string) int {
	if len(queryKeywords) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(itemKeywords))
	for _, k := range itemKeywords {
		set[strings.ToLower(k)] = struct{}{}
	}
	score := 0
	for _, k := range queryKeywords {
		if _, ok := set[strings.ToLower(k)]; ok {
			score++
		}
	}
	return score
}
