package invoice

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Discount keys understood by LookupDiscount.
const (
	DiscountNone        = ""
	DiscountStudent     = "student"
	DiscountBlackFriday = "black_friday"
)

// DiscountRule computes the amount subtracted from an invoice subtotal.
type DiscountRule struct {
	Key  string
	Rate decimal.Decimal
}

// Apply returns subtotal * rate.
func (d DiscountRule) Apply(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(d.Rate)
}

var noDiscount = DiscountRule{Key: DiscountNone, Rate: decimal.Zero}

var discountRules = map[string]DiscountRule{
	DiscountNone:        noDiscount,
	DiscountStudent:     {Key: DiscountStudent, Rate: decimal.RequireFromString("0.10")},
	DiscountBlackFriday: {Key: DiscountBlackFriday, Rate: decimal.RequireFromString("0.30")},
}

// LookupDiscount resolves a discount key by exact match. Unknown keys resolve to
// the no-discount rule.
func LookupDiscount(key string) DiscountRule {
	if rule, ok := discountRules[key]; ok {
		return rule
	}
	return noDiscount
}

// IsKnownDiscount reports whether key names a rule in the table.
func IsKnownDiscount(key string) bool {
	_, ok := discountRules[key]
	return ok
}

// DiscountKeys lists the known discount keys in sorted order.
func DiscountKeys() []string {
	keys := make([]string, 0, len(discountRules))
	for key := range discountRules {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
