package invoice

import "github.com/shopspring/decimal"

// Calculator composes a discount lookup and a tax rule set over an invoice.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	Taxes    []TaxRule
	Discount func(key string) DiscountRule
}

// NewCalculator returns a Calculator wired with the default rule sets.
func NewCalculator() Calculator {
	return Calculator{
		Taxes:    TaxRules(),
		Discount: LookupDiscount,
	}
}

var defaultCalculator = NewCalculator()

// Process computes an invoice with the default rule sets.
func Process(inv Invoice) Result {
	return defaultCalculator.Process(inv)
}

// Process computes subtotal, discount, per-item taxes and totals for inv.
// The discount is not applied to the tax base.
func (c Calculator) Process(inv Invoice) Result {
	subtotal := decimal.Zero
	for _, item := range inv.Items {
		subtotal = subtotal.Add(item.Price)
	}

	lookup := c.Discount
	if lookup == nil {
		lookup = LookupDiscount
	}
	discount := lookup(inv.DiscountKey).Apply(subtotal)

	itemTaxes := make([]ItemTax, 0, len(inv.Items))
	totalTaxes := decimal.Zero
	for _, item := range inv.Items {
		itemTax := decimal.Zero
		for _, rule := range c.Taxes {
			itemTax = itemTax.Add(rule.Tax(item))
		}
		itemTaxes = append(itemTaxes, ItemTax{ID: item.ID, Tax: itemTax})
		totalTaxes = totalTaxes.Add(itemTax)
	}

	return Result{
		Subtotal:        subtotal,
		AppliedDiscount: discount,
		ItemTaxes:       itemTaxes,
		TotalTaxes:      totalTaxes,
		FinalTotal:      subtotal.Sub(discount).Add(totalTaxes),
	}
}
