package invoice

import (
	"slices"

	"github.com/shopspring/decimal"
)

const foodCategory = "food_item"

var importedCategories = []string{"imported_car", "cellphone", "computer"}

// TaxRule is one independent per-item tax. Rules always see the untaxed price.
type TaxRule struct {
	Name    string
	Rate    decimal.Decimal
	Applies func(Item) bool
}

// Tax returns price * rate when the rule applies to item, zero otherwise.
func (t TaxRule) Tax(item Item) decimal.Decimal {
	if t.Applies == nil || !t.Applies(item) {
		return decimal.Zero
	}
	return item.Price.Mul(t.Rate)
}

// VAT applies to every category except food.
var VAT = TaxRule{
	Name: "vat",
	Rate: decimal.RequireFromString("0.20"),
	Applies: func(item Item) bool {
		return item.Category != foodCategory
	},
}

// ImportDuty applies only to the imported categories.
var ImportDuty = TaxRule{
	Name: "import_duty",
	Rate: decimal.RequireFromString("0.30"),
	Applies: func(item Item) bool {
		return slices.Contains(importedCategories, item.Category)
	},
}

var taxRules = []TaxRule{VAT, ImportDuty}

// TaxRules returns the ordered default tax rule set.
func TaxRules() []TaxRule {
	return slices.Clone(taxRules)
}
