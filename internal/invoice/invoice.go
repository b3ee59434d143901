package invoice

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNegativePrice is returned when an item is constructed with a price below zero.
var ErrNegativePrice = errors.New("price must be greater than or equal to 0")

// Item is a single invoice line.
type Item struct {
	ID       int
	Category string
	Price    decimal.Decimal
}

// NewItem builds an Item, rejecting negative prices.
func NewItem(id int, category string, price decimal.Decimal) (Item, error) {
	if price.IsNegative() {
		return Item{}, fmt.Errorf("item %d: %w", id, ErrNegativePrice)
	}
	return Item{ID: id, Category: category, Price: price}, nil
}

// Invoice is the calculator input: ordered items plus the discount selector.
type Invoice struct {
	Items       []Item
	DiscountKey string
}

// ItemTax holds the combined tax of every rule for one item.
type ItemTax struct {
	ID  int
	Tax decimal.Decimal
}

// Result groups the full invoice output.
type Result struct {
	Subtotal        decimal.Decimal
	AppliedDiscount decimal.Decimal
	ItemTaxes       []ItemTax
	TotalTaxes      decimal.Decimal
	FinalTotal      decimal.Decimal
}
