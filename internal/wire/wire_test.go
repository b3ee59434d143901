package wire_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/invoicing/internal/invoice"
	"github.com/Simplici0/invoicing/internal/wire"
)

func TestDecodeInvoice(t *testing.T) {
	body := `{
		"items": [
			{"id": 1, "product_category": "computer", "price": 1000.0},
			{"id": 2, "product_category": "food_item", "price": 50},
			{"id": 3, "product_category": "car", "price": 5e3}
		],
		"discount": "student"
	}`

	inv, err := wire.DecodeInvoice(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, "student", inv.DiscountKey)
	require.Len(t, inv.Items, 3)
	assert.Equal(t, 1, inv.Items[0].ID)
	assert.Equal(t, "computer", inv.Items[0].Category)
	assert.True(t, inv.Items[0].Price.Equal(decimal.NewFromInt(1000)))
	assert.True(t, inv.Items[2].Price.Equal(decimal.NewFromInt(5000)))
}

func TestDecodeInvoice_DiscountDefaultsToEmpty(t *testing.T) {
	inv, err := wire.DecodeInvoice(strings.NewReader(`{"items": []}`))
	require.NoError(t, err)
	assert.Empty(t, inv.Items)
	assert.Equal(t, "", inv.DiscountKey)

	inv, err = wire.DecodeInvoice(strings.NewReader(`{"items": [], "discount": null}`))
	require.NoError(t, err)
	assert.Equal(t, "", inv.DiscountKey)
}

func TestDecodeInvoice_Rejects(t *testing.T) {
	cases := map[string]struct {
		body   string
		fields []string
	}{
		"malformed json":   {body: `{"items": [`},
		"trailing data":    {body: `{"items": []} garbage`},
		"second document":  {body: `{"items": []} {"items": []}`},
		"quoted price":     {body: `{"items": [{"id": 1, "product_category": "car", "price": "100"}]}`},
		"huge exponent":    {body: `{"items": [{"id": 1, "product_category": "car", "price": 1e30000000}]}`, fields: []string{"items[0].price"}},
		"tiny exponent":    {body: `{"items": [{"id": 1, "product_category": "car", "price": 1e-2000000000}]}`, fields: []string{"items[0].price"}},
		"too many digits":  {body: `{"items": [{"id": 1, "product_category": "car", "price": 123456789012345678901234567890123456789}]}`, fields: []string{"items[0].price"}},
		"wrong type":       {body: `{"items": [{"id": "one", "product_category": "car", "price": 1}]}`},
		"missing items":    {body: `{"discount": "student"}`, fields: []string{"items"}},
		"missing price":    {body: `{"items": [{"id": 1, "product_category": "car"}]}`, fields: []string{"items[0].price"}},
		"missing category": {body: `{"items": [{"id": 1, "price": 2}]}`, fields: []string{"items[0].product_category"}},
		"missing id":       {body: `{"items": [{"product_category": "car", "price": 2}]}`, fields: []string{"items[0].id"}},
		"negative price":   {body: `{"items": [{"id": 1, "product_category": "car", "price": 2}, {"id": 2, "product_category": "car", "price": -0.5}]}`, fields: []string{"items[1].price"}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := wire.DecodeInvoice(strings.NewReader(tc.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, wire.ErrInvalidInvoice), "error %v should wrap ErrInvalidInvoice", err)

			if tc.fields == nil {
				return
			}
			var verr *wire.ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
			got := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tc.fields, got)
		})
	}
}

func TestDecodeInvoice_OutOfRangePriceReportsRangeRule(t *testing.T) {
	_, err := wire.DecodeInvoice(strings.NewReader(`{"items": [{"id": 1, "product_category": "car", "price": 1e30000000}]}`))

	var verr *wire.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
	assert.Equal(t, []wire.FieldError{{Field: "items[0].price", Rule: "range"}}, verr.Fields)
}

func TestDecodeInvoice_AcceptsBoundaryPrices(t *testing.T) {
	body := `{"items": [
		{"id": 1, "product_category": "car", "price": 0.000000000000000001},
		{"id": 2, "product_category": "car", "price": 1e18},
		{"id": 3, "product_category": "car", "price": 1000.000000000000000}
	]}` + "\n"

	inv, err := wire.DecodeInvoice(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, inv.Items, 3)
	assert.True(t, inv.Items[2].Price.Equal(decimal.NewFromInt(1000)))
}

func TestDecodeInvoice_NullPriceIsMissing(t *testing.T) {
	_, err := wire.DecodeInvoice(strings.NewReader(`{"items": [{"id": 1, "product_category": "car", "price": null}]}`))

	var verr *wire.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
	assert.Equal(t, []wire.FieldError{{Field: "items[0].price", Rule: "required"}}, verr.Fields)
}

func TestDecodeInvoice_ZeroValuesAreNotMissing(t *testing.T) {
	inv, err := wire.DecodeInvoice(strings.NewReader(`{"items": [{"id": 0, "product_category": "", "price": 0}]}`))
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	assert.True(t, inv.Items[0].Price.IsZero())
}

func TestEncodeResult(t *testing.T) {
	res := invoice.Result{
		Subtotal:        decimal.RequireFromString("6050"),
		AppliedDiscount: decimal.RequireFromString("605.00"),
		ItemTaxes: []invoice.ItemTax{
			{ID: 1, Tax: decimal.RequireFromString("500")},
			{ID: 2, Tax: decimal.Zero},
		},
		TotalTaxes: decimal.RequireFromString("1500.5"),
		FinalTotal: decimal.RequireFromString("6945.5"),
	}

	var buf bytes.Buffer
	require.NoError(t, wire.EncodeResult(&buf, res))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 6050.0, got["subtotal"])
	assert.Equal(t, 605.0, got["applied_discount"])
	assert.Equal(t, 1500.5, got["total_taxes"])
	assert.Equal(t, 6945.5, got["final_total"])
	assert.Equal(t, []any{
		map[string]any{"id": 1.0, "tax": 500.0},
		map[string]any{"id": 2.0, "tax": 0.0},
	}, got["item_taxes"])
	assert.NotContains(t, buf.String(), `"6050"`)
}

func TestNewResultDocument_EmptyItemTaxesEncodeAsArray(t *testing.T) {
	doc := wire.NewResultDocument(invoice.Process(invoice.Invoice{}))
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"item_taxes":[]`)
}
