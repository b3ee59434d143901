package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/invoicing/internal/invoice"
)

// ErrInvalidInvoice marks every decode or validation failure of an invoice document.
var ErrInvalidInvoice = errors.New("invalid invoice")

// Prices outside these bounds are rejected before any arithmetic; decimal
// rendering cost grows with the exponent, not the input length.
const (
	minPriceExponent = -18
	maxPriceExponent = 18
	maxPriceDigits   = 38
)

// ItemDocument is one entry of the "items" array.
type ItemDocument struct {
	ID       *int             `json:"id" validate:"required"`
	Category *string          `json:"product_category" validate:"required"`
	Price    *decimal.Decimal `json:"price" validate:"required,gte=0"`
}

// UnmarshalJSON requires price to be a JSON number; the decimal decoder alone
// also accepts quoted strings.
func (d *ItemDocument) UnmarshalJSON(data []byte) error {
	type plain ItemDocument
	var raw struct {
		plain
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = ItemDocument(raw.plain)

	if len(raw.Price) == 0 || string(raw.Price) == "null" {
		return nil
	}
	if raw.Price[0] == '"' {
		return &json.UnmarshalTypeError{Value: "string", Type: reflect.TypeOf(decimal.Decimal{}), Field: "price"}
	}
	var price decimal.Decimal
	if err := price.UnmarshalJSON(raw.Price); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	d.Price = &price
	return nil
}

// InvoiceDocument is the request body and batch input file shape.
type InvoiceDocument struct {
	Items    []ItemDocument `json:"items" validate:"required,dive"`
	Discount string         `json:"discount"`
}

// ItemTaxDocument is one entry of the "item_taxes" array.
type ItemTaxDocument struct {
	ID  int    `json:"id"`
	Tax Amount `json:"tax"`
}

// ResultDocument is the response body and batch output file shape.
type ResultDocument struct {
	Subtotal        Amount            `json:"subtotal"`
	AppliedDiscount Amount            `json:"applied_discount"`
	ItemTaxes       []ItemTaxDocument `json:"item_taxes"`
	TotalTaxes      Amount            `json:"total_taxes"`
	FinalTotal      Amount            `json:"final_total"`
}

// Amount is a decimal that encodes as a bare JSON number.
type Amount struct {
	decimal.Decimal
}

// MarshalJSON writes the fixed-point representation without quotes.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// FieldError describes a single invalid field using its JSON path.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" ("+f.Rule+")")
	}
	return "invalid invoice fields: " + strings.Join(parts, ", ")
}

// Unwrap lets errors.Is match ErrInvalidInvoice.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInvoice
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Numeric tags on decimals only ever compare against zero, so the sign is
	// enough and avoids expanding large exponents.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.Sign()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// DecodeInvoice reads and validates one invoice document.
func DecodeInvoice(r io.Reader) (invoice.Invoice, error) {
	var doc InvoiceDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return invoice.Invoice{}, fmt.Errorf("%w: decode json: %w", ErrInvalidInvoice, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("trailing data after document")
		}
		return invoice.Invoice{}, fmt.Errorf("%w: decode json: %w", ErrInvalidInvoice, err)
	}
	return doc.Invoice()
}

// Invoice validates the document and converts it to the domain type.
func (d InvoiceDocument) Invoice() (invoice.Invoice, error) {
	var fields []FieldError
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return invoice.Invoice{}, fmt.Errorf("%w: %w", ErrInvalidInvoice, err)
		}
		fields = newValidationError(verrs).Fields
	}
	for i, doc := range d.Items {
		if doc.Price != nil && !priceInRange(*doc.Price) {
			fields = append(fields, FieldError{Field: fmt.Sprintf("items[%d].price", i), Rule: "range"})
		}
	}
	if len(fields) > 0 {
		return invoice.Invoice{}, &ValidationError{Fields: fields}
	}

	items := make([]invoice.Item, 0, len(d.Items))
	for _, doc := range d.Items {
		item, err := invoice.NewItem(*doc.ID, *doc.Category, *doc.Price)
		if err != nil {
			return invoice.Invoice{}, fmt.Errorf("%w: %w", ErrInvalidInvoice, err)
		}
		items = append(items, item)
	}
	return invoice.Invoice{Items: items, DiscountKey: d.Discount}, nil
}

func priceInRange(p decimal.Decimal) bool {
	exp := p.Exponent()
	if exp < minPriceExponent || exp > maxPriceExponent {
		return false
	}
	return p.NumDigits() <= maxPriceDigits
}

func newValidationError(verrs validator.ValidationErrors) *ValidationError {
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		// Drop the root struct name.
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		fields = append(fields, FieldError{Field: ns, Rule: fe.Tag()})
	}
	return &ValidationError{Fields: fields}
}

// NewResultDocument maps a computed result to its wire shape.
func NewResultDocument(res invoice.Result) ResultDocument {
	taxes := make([]ItemTaxDocument, 0, len(res.ItemTaxes))
	for _, t := range res.ItemTaxes {
		taxes = append(taxes, ItemTaxDocument{ID: t.ID, Tax: Amount{t.Tax}})
	}
	return ResultDocument{
		Subtotal:        Amount{res.Subtotal},
		AppliedDiscount: Amount{res.AppliedDiscount},
		ItemTaxes:       taxes,
		TotalTaxes:      Amount{res.TotalTaxes},
		FinalTotal:      Amount{res.FinalTotal},
	}
}

// EncodeResult writes res as an indented result document.
func EncodeResult(w io.Writer, res invoice.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(NewResultDocument(res)); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
