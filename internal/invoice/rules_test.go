package invoice

import (
	"slices"
	"testing"
)

func TestLookupDiscount_Rates(t *testing.T) {
	subtotal := dec(t, "1000")

	cases := []struct {
		key  string
		want string
	}{
		{key: "", want: "0"},
		{key: "student", want: "100"},
		{key: "black_friday", want: "300"},
		{key: "Student", want: "0"},
		{key: " student", want: "0"},
		{key: "black-friday", want: "0"},
		{key: "vip", want: "0"},
	}

	for _, tc := range cases {
		decimalEqual(t, "discount("+tc.key+")", LookupDiscount(tc.key).Apply(subtotal), tc.want)
	}
}

func TestLookupDiscount_Linear(t *testing.T) {
	rates := map[string]string{"": "0", "student": "0.1", "black_friday": "0.3"}
	for _, raw := range []string{"0", "0.01", "99.99", "21050"} {
		subtotal := dec(t, raw)
		for key, rate := range rates {
			want := subtotal.Mul(dec(t, rate))
			if got := LookupDiscount(key).Apply(subtotal); !got.Equal(want) {
				t.Fatalf("discount(%q, %s) = %s, want %s", key, raw, got, want)
			}
		}
	}
}

func TestDiscountKeys(t *testing.T) {
	want := []string{"", "black_friday", "student"}
	if got := DiscountKeys(); !slices.Equal(got, want) {
		t.Fatalf("DiscountKeys() = %q, want %q", got, want)
	}
	if IsKnownDiscount("cyber_monday") {
		t.Fatalf("cyber_monday should be unknown")
	}
	if !IsKnownDiscount("") {
		t.Fatalf("empty key should be known")
	}
}

func TestVAT(t *testing.T) {
	decimalEqual(t, "computer", VAT.Tax(Item{Category: "computer", Price: dec(t, "100")}), "20")
	decimalEqual(t, "food_item", VAT.Tax(Item{Category: "food_item", Price: dec(t, "100")}), "0")
	decimalEqual(t, "unknown category", VAT.Tax(Item{Category: "toy", Price: dec(t, "10")}), "2")
	decimalEqual(t, "case sensitive", VAT.Tax(Item{Category: "Food_Item", Price: dec(t, "10")}), "2")
}

func TestImportDuty(t *testing.T) {
	for _, category := range []string{"imported_car", "cellphone", "computer"} {
		decimalEqual(t, category, ImportDuty.Tax(Item{Category: category, Price: dec(t, "500")}), "150")
	}
	for _, category := range []string{"car", "food_item", "Computer", ""} {
		decimalEqual(t, category, ImportDuty.Tax(Item{Category: category, Price: dec(t, "500")}), "0")
	}
}

func TestTaxRules_ReturnsCopy(t *testing.T) {
	rules := TaxRules()
	if len(rules) != 2 || rules[0].Name != "vat" || rules[1].Name != "import_duty" {
		t.Fatalf("unexpected rule set %+v", rules)
	}
	rules[0] = TaxRule{Name: "mutated"}
	if TaxRules()[0].Name != "vat" {
		t.Fatalf("TaxRules exposed internal slice")
	}
}

func TestTaxRule_NilPredicate(t *testing.T) {
	rule := TaxRule{Name: "broken", Rate: dec(t, "0.5")}
	decimalEqual(t, "nil predicate", rule.Tax(Item{Price: dec(t, "10")}), "0")
}
