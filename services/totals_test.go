package services

import (
	"errors"
	"math"
	"testing"
)

func TestCalcLineTotal(t *testing.T) {
	tests := []struct {
		name  string
		qty   float64
		price float64
		want  float64
	}{
		{"whole", 3, 10, 30},
		{"fractional rounded", 3, 0.335, 1.01},
		{"zero qty", 0, 99.99, 0},
		{"nan price", 2, math.NaN(), 0},
		{"large", 1000, 1234.567, 1234567},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalcLineTotal(tt.qty, tt.price); got != tt.want {
				t.Errorf("CalcLineTotal(%v, %v) = %v, want %v", tt.qty, tt.price, got, tt.want)
			}
		})
	}
}

func TestCalcQuoteTotals_MixedVAT(t *testing.T) {
	items := []LineItem{
		{Description: "Licenza", Quantity: 3, UnitPrice: 10, VATRate: 22},
		{Description: "Installazione", Quantity: 1, UnitPrice: 50, VATRate: 10},
	}

	got := CalcQuoteTotals(items)

	if got.Subtotal != 80 {
		t.Errorf("Subtotal = %v, want 80", got.Subtotal)
	}
	if got.VATTotal != 11.6 {
		t.Errorf("VATTotal = %v, want 11.6", got.VATTotal)
	}
	if got.Total != 91.6 {
		t.Errorf("Total = %v, want 91.6", got.Total)
	}
}

func TestCalcQuoteTotals_Empty(t *testing.T) {
	got := CalcQuoteTotals(nil)
	if got != (QuoteTotals{}) {
		t.Errorf("expected zero totals, got %+v", got)
	}
}

func TestCalcQuoteTotals_PerLineVATNotAveraged(t *testing.T) {
	items := []LineItem{
		{Quantity: 1, UnitPrice: 100, VATRate: 4},
		{Quantity: 1, UnitPrice: 100, VATRate: 22},
		{Quantity: 1, UnitPrice: 100, VATRate: 0},
	}

	got := CalcQuoteTotals(items)
	if got.VATTotal != 26 {
		t.Errorf("VATTotal = %v, want 26", got.VATTotal)
	}
	if got.Total != got.Subtotal+got.VATTotal {
		t.Errorf("Total %v != Subtotal %v + VATTotal %v", got.Total, got.Subtotal, got.VATTotal)
	}
}

func newScenarioQuote() *Quote {
	q := &Quote{}
	q.AddLine(LineItem{Description: "A", Quantity: 3, UnitPrice: 10, VATRate: 22})
	q.AddLine(LineItem{Description: "B", Quantity: 1, UnitPrice: 50, VATRate: 10})
	return q
}

func TestQuoteEditingKeepsTotalsConsistent(t *testing.T) {
	q := newScenarioQuote()
	if q.Subtotal != 80 || q.VATTotal != 11.6 || q.Total != 91.6 {
		t.Fatalf("unexpected totals after add: %+v", q.Totals())
	}

	if err := q.SetQuantity(0, 4); err != nil {
		t.Fatal(err)
	}
	if q.Items[0].Total != 40 {
		t.Errorf("line 0 total = %v, want 40", q.Items[0].Total)
	}
	if q.Subtotal != 90 {
		t.Errorf("Subtotal = %v, want 90", q.Subtotal)
	}

	if err := q.SetUnitPrice(1, 12.345); err != nil {
		t.Fatal(err)
	}
	if q.Items[1].Total != 12.35 {
		t.Errorf("line 1 total = %v, want 12.35", q.Items[1].Total)
	}

	if err := q.SetVATRate(1, 150); err != nil {
		t.Fatal(err)
	}
	if q.Items[1].VATRate != 100 {
		t.Errorf("VAT rate should clamp to 100, got %v", q.Items[1].VATRate)
	}

	if err := q.RemoveLine(0); err != nil {
		t.Fatal(err)
	}
	if q.Items[0].Total != 12.35 {
		t.Errorf("remaining line total = %v, want 12.35", q.Items[0].Total)
	}
	if q.Subtotal != 12.35 || q.VATTotal != 12.35 || q.Total != 24.7 {
		t.Errorf("totals after remove = %+v", q.Totals())
	}
}

func TestRemoveOnlyLineResetsTotals(t *testing.T) {
	q := &Quote{}
	q.AddLine(LineItem{Description: "A", Quantity: 1, UnitPrice: 80, VATRate: 0})
	if q.Subtotal != 80 {
		t.Fatalf("Subtotal = %v, want 80", q.Subtotal)
	}

	if err := q.RemoveLine(0); err != nil {
		t.Fatal(err)
	}
	if q.Subtotal != 0 || q.VATTotal != 0 || q.Total != 0 {
		t.Errorf("expected zero totals, got %+v", q.Totals())
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	q := &Quote{Items: []LineItem{
		{Quantity: 3, UnitPrice: 0.335, VATRate: 22},
		{Quantity: 7, UnitPrice: 1.115, VATRate: 10},
		{Quantity: 2.5, UnitPrice: 19.99, VATRate: 4},
	}}

	q.Recalculate()
	first := *q
	firstItems := append([]LineItem(nil), q.Items...)

	for i := 0; i < 5; i++ {
		q.Recalculate()
	}

	if q.Totals() != first.Totals() {
		t.Errorf("totals drifted: %+v -> %+v", first.Totals(), q.Totals())
	}
	for i := range q.Items {
		if q.Items[i] != firstItems[i] {
			t.Errorf("line %d drifted: %+v -> %+v", i, firstItems[i], q.Items[i])
		}
	}
}

func TestApplyArticle(t *testing.T) {
	q := &Quote{}
	i := q.NewLine(22)

	err := q.ApplyArticle(i, Article{ID: "art1", Code: "SW-01", Description: "Gestionale", UnitPrice: 250, VATRate: 10})
	if err != nil {
		t.Fatal(err)
	}

	item := q.Items[i]
	if item.Quantity != 1 {
		t.Errorf("quantity = %v, want 1", item.Quantity)
	}
	if item.ArticleID != "art1" || item.Code != "SW-01" || item.VATRate != 10 {
		t.Errorf("article not copied: %+v", item)
	}
	if q.Total != 275 {
		t.Errorf("Total = %v, want 275", q.Total)
	}

	// an explicit quantity is preserved
	_ = q.SetQuantity(i, 4)
	_ = q.ApplyArticle(i, Article{ID: "art2", Code: "HW", Description: "Server", UnitPrice: 10, VATRate: 22})
	if q.Items[i].Quantity != 4 {
		t.Errorf("quantity = %v, want 4", q.Items[i].Quantity)
	}
}

func TestLineOpsOutOfRange(t *testing.T) {
	q := newScenarioQuote()
	before := q.Totals()

	for name, err := range map[string]error{
		"remove":  q.RemoveLine(5),
		"qty":     q.SetQuantity(-1, 3),
		"price":   q.SetUnitPrice(2, 3),
		"vat":     q.SetVATRate(9, 3),
		"article": q.ApplyArticle(2, Article{}),
	} {
		if !errors.Is(err, ErrLineOutOfRange) {
			t.Errorf("%s: expected ErrLineOutOfRange, got %v", name, err)
		}
	}
	if q.Totals() != before || len(q.Items) != 2 {
		t.Errorf("quote changed by failed operations")
	}
}

func TestSetQuantityRejectsNegative(t *testing.T) {
	q := newScenarioQuote()
	_ = q.SetQuantity(0, -3)
	if q.Items[0].Quantity != 0 || q.Items[0].Total != 0 {
		t.Errorf("negative quantity should store 0, got %+v", q.Items[0])
	}
}

func TestRemoveLineRelinksProductImages(t *testing.T) {
	q := newScenarioQuote()
	q.AddLine(LineItem{Description: "C", Quantity: 1, UnitPrice: 1})
	zero, two := 0, 2
	q.Sections.ProductImages = []ProductImage{
		{Src: "/a.png", LinkedItem: &zero},
		{Src: "/b.png", LinkedItem: &two},
		{Src: "/c.png"},
	}

	if err := q.RemoveLine(0); err != nil {
		t.Fatal(err)
	}
	if q.Sections.ProductImages[0].LinkedItem != nil {
		t.Errorf("link to removed line should be cleared")
	}
	if got := q.Sections.ProductImages[1].LinkedItem; got == nil || *got != 1 {
		t.Errorf("link should shift to 1, got %v", got)
	}
}

func TestRecalculate_IncludesLeasing(t *testing.T) {
	q := &Quote{Leasing: &LeasingPlan{AssetValue: 10000, VATRate: 22, VATAmount: 1, TotalVATIncl: 1}}
	q.Recalculate()
	if q.Leasing.VATAmount != 2200 || q.Leasing.TotalVATIncl != 12200 {
		t.Errorf("leasing not recalculated: vat %.2f total %.2f", q.Leasing.VATAmount, q.Leasing.TotalVATIncl)
	}
}
