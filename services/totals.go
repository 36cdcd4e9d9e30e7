package services

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrLineOutOfRange is returned by the line editing operations when the
// index does not address an existing line.
var ErrLineOutOfRange = errors.New("line index out of range")

// QuoteTotals holds the aggregated amounts of a quote.
type QuoteTotals struct {
	Subtotal float64
	VATTotal float64
	Total    float64
}

// CalcLineTotal returns quantity * unitPrice rounded to cents.
func CalcLineTotal(qty, unitPrice float64) float64 {
	f, _ := dec(qty).Mul(dec(unitPrice)).Round(2).Float64()
	return f
}

// CalcQuoteTotals sums the line totals and the per-line VAT. Each line is
// taxed at its own rate; the VAT sum is rounded once at the end.
func CalcQuoteTotals(items []LineItem) QuoteTotals {
	subtotal := decimal.Zero
	vat := decimal.Zero
	hundred := decimal.NewFromInt(100)

	for _, item := range items {
		line := dec(CalcLineTotal(item.Quantity, item.UnitPrice))
		subtotal = subtotal.Add(line)
		vat = vat.Add(line.Mul(dec(item.VATRate)).Div(hundred))
	}

	subtotal = subtotal.Round(2)
	vat = vat.Round(2)

	return QuoteTotals{
		Subtotal: subtotal.InexactFloat64(),
		VATTotal: vat.InexactFloat64(),
		Total:    subtotal.Add(vat).Round(2).InexactFloat64(),
	}
}

// Recalculate rewrites every line total, the quote totals and the leasing
// plan's derived amounts. Running it on an already consistent quote changes
// nothing.
func (q *Quote) Recalculate() {
	for i := range q.Items {
		q.Items[i].Total = CalcLineTotal(q.Items[i].Quantity, q.Items[i].UnitPrice)
	}
	t := CalcQuoteTotals(q.Items)
	q.Subtotal = t.Subtotal
	q.VATTotal = t.VATTotal
	q.Total = t.Total
	if q.Leasing != nil {
		q.Leasing.Recalculate()
	}
}

// Totals returns the quote's current totals.
func (q *Quote) Totals() QuoteTotals {
	return QuoteTotals{Subtotal: q.Subtotal, VATTotal: q.VATTotal, Total: q.Total}
}

// NewLine appends an empty line taxed at defaultVAT.
func (q *Quote) NewLine(defaultVAT float64) int {
	q.AddLine(LineItem{VATRate: defaultVAT})
	return len(q.Items) - 1
}

// AddLine appends item and recalculates.
func (q *Quote) AddLine(item LineItem) {
	q.Items = append(q.Items, item)
	q.Recalculate()
}

// RemoveLine deletes line i and recalculates.
func (q *Quote) RemoveLine(i int) error {
	if err := q.checkLine(i); err != nil {
		return err
	}
	q.Items = append(q.Items[:i], q.Items[i+1:]...)
	q.relinkProductImages(i)
	q.Recalculate()
	return nil
}

// SetQuantity updates the quantity of line i. Negative or non-finite
// values are stored as 0.
func (q *Quote) SetQuantity(i int, qty float64) error {
	if err := q.checkLine(i); err != nil {
		return err
	}
	q.Items[i].Quantity = nonNegative(qty)
	q.Recalculate()
	return nil
}

// SetUnitPrice updates the unit price of line i.
func (q *Quote) SetUnitPrice(i int, price float64) error {
	if err := q.checkLine(i); err != nil {
		return err
	}
	q.Items[i].UnitPrice = nonNegative(price)
	q.Recalculate()
	return nil
}

// SetVATRate updates the VAT rate of line i, clamped to 0..100.
func (q *Quote) SetVATRate(i int, rate float64) error {
	if err := q.checkLine(i); err != nil {
		return err
	}
	rate = nonNegative(rate)
	if rate > 100 {
		rate = 100
	}
	q.Items[i].VATRate = rate
	q.Recalculate()
	return nil
}

// ApplyArticle fills line i from a catalog article. The quantity becomes 1
// when it was not set yet.
func (q *Quote) ApplyArticle(i int, a Article) error {
	if err := q.checkLine(i); err != nil {
		return err
	}
	item := &q.Items[i]
	item.ArticleID = a.ID
	item.Code = a.Code
	item.Description = a.Description
	item.UnitPrice = nonNegative(a.UnitPrice)
	item.VATRate = nonNegative(a.VATRate)
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	q.Recalculate()
	return nil
}

func (q *Quote) checkLine(i int) error {
	if i < 0 || i >= len(q.Items) {
		return fmt.Errorf("%w: %d (have %d lines)", ErrLineOutOfRange, i, len(q.Items))
	}
	return nil
}

// relinkProductImages keeps product-image links pointing at the same line
// after line removed was deleted.
func (q *Quote) relinkProductImages(removed int) {
	for i := range q.Sections.ProductImages {
		link := q.Sections.ProductImages[i].LinkedItem
		if link == nil {
			continue
		}
		switch {
		case *link == removed:
			q.Sections.ProductImages[i].LinkedItem = nil
		case *link > removed:
			n := *link - 1
			q.Sections.ProductImages[i].LinkedItem = &n
		}
	}
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
