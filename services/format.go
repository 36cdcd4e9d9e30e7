package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Round2 rounds x half away from zero to two decimals. Non-finite input
// yields 0 so that a malformed number never propagates into stored totals.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(x).Round(2).Float64()
	return f
}

// dec converts a float to decimal, mapping non-finite values to zero.
func dec(x float64) decimal.Decimal {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(x)
}

// FormatEUR formats an amount the Italian way: "€ 1.234,56".
// The result always includes exactly 2 decimal places.
func FormatEUR(amount float64) string {
	amount = Round2(amount)
	negative := amount < 0
	if negative {
		amount = -amount
	}

	raw := fmt.Sprintf("%.2f", amount)
	parts := strings.SplitN(raw, ".", 2)

	result := "€ " + groupThousands(parts[0]) + "," + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// FormatPercent renders a VAT rate without trailing zeros: 22 -> "22%", 4.5 -> "4,5%".
func FormatPercent(rate float64) string {
	return FormatQty(rate) + "%"
}

// FormatQty renders a quantity with up to two decimals and an Italian comma.
func FormatQty(q float64) string {
	q = Round2(q)
	if q == math.Trunc(q) {
		return fmt.Sprintf("%.0f", q)
	}
	s := strings.TrimRight(fmt.Sprintf("%.2f", q), "0")
	return strings.Replace(s, ".", ",", 1)
}

// groupThousands inserts a dot every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatDate renders a date as dd/mm/yyyy; the zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
