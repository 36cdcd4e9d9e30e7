package services

// LeasingType distinguishes operating leases from plain financing.
type LeasingType string

const (
	LeasingTypeLeasing   LeasingType = "leasing"
	LeasingTypeFinancing LeasingType = "financing"
)

// Periodicity is how often an installment falls due.
type Periodicity string

const (
	PeriodicityMonthly   Periodicity = "monthly"
	PeriodicityQuarterly Periodicity = "quarterly"
)

// DefaultLeasingVATRate applies when a plan is first activated without a rate.
const DefaultLeasingVATRate = 22.0

// Label returns the Italian label printed on the document.
func (p Periodicity) Label() string {
	switch p {
	case PeriodicityQuarterly:
		return "Trimestrale"
	case PeriodicityMonthly:
		return "Mensile"
	}
	return ""
}

// Label returns the Italian section title for the plan type.
func (t LeasingType) Label() string {
	if t == LeasingTypeFinancing {
		return "Finanziamento"
	}
	return "Leasing"
}

// LeasingPlan is an optional financing schedule attached to a quote.
// VATAmount and TotalVATIncl are derived from AssetValue and VATRate; the
// remaining fields are entered by hand and not checked against each other.
type LeasingPlan struct {
	Type                 LeasingType `json:"type" validate:"oneof=leasing financing"`
	AssetValue           float64     `json:"assetValue" validate:"gte=0"`
	VATRate              float64     `json:"vatRate" validate:"gte=0,lte=100"`
	VATAmount            float64     `json:"vatAmount"`
	TotalVATIncl         float64     `json:"totalAssetValueVatIncl"`
	DownPaymentValue     float64     `json:"initialDownPaymentValue,omitempty" validate:"gte=0"`
	DownPaymentPercent   float64     `json:"initialDownPaymentPercent,omitempty" validate:"gte=0,lte=100"`
	NetFinancedCapital   float64     `json:"netFinancedCapital,omitempty" validate:"gte=0"`
	DurationMonths       int         `json:"durationMonths,omitempty" validate:"gte=0"`
	Installments         int         `json:"numberOfInstallments,omitempty" validate:"gte=0"`
	Periodicity          Periodicity `json:"periodicity,omitempty" validate:"omitempty,oneof=monthly quarterly"`
	InstallmentAmount    float64     `json:"installmentAmount,omitempty" validate:"gte=0"`
	StartDate            string      `json:"startDate,omitempty"`
	FirstInstallmentDate string      `json:"firstInstallmentDate,omitempty"`
}

// Recalculate derives the VAT amount and the VAT-inclusive total.
func (p *LeasingPlan) Recalculate() {
	p.AssetValue = nonNegative(p.AssetValue)
	p.VATRate = nonNegative(p.VATRate)
	p.VATAmount = Round2(dec(p.AssetValue).Mul(dec(p.VATRate)).Div(dec(100)).InexactFloat64())
	p.TotalVATIncl = Round2(dec(p.AssetValue).Add(dec(p.VATAmount)).InexactFloat64())
}

// SetAssetValue updates the financed asset value and recalculates.
func (p *LeasingPlan) SetAssetValue(v float64) {
	p.AssetValue = v
	p.Recalculate()
}

// SetVATRate updates the VAT rate and recalculates.
func (p *LeasingPlan) SetVATRate(rate float64) {
	p.VATRate = rate
	p.Recalculate()
}

// ActivateLeasing attaches a plan of the given kind to the quote. A quote
// that already has a plan keeps it and only switches kind. A nil vatRate on
// first activation means DefaultLeasingVATRate.
func (q *Quote) ActivateLeasing(kind LeasingType, vatRate *float64) *LeasingPlan {
	if kind != LeasingTypeFinancing {
		kind = LeasingTypeLeasing
	}
	if q.Leasing != nil {
		q.Leasing.Type = kind
		if vatRate != nil {
			q.Leasing.SetVATRate(*vatRate)
		}
		return q.Leasing
	}

	rate := DefaultLeasingVATRate
	if vatRate != nil {
		rate = *vatRate
	}
	q.Leasing = &LeasingPlan{
		Type:        kind,
		VATRate:     rate,
		Periodicity: PeriodicityMonthly,
	}
	q.Leasing.Recalculate()
	return q.Leasing
}

// DeactivateLeasing removes the plan; no leasing section is rendered.
func (q *Quote) DeactivateLeasing() {
	q.Leasing = nil
}
