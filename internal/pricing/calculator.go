// Package pricing derives partner-clinic quotes from UK baseline prices.
//
// Clinic unit prices are rounded half-up before multiplying by quantity, so a
// clinic total can differ by a few pounds from the UK total times the price
// factor. That difference is observable behaviour and is kept on purpose.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
)

// UK equivalent value used for package savings.
var (
	UKPrivateDentalEstimate = decimal.NewFromInt(7500)
	UKVacationEstimate      = decimal.NewFromInt(1200)
	UKTransferEstimate      = decimal.NewFromInt(150)
)

// UKEquivalentValue is what a package would cost a patient staying in the UK.
func UKEquivalentValue() decimal.Decimal {
	return UKPrivateDentalEstimate.Add(UKVacationEstimate).Add(UKTransferEstimate)
}

// PackageDeal is an active package flow tied to one clinic.
type PackageDeal struct {
	ID       string          `json:"id"`
	ClinicID string          `json:"clinicId"`
	Price    decimal.Decimal `json:"price"`
}

// Options tune a pricing run.
type Options struct {
	Package *PackageDeal
	USDRate decimal.Decimal
}

// ClinicLine is a line item priced for a specific clinic.
type ClinicLine struct {
	LineID         string          `json:"lineId"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UKUnitPrice    decimal.Decimal `json:"ukUnitPrice"`
	UKSubtotal     decimal.Decimal `json:"ukSubtotal"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	UnitPriceUSD   decimal.Decimal `json:"unitPriceUSD"`
	SubtotalUSD    decimal.Decimal `json:"subtotalUSD"`
	IsSpecialOffer bool            `json:"isSpecialOffer,omitempty"`
	IsPackage      bool            `json:"isPackage,omitempty"`
	PromoToken     string          `json:"promoToken,omitempty"`
}

// Result is a clinic's quote for a set of lines.
type Result struct {
	ClinicID       string          `json:"clinicId"`
	ClinicName     string          `json:"clinicName"`
	Tier           catalog.Tier    `json:"tier"`
	Lines          []ClinicLine    `json:"lines"`
	Total          decimal.Decimal `json:"total"`
	TotalUSD       decimal.Decimal `json:"totalUSD"`
	UKTotal        decimal.Decimal `json:"ukTotal"`
	Savings        decimal.Decimal `json:"savings"`
	SavingsPercent int64           `json:"savingsPercent"`
	PackageApplied bool            `json:"packageApplied,omitempty"`
}

// PriceForClinic quotes lines at clinic. Each clinic unit price is
// round(ukUnit * priceFactor); subtotals are unit * quantity. When opts carries
// a package tied to this clinic, the total is the package price and savings
// are measured against UKEquivalentValue. Otherwise savings compare only the
// lines that have a UK baseline; clinic-priced lines count toward Total alone.
func PriceForClinic(clinic catalog.Clinic, lines []LineItem, opts Options) Result {
	rate := opts.USDRate
	if rate.IsZero() {
		rate = DefaultUSDRate
	}
	factor := decimal.NewFromFloat(clinic.PriceFactor)

	res := Result{
		ClinicID:   clinic.ID,
		ClinicName: clinic.Name,
		Tier:       clinic.Tier,
		Lines:      make([]ClinicLine, 0, len(lines)),
		Total:      decimal.Zero,
		UKTotal:    decimal.Zero,
	}
	itemized := decimal.Zero

	for _, line := range lines {
		qtyInt := line.Quantity
		if qtyInt < 1 {
			qtyInt = 1
		}
		qty := decimal.NewFromInt(int64(qtyInt))

		unit := line.UnitPriceGBP.Mul(factor).Round(0)
		if line.ClinicPriced {
			unit = line.UnitPriceGBP
		}
		unitUSD := unit.Mul(rate).Round(0)

		cl := ClinicLine{
			LineID:         line.ID,
			Name:           line.Name,
			Quantity:       qtyInt,
			UKUnitPrice:    line.UnitPriceGBP,
			UKSubtotal:     line.UnitPriceGBP.Mul(qty),
			UnitPrice:      unit,
			Subtotal:       unit.Mul(qty),
			UnitPriceUSD:   unitUSD,
			SubtotalUSD:    unitUSD.Mul(qty),
			IsSpecialOffer: line.IsSpecialOffer,
			IsPackage:      line.IsPackage,
			PromoToken:     line.PromoToken,
		}
		res.Lines = append(res.Lines, cl)
		res.Total = res.Total.Add(cl.Subtotal)
		// Clinic-priced lines have no UK baseline.
		if !line.ClinicPriced {
			res.UKTotal = res.UKTotal.Add(cl.UKSubtotal)
			itemized = itemized.Add(cl.Subtotal)
		}
	}

	if pkg := opts.Package; pkg != nil && pkg.ClinicID == clinic.ID {
		res.PackageApplied = true
		res.Total = pkg.Price
		res.UKTotal = UKEquivalentValue()
		itemized = pkg.Price
	}

	res.TotalUSD = res.Total.Mul(rate).Round(0)
	res.Savings = res.UKTotal.Sub(itemized)
	if res.UKTotal.IsPositive() {
		res.SavingsPercent = res.Savings.Div(res.UKTotal).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	}
	return res
}

// CompareClinics prices the same lines at every clinic, preserving order.
func CompareClinics(clinics []catalog.Clinic, lines []LineItem, opts Options) []Result {
	out := make([]Result, 0, len(clinics))
	for _, c := range clinics {
		out = append(out, PriceForClinic(c, lines, opts))
	}
	return out
}
