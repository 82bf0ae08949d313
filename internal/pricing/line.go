package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
)

// DefaultUSDRate converts GBP amounts to their USD equivalents.
var DefaultUSDRate = decimal.RequireFromString("1.29")

// OfferDetails describes the special offer a synthetic line represents.
type OfferDetails struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	ClinicID      string          `json:"clinicId,omitempty"`
	DiscountType  string          `json:"discountType,omitempty"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

// PromoDiscount is the discount carried by a promo-token line.
type PromoDiscount struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// LineItem is one treatment in a patient's plan, priced at the UK baseline.
// At most one of IsSpecialOffer, IsPackage and PromoToken is set.
type LineItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Quantity     int             `json:"quantity"`
	UnitPriceGBP decimal.Decimal `json:"unitPriceGBP"`
	SubtotalGBP  decimal.Decimal `json:"subtotalGBP"`
	UnitPriceUSD decimal.Decimal `json:"unitPriceUSD"`
	SubtotalUSD  decimal.Decimal `json:"subtotalUSD"`

	IsSpecialOffer bool           `json:"isSpecialOffer,omitempty"`
	SpecialOffer   *OfferDetails  `json:"specialOffer,omitempty"`
	IsPackage      bool           `json:"isPackage,omitempty"`
	PackageID      string         `json:"packageId,omitempty"`
	PromoToken     string         `json:"promoToken,omitempty"`
	PromoDiscount  *PromoDiscount `json:"promoDiscount,omitempty"`

	// ClinicPriced lines already carry a clinic price and are not scaled by
	// the clinic's price factor.
	ClinicPriced bool `json:"clinicPriced,omitempty"`
}

// NewLineItem builds a line and fills the derived subtotal and USD fields.
func NewLineItem(name, category string, quantity int, unitGBP decimal.Decimal, usdRate decimal.Decimal) LineItem {
	item := LineItem{
		ID:           uuid.NewString(),
		Name:         name,
		Category:     category,
		Quantity:     quantity,
		UnitPriceGBP: unitGBP,
	}
	item.Recalculate(usdRate)
	return item
}

// Recalculate restores subtotal = unit * quantity for both currencies.
func (l *LineItem) Recalculate(usdRate decimal.Decimal) {
	if usdRate.IsZero() {
		usdRate = DefaultUSDRate
	}
	if l.Quantity < 1 {
		l.Quantity = 1
	}
	qty := decimal.NewFromInt(int64(l.Quantity))
	l.SubtotalGBP = l.UnitPriceGBP.Mul(qty)
	l.UnitPriceUSD = l.UnitPriceGBP.Mul(usdRate).Round(0)
	l.SubtotalUSD = l.UnitPriceUSD.Mul(qty)
}

// LinesFromPlan prices plan items at the catalog's UK baseline. Names the
// catalog does not know are returned separately and left out of the lines.
func LinesFromPlan(cat *catalog.Catalog, items []catalog.PlanItem, usdRate decimal.Decimal) ([]LineItem, []string) {
	lines := make([]LineItem, 0, len(items))
	var unknown []string
	for _, item := range items {
		t, ok := cat.Lookup(item.Name)
		if !ok {
			unknown = append(unknown, item.Name)
			continue
		}
		lines = append(lines, NewLineItem(t.Name, t.Category, item.Quantity, decimal.NewFromFloat(t.UKPriceGBP), usdRate))
	}
	return lines, unknown
}
