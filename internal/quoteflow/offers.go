package quoteflow

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/wolfman30/dental-quote-platform/internal/pricing"
)

var packagePrices = map[string]decimal.Decimal{
	"pkg-001": decimal.NewFromInt(1450),
	"pkg-002": decimal.NewFromInt(2200),
	"pkg-003": decimal.NewFromInt(3100),
}

// DefaultPackagePrice applies to package ids missing from the price table.
var DefaultPackagePrice = decimal.NewFromInt(1200)

// DefaultPromoBasePrice is the price of a synthetic promo line.
var DefaultPromoBasePrice = decimal.NewFromInt(450)

// PackagePrice looks up a package's fixed price. The bool is false when the
// default price was used.
func PackagePrice(id string) (decimal.Decimal, bool) {
	if p, ok := packagePrices[id]; ok {
		return p, true
	}
	return DefaultPackagePrice, false
}

// ProcessSpecialOffers appends the synthetic line for the flow's offer,
// package or promo token unless lines already carry one of that kind. The
// input slice is not modified.
func ProcessSpecialOffers(state State, lines []pricing.LineItem) []pricing.LineItem {
	out := slices.Clone(lines)
	if out == nil {
		out = []pricing.LineItem{}
	}

	if state.IsSpecialOfferFlow() && !slices.ContainsFunc(out, func(l pricing.LineItem) bool { return l.IsSpecialOffer }) {
		out = append(out, specialOfferLine(state.SpecialOffer))
	}
	if state.IsPackageFlow() && !slices.ContainsFunc(out, func(l pricing.LineItem) bool { return l.IsPackage }) {
		out = append(out, packageLine(state.PackageData))
	}
	if state.IsPromoTokenFlow() && !slices.ContainsFunc(out, func(l pricing.LineItem) bool { return l.PromoToken != "" }) {
		if promo := state.PromoTokenData; promo != nil && promo.Token != "" {
			out = append(out, promoLine(promo))
		}
	}
	return out
}

func specialOfferLine(offer *SpecialOffer) pricing.LineItem {
	if offer == nil {
		offer = &SpecialOffer{}
	}
	title := offer.Title
	if title == "" {
		title = "Special Offer"
	}
	line := pricing.NewLineItem(title, "Special Offer", 1, decimal.Zero, decimal.Zero)
	if offer.ID != "" {
		line.ID = "special_offer_" + offer.ID
	}
	line.IsSpecialOffer = true
	line.SpecialOffer = &pricing.OfferDetails{
		ID:            offer.ID,
		Title:         title,
		ClinicID:      offer.ClinicID,
		DiscountType:  offer.DiscountType,
		DiscountValue: offer.DiscountValue,
	}
	return line
}

func packageLine(pkg *PackageData) pricing.LineItem {
	if pkg == nil {
		pkg = &PackageData{}
	}
	title := pkg.Title
	if title == "" {
		title = "Treatment Package"
	}
	price, _ := PackagePrice(pkg.ID)
	line := pricing.NewLineItem(title, "Packages", 1, price, decimal.Zero)
	if pkg.ID != "" {
		line.ID = "package_" + pkg.ID
	}
	line.IsPackage = true
	line.PackageID = pkg.ID
	line.ClinicPriced = true
	return line
}

func promoLine(promo *PromoTokenData) pricing.LineItem {
	title := promo.Title
	if title == "" {
		title = "Promotional Offer"
	}
	line := pricing.NewLineItem(title, "Promotion", 1, DefaultPromoBasePrice, decimal.Zero)
	line.ID = "promo_" + promo.Token
	line.PromoToken = promo.Token
	line.PromoDiscount = &pricing.PromoDiscount{Type: promo.DiscountType, Value: promo.DiscountValue}
	line.ClinicPriced = true
	return line
}
