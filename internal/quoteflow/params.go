package quoteflow

import (
	"net/url"
	"strconv"
	"strings"
)

// Params are the URL query parameters the flow initializer understands.
type Params struct {
	Step               string
	ClinicID           string
	Source             string
	OfferID            string
	OfferTitle         string
	OfferDiscountType  string
	OfferDiscountValue string
	PackageID          string
	PackageTitle       string
	PromoToken         string
	PromoType          string
	PromoTitle         string
	SkipInfo           bool
	Enhanced           bool

	// FlowClinicID is the clinic a restored offer or package belongs to. It
	// is never read from the URL.
	FlowClinicID string
}

// Pending holds values a previous page left in the session mirror.
type Pending struct {
	SelectedClinicID string
	SpecialOffer     *SpecialOffer
	Package          *PackageData
	PromoClinicID    string
}

// ParseParams reads the flow parameters from a query string. Aliases
// (offerClinic, specialOffer, discountType, discountValue) fill in when the
// primary name is absent.
func ParseParams(q url.Values) Params {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(q.Get(k)); v != "" {
				return v
			}
		}
		return ""
	}
	return Params{
		Step:               get("step"),
		ClinicID:           get("clinicId", "offerClinic"),
		Source:             get("source"),
		OfferID:            get("offerId", "specialOffer"),
		OfferTitle:         get("offerTitle"),
		OfferDiscountType:  get("offerDiscountType", "discountType"),
		OfferDiscountValue: get("offerDiscount", "discountValue"),
		PackageID:          get("packageId"),
		PackageTitle:       get("packageTitle"),
		PromoToken:         get("promoToken"),
		PromoType:          get("promoType"),
		PromoTitle:         get("promoTitle"),
		SkipInfo:           parseFlag(get("skipInfo")),
		Enhanced:           parseFlag(get("enhanced")),
	}
}

func parseFlag(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// WithFallback fills parameters the URL did not carry from the session mirror.
// A saved offer or package is restored only when the URL names no offer,
// package or promo token of its own, and only if it matches an explicit
// source. When both are saved the offer wins, as it does in source inference.
func (p Params) WithFallback(pending Pending) Params {
	explicit, hasExplicit := parseSource(p.Source)
	allows := func(s Source) bool { return !hasExplicit || explicit == s }
	urlNamesFlow := p.OfferID != "" || p.PackageID != "" || p.PromoToken != ""

	switch {
	case urlNamesFlow:
	case pending.SpecialOffer != nil && allows(SourceSpecialOffer):
		o := pending.SpecialOffer
		p.OfferID = o.ID
		if p.OfferTitle == "" {
			p.OfferTitle = o.Title
		}
		if p.OfferDiscountType == "" {
			p.OfferDiscountType = o.DiscountType
		}
		if p.OfferDiscountValue == "" && !o.DiscountValue.IsZero() {
			p.OfferDiscountValue = o.DiscountValue.String()
		}
		p.FlowClinicID = o.ClinicID
	case pending.Package != nil && allows(SourcePackage):
		p.PackageID = pending.Package.ID
		if p.PackageTitle == "" {
			p.PackageTitle = pending.Package.Title
		}
		p.FlowClinicID = pending.Package.ClinicID
	}

	if p.ClinicID == "" {
		p.ClinicID = p.FlowClinicID
	}
	if p.ClinicID == "" && p.PromoToken != "" {
		p.ClinicID = pending.PromoClinicID
	}
	if p.ClinicID == "" {
		p.ClinicID = pending.SelectedClinicID
	}
	return p
}

// resolveSource honours an explicit source and otherwise infers one from the
// identifiers present.
func (p Params) resolveSource() Source {
	if s, ok := parseSource(p.Source); ok {
		return s
	}
	switch {
	case p.OfferID != "":
		return SourceSpecialOffer
	case p.PackageID != "":
		return SourcePackage
	case p.PromoToken != "":
		return SourcePromoToken
	default:
		return SourceNormal
	}
}
