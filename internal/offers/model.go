// Package offers lets clinic staff publish special offers that patients can
// land on from marketing links.
package offers

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Discount types.
const (
	DiscountPercentage  = "percentage"
	DiscountFixedAmount = "fixed_amount"
)

// SpecialOffer is a clinic-published promotion.
type SpecialOffer struct {
	ID            string          `json:"id"`
	ClinicID      string          `json:"clinicId"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	DiscountType  string          `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	Treatments    []string        `json:"applicableTreatments"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       *time.Time      `json:"endDate,omitempty"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ActiveAt reports whether the offer can be used at t.
func (o SpecialOffer) ActiveAt(t time.Time) bool {
	if !o.Active || t.Before(o.StartDate) {
		return false
	}
	return o.EndDate == nil || t.Before(*o.EndDate)
}

// LandingURL returns the quote flow link that starts a special-offer quote.
func (o SpecialOffer) LandingURL(baseURL string) string {
	q := url.Values{}
	q.Set("source", "special_offer")
	q.Set("offerId", o.ID)
	q.Set("offerTitle", o.Title)
	q.Set("offerDiscountType", o.DiscountType)
	q.Set("offerDiscount", o.DiscountValue.String())
	q.Set("clinicId", o.ClinicID)
	return strings.TrimRight(baseURL, "/") + "/your-quote?" + q.Encode()
}

// CreateRequest is the body of POST /api/portal/clinic/special-offers.
type CreateRequest struct {
	Title         string          `json:"title" validate:"required,max=120"`
	Description   string          `json:"description" validate:"omitempty,max=2000"`
	DiscountType  string          `json:"discountType" validate:"required,oneof=percentage fixed_amount"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	Treatments    []string        `json:"applicableTreatments" validate:"omitempty,dive,required"`
	StartDate     *time.Time      `json:"startDate"`
	EndDate       *time.Time      `json:"endDate"`
}
