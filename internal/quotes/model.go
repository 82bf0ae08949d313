// Package quotes compares clinic prices for a treatment plan and records the
// quotes patients submit.
package quotes

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/pricing"
)

// Patient is the contact a quote is sent to.
type Patient struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Country     string `json:"country,omitempty"`
	TravelMonth string `json:"travelMonth,omitempty"`
}

// Quote is a persisted submission priced for one clinic.
type Quote struct {
	ID             string               `json:"id"`
	SessionID      string               `json:"sessionId,omitempty"`
	Patient        Patient              `json:"patient"`
	ClinicID       string               `json:"clinicId"`
	ClinicName     string               `json:"clinicName"`
	Source         string               `json:"source"`
	PackageID      string               `json:"packageId,omitempty"`
	OfferID        string               `json:"offerId,omitempty"`
	PromoToken     string               `json:"promoToken,omitempty"`
	Lines          []pricing.ClinicLine `json:"lines"`
	Total          decimal.Decimal      `json:"total"`
	TotalUSD       decimal.Decimal      `json:"totalUSD"`
	UKTotal        decimal.Decimal      `json:"ukTotal"`
	Savings        decimal.Decimal      `json:"savings"`
	SavingsPercent int64                `json:"savingsPercent"`
	PackageApplied bool                 `json:"packageApplied,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// Comparison is the matched-clinics view of a plan.
type Comparison struct {
	Source  string             `json:"source"`
	Lines   []pricing.LineItem `json:"lines"`
	Results []pricing.Result   `json:"results"`
}

// TreatmentRequest is one requested treatment. A zero quantity means one.
type TreatmentRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Quantity int    `json:"quantity" validate:"gte=0,lte=32"`
}

// CompareRequest is the body of POST /api/quotes/compare. Params carries the
// same keys the quote flow reads from the landing URL and is ignored when the
// session already has a flow.
type CompareRequest struct {
	SessionID  string             `json:"sessionId" validate:"omitempty,max=128"`
	Treatments []TreatmentRequest `json:"treatments" validate:"required,min=1,max=50,dive"`
	Params     map[string]string  `json:"params"`
	Tier       string             `json:"tier" validate:"omitempty,oneof=premium standard affordable"`
}

// PatientRequest is the contact block of a submission.
type PatientRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Country     string `json:"country" validate:"omitempty,max=64"`
	TravelMonth string `json:"travelMonth" validate:"omitempty,max=32"`
	Notes       string `json:"notes" validate:"omitempty,max=2000"`
}

// SubmitRequest is the body of POST /api/quotes.
type SubmitRequest struct {
	SessionID  string             `json:"sessionId" validate:"omitempty,max=128"`
	ClinicID   string             `json:"clinicId" validate:"required,max=128"`
	Patient    PatientRequest     `json:"patient" validate:"required"`
	Treatments []TreatmentRequest `json:"treatments" validate:"required,min=1,max=50,dive"`
	Params     map[string]string  `json:"params"`
}

func planItems(reqs []TreatmentRequest) []catalog.PlanItem {
	items := make([]catalog.PlanItem, 0, len(reqs))
	for _, r := range reqs {
		qty := r.Quantity
		if qty < 1 {
			qty = 1
		}
		items = append(items, catalog.PlanItem{Name: r.Name, Quantity: qty})
	}
	return items
}
