package quoteflow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/pricing"
)

// Step is a position in the quote flow.
type Step string

const (
	StepStart   Step = "start"
	StepInfo    Step = "info"
	StepDetails Step = "details"
	StepConfirm Step = "confirm"
)

var nextStep = map[Step]Step{
	StepStart:   StepInfo,
	StepInfo:    StepDetails,
	StepDetails: StepConfirm,
}

var prevStep = map[Step]Step{
	StepInfo:    StepStart,
	StepDetails: StepInfo,
	StepConfirm: StepDetails,
}

// Valid reports whether s is one of the four steps.
func (s Step) Valid() bool {
	switch s {
	case StepStart, StepInfo, StepDetails, StepConfirm:
		return true
	}
	return false
}

// ParseStep converts a query or path value into a Step.
func ParseStep(raw string) (Step, error) {
	s := Step(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("quoteflow: unknown step %q", raw)
	}
	return s, nil
}

// Source is how the patient entered the quote flow.
type Source string

const (
	SourceNormal       Source = "normal"
	SourceSpecialOffer Source = "special_offer"
	SourcePackage      Source = "package"
	SourcePromoToken   Source = "promo_token"
)

func parseSource(raw string) (Source, bool) {
	s := Source(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case SourceNormal, SourceSpecialOffer, SourcePackage, SourcePromoToken:
		return s, true
	}
	return "", false
}

// PatientData is what the patient typed into the info step.
type PatientData struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Country     string `json:"country,omitempty"`
	TravelMonth string `json:"travelMonth,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// SpecialOffer is the offer the patient arrived with.
type SpecialOffer struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	ClinicID      string          `json:"clinicId,omitempty"`
	DiscountType  string          `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

// PackageData is the package the patient arrived with.
type PackageData struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	ClinicID string `json:"clinicId,omitempty"`
}

// PromoTokenData is a promo campaign resolved from URL parameters.
type PromoTokenData struct {
	Token         string          `json:"token"`
	Type          string          `json:"type,omitempty"`
	Title         string          `json:"title,omitempty"`
	ClinicID      string          `json:"clinicId,omitempty"`
	DiscountType  string          `json:"discountType,omitempty"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

// State is the quote flow of one session. Source is fixed at initialization
// until the flow is reset.
type State struct {
	CurrentStep        Step               `json:"currentStep"`
	Source             Source             `json:"source"`
	PatientData        *PatientData       `json:"patientData,omitempty"`
	TreatmentData      []pricing.LineItem `json:"treatmentData"`
	SelectedClinicID   string             `json:"selectedClinicId,omitempty"`
	SelectedClinic     *catalog.Clinic    `json:"selectedClinic,omitempty"`
	SpecialOffer       *SpecialOffer      `json:"specialOffer,omitempty"`
	PackageData        *PackageData       `json:"packageData,omitempty"`
	PromoTokenData     *PromoTokenData    `json:"promoTokenData,omitempty"`
	IsQuoteInitialized bool               `json:"isQuoteInitialized"`
	SkipInfo           bool               `json:"skipInfo,omitempty"`
	Enhanced           bool               `json:"enhanced,omitempty"`
}

func defaultState() State {
	return State{
		CurrentStep:   StepStart,
		Source:        SourceNormal,
		TreatmentData: []pricing.LineItem{},
	}
}

// IsSpecialOfferFlow mirrors Source.
func (s State) IsSpecialOfferFlow() bool { return s.Source == SourceSpecialOffer }

// IsPackageFlow mirrors Source.
func (s State) IsPackageFlow() bool { return s.Source == SourcePackage }

// IsPromoTokenFlow mirrors Source.
func (s State) IsPromoTokenFlow() bool { return s.Source == SourcePromoToken }

// PackageDeal returns the pricing override for an active package tied to a clinic.
func (s State) PackageDeal() *pricing.PackageDeal {
	if !s.IsPackageFlow() || s.PackageData == nil || s.PackageData.ClinicID == "" {
		return nil
	}
	price, _ := PackagePrice(s.PackageData.ID)
	return &pricing.PackageDeal{ID: s.PackageData.ID, ClinicID: s.PackageData.ClinicID, Price: price}
}

func (s State) clone() State {
	out := s
	out.TreatmentData = slices.Clone(s.TreatmentData)
	if out.TreatmentData == nil {
		out.TreatmentData = []pricing.LineItem{}
	}
	if s.PatientData != nil {
		p := *s.PatientData
		out.PatientData = &p
	}
	if s.SelectedClinic != nil {
		c := *s.SelectedClinic
		out.SelectedClinic = &c
	}
	if s.SpecialOffer != nil {
		o := *s.SpecialOffer
		out.SpecialOffer = &o
	}
	if s.PackageData != nil {
		p := *s.PackageData
		out.PackageData = &p
	}
	if s.PromoTokenData != nil {
		p := *s.PromoTokenData
		out.PromoTokenData = &p
	}
	return out
}

// View is the JSON shape returned to clients, with the derived flow flags.
type View struct {
	State
	IsSpecialOfferFlow bool `json:"isSpecialOfferFlow"`
	IsPackageFlow      bool `json:"isPackageFlow"`
	IsPromoTokenFlow   bool `json:"isPromoTokenFlow"`
}

// NewView wraps a snapshot for serialization.
func NewView(s State) View {
	return View{
		State:              s,
		IsSpecialOfferFlow: s.IsSpecialOfferFlow(),
		IsPackageFlow:      s.IsPackageFlow(),
		IsPromoTokenFlow:   s.IsPromoTokenFlow(),
	}
}
