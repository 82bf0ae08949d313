package quoteflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dental-quote-platform/internal/pricing"
)

func implantLine() pricing.LineItem {
	return pricing.NewLineItem("Dental Implant", "Implants", 1, decimal.NewFromInt(1200), decimal.Zero)
}

func TestProcessSpecialOffersNormalFlowUnchanged(t *testing.T) {
	lines := []pricing.LineItem{implantLine()}
	out := ProcessSpecialOffers(defaultState(), lines)
	assert.Equal(t, lines, out)
}

func TestProcessSpecialOffersPackage(t *testing.T) {
	tests := []struct {
		id   string
		want int64
	}{
		{"pkg-001", 1450},
		{"pkg-002", 2200},
		{"pkg-003", 3100},
		{"pkg-999", 1200},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			st := defaultState()
			st.Source = SourcePackage
			st.PackageData = &PackageData{ID: tt.id}

			out := ProcessSpecialOffers(st, []pricing.LineItem{implantLine()})

			require.Len(t, out, 2)
			pkg := out[1]
			assert.True(t, pkg.IsPackage)
			assert.Equal(t, tt.id, pkg.PackageID)
			assert.True(t, pkg.UnitPriceGBP.Equal(decimal.NewFromInt(tt.want)), "price %s", pkg.UnitPriceGBP)
			assert.True(t, pkg.ClinicPriced)
		})
	}
}

func TestProcessSpecialOffersSpecialOffer(t *testing.T) {
	st := defaultState()
	st.Source = SourceSpecialOffer
	st.SpecialOffer = &SpecialOffer{ID: "o1", Title: "Free Consultation", DiscountType: "fixed_amount", DiscountValue: decimal.NewFromInt(80)}

	out := ProcessSpecialOffers(st, nil)

	require.Len(t, out, 1)
	line := out[0]
	assert.True(t, line.IsSpecialOffer)
	assert.True(t, line.UnitPriceGBP.IsZero())
	require.NotNil(t, line.SpecialOffer)
	assert.Equal(t, "o1", line.SpecialOffer.ID)
	assert.Equal(t, "fixed_amount", line.SpecialOffer.DiscountType)
	assert.Equal(t, "Free Consultation", line.Name)
}

func TestProcessSpecialOffersPromoDefaults(t *testing.T) {
	st := defaultState()
	st.Source = SourcePromoToken
	st.PromoTokenData = &PromoTokenData{Token: "SPRING", DiscountType: "percentage", DiscountValue: decimal.NewFromInt(10)}

	out := ProcessSpecialOffers(st, []pricing.LineItem{implantLine()})

	require.Len(t, out, 2)
	promo := out[1]
	assert.Equal(t, "Promotional Offer", promo.Name)
	assert.Equal(t, "SPRING", promo.PromoToken)
	assert.True(t, promo.UnitPriceGBP.Equal(decimal.NewFromInt(450)))
	require.NotNil(t, promo.PromoDiscount)
	assert.Equal(t, "percentage", promo.PromoDiscount.Type)
}

func TestProcessSpecialOffersIdempotent(t *testing.T) {
	states := map[string]State{}
	st := defaultState()
	st.Source = SourcePackage
	st.PackageData = &PackageData{ID: "pkg-002"}
	states["package"] = st

	st = defaultState()
	st.Source = SourceSpecialOffer
	st.SpecialOffer = &SpecialOffer{ID: "o1"}
	states["offer"] = st

	st = defaultState()
	st.Source = SourcePromoToken
	st.PromoTokenData = &PromoTokenData{Token: "T"}
	states["promo"] = st

	for name, st := range states {
		t.Run(name, func(t *testing.T) {
			once := ProcessSpecialOffers(st, []pricing.LineItem{implantLine()})
			twice := ProcessSpecialOffers(st, once)
			assert.Equal(t, once, twice)
			assert.Len(t, twice, 2)
		})
	}
}

func TestProcessSpecialOffersDoesNotMutateInput(t *testing.T) {
	st := defaultState()
	st.Source = SourcePackage
	st.PackageData = &PackageData{ID: "pkg-001"}

	lines := make([]pricing.LineItem, 1, 4)
	lines[0] = implantLine()
	out := ProcessSpecialOffers(st, lines)

	assert.Len(t, lines, 1)
	assert.Len(t, out, 2)
}

func TestSetTreatmentDataInjects(t *testing.T) {
	f := NewFlow(nil, quietLogger())
	f.Initialize(t.Context(), Params{PackageID: "pkg-001", ClinicID: ""}, nil)

	lines := f.SetTreatmentData([]pricing.LineItem{implantLine()})
	require.Len(t, lines, 2)
	lines = f.SetTreatmentData(f.Snapshot().TreatmentData)
	assert.Len(t, lines, 2)
}
