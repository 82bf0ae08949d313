package quoteflow

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

func quietLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, "error", "json")
}

type countingFetcher struct {
	calls   atomic.Int32
	mu      sync.Mutex
	ids     []string
	err     error
	release chan struct{}
}

func (c *countingFetcher) FetchClinic(ctx context.Context, id string) (*catalog.Clinic, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.ids = append(c.ids, id)
	c.mu.Unlock()
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return &catalog.Clinic{ID: id, Name: "Clinic " + id, Tier: catalog.TierPremium, PriceFactor: 0.45}, nil
}

func TestStepTransitions(t *testing.T) {
	f := NewFlow(nil, quietLogger())

	assert.Equal(t, StepStart, f.GoToPreviousStep(), "previous from start is a no-op")
	assert.Equal(t, StepInfo, f.GoToNextStep())
	assert.Equal(t, StepDetails, f.GoToNextStep())
	assert.Equal(t, StepConfirm, f.GoToNextStep())
	assert.Equal(t, StepConfirm, f.GoToNextStep(), "next from confirm is a no-op")
	assert.Equal(t, StepDetails, f.GoToPreviousStep())

	require.NoError(t, f.GoToStep(StepStart))
	assert.Equal(t, StepStart, f.CurrentStep())
	assert.Error(t, f.GoToStep(Step("payment")))
	assert.Equal(t, StepStart, f.CurrentStep())
}

func TestParseStep(t *testing.T) {
	s, err := ParseStep(" Details ")
	require.NoError(t, err)
	assert.Equal(t, StepDetails, s)

	_, err = ParseStep("checkout")
	assert.Error(t, err)
}

func TestInitializePackageFromURLFetchesClinicOnce(t *testing.T) {
	fetcher := &countingFetcher{}
	f := NewFlow(fetcher, quietLogger())

	q := url.Values{}
	q.Set("source", "package")
	q.Set("packageId", "pkg-002")
	q.Set("clinicId", "dentgroup-istanbul")

	st := f.Initialize(context.Background(), ParseParams(q), nil)

	assert.True(t, st.IsQuoteInitialized)
	assert.True(t, st.IsPackageFlow())
	assert.False(t, st.IsSpecialOfferFlow())
	assert.False(t, st.IsPromoTokenFlow())
	require.NotNil(t, st.PackageData)
	assert.Equal(t, "pkg-002", st.PackageData.ID)
	assert.Equal(t, "dentgroup-istanbul", st.SelectedClinicID)

	clinic, err := f.WaitForClinic(context.Background())
	require.NoError(t, err)
	require.NotNil(t, clinic)
	assert.Equal(t, "dentgroup-istanbul", clinic.ID)
	assert.EqualValues(t, 1, fetcher.calls.Load())

	deal := f.Snapshot().PackageDeal()
	require.NotNil(t, deal)
	assert.Equal(t, "2200", deal.Price.String())
}

func TestInitializeReturnsBeforeClinicFetch(t *testing.T) {
	fetcher := &countingFetcher{release: make(chan struct{})}
	f := NewFlow(fetcher, quietLogger())

	st := f.Initialize(context.Background(), Params{ClinicID: "maltepe-dental-clinic"}, nil)

	assert.True(t, st.IsQuoteInitialized)
	assert.Nil(t, st.SelectedClinic, "clinic is not available until the fetch completes")

	close(fetcher.release)
	clinic, err := f.WaitForClinic(context.Background())
	require.NoError(t, err)
	require.NotNil(t, clinic)
	assert.Equal(t, "maltepe-dental-clinic", f.Snapshot().SelectedClinic.ID)
}

func TestInitializeFetchFailureCallsOnError(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("boom")}
	f := NewFlow(fetcher, quietLogger())

	var got atomic.Value
	st := f.Initialize(context.Background(), Params{ClinicID: "x"}, func(err error) { got.Store(err) })
	assert.True(t, st.IsQuoteInitialized)

	clinic, err := f.WaitForClinic(context.Background())
	require.NoError(t, err)
	assert.Nil(t, clinic)
	require.NotNil(t, got.Load())
	assert.ErrorContains(t, got.Load().(error), "boom")
	assert.EqualValues(t, 1, fetcher.calls.Load(), "no retry")
}

func TestInitializeFetchTimeout(t *testing.T) {
	fetcher := &countingFetcher{release: make(chan struct{})}
	f := NewFlow(fetcher, quietLogger(), WithFetchTimeout(20*time.Millisecond))

	errCh := make(chan error, 1)
	f.Initialize(context.Background(), Params{ClinicID: "slow"}, func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not time out")
	}
}

func TestInitializeFetchSurvivesCallerCancel(t *testing.T) {
	fetcher := &countingFetcher{release: make(chan struct{})}
	f := NewFlow(fetcher, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	f.Initialize(ctx, Params{ClinicID: "antalya-smile-centre"}, nil)
	cancel()
	close(fetcher.release)

	clinic, err := f.WaitForClinic(context.Background())
	require.NoError(t, err)
	require.NotNil(t, clinic)
}

func TestResetDiscardsLateClinicFetch(t *testing.T) {
	fetcher := &countingFetcher{release: make(chan struct{})}
	f := NewFlow(fetcher, quietLogger())

	f.Initialize(context.Background(), Params{ClinicID: "maltepe-dental-clinic", PackageID: "pkg-001"}, nil)
	f.Reset()
	close(fetcher.release)

	clinic, err := f.WaitForClinic(context.Background())
	require.NoError(t, err)
	assert.Nil(t, clinic)

	st := f.Snapshot()
	assert.Equal(t, StepStart, st.CurrentStep)
	assert.Equal(t, SourceNormal, st.Source)
	assert.False(t, st.IsQuoteInitialized)
	assert.Empty(t, st.SelectedClinicID)
}

func TestSourceInference(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Source
	}{
		{"explicit", "source=promo_token&offerId=o1", SourcePromoToken},
		{"offer id", "offerId=o1", SourceSpecialOffer},
		{"offer alias", "specialOffer=o1", SourceSpecialOffer},
		{"package id", "packageId=pkg-003", SourcePackage},
		{"promo token", "promoToken=SPRING", SourcePromoToken},
		{"nothing", "step=info", SourceNormal},
		{"bogus source falls back", "source=referral&packageId=pkg-001", SourcePackage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			f := NewFlow(nil, quietLogger())
			st := f.Initialize(context.Background(), ParseParams(q), nil)
			assert.Equal(t, tt.want, st.Source)
		})
	}
}

func TestInitializeSpecialOfferDefaults(t *testing.T) {
	q, _ := url.ParseQuery("specialOffer=spring-whitening&offerClinic=maltepe-dental-clinic&discountValue=15")
	f := NewFlow(nil, quietLogger())

	st := f.Initialize(context.Background(), ParseParams(q), nil)

	require.NotNil(t, st.SpecialOffer)
	assert.Equal(t, "spring-whitening", st.SpecialOffer.ID)
	assert.Equal(t, "Special Offer", st.SpecialOffer.Title)
	assert.Equal(t, "percentage", st.SpecialOffer.DiscountType)
	assert.Equal(t, "15", st.SpecialOffer.DiscountValue.String())
	assert.Equal(t, "maltepe-dental-clinic", st.SpecialOffer.ClinicID)
}

func TestInitializeStepAndSkipInfo(t *testing.T) {
	f := NewFlow(nil, quietLogger())
	st := f.Initialize(context.Background(), Params{SkipInfo: true}, nil)
	assert.Equal(t, StepDetails, st.CurrentStep)

	f = NewFlow(nil, quietLogger())
	st = f.Initialize(context.Background(), Params{SkipInfo: true, Step: "confirm"}, nil)
	assert.Equal(t, StepConfirm, st.CurrentStep, "explicit step wins")

	f = NewFlow(nil, quietLogger())
	st = f.Initialize(context.Background(), Params{Step: "nowhere"}, nil)
	assert.Equal(t, StepStart, st.CurrentStep)
}

func TestWithFallbackUsesPending(t *testing.T) {
	pending := Pending{
		SelectedClinicID: "istanbul-dental-care",
		Package:          &PackageData{ID: "pkg-003", Title: "Smile Makeover", ClinicID: "dentgroup-istanbul"},
	}

	p := ParseParams(url.Values{}).WithFallback(pending)
	assert.Equal(t, "pkg-003", p.PackageID)
	assert.Equal(t, "Smile Makeover", p.PackageTitle)
	assert.Equal(t, "dentgroup-istanbul", p.ClinicID, "package clinic beats the generic selection")
	assert.Equal(t, SourcePackage, p.resolveSource())

	q, _ := url.ParseQuery("clinicId=maltepe-dental-clinic&packageId=pkg-001")
	p = ParseParams(q).WithFallback(pending)
	assert.Equal(t, "pkg-001", p.PackageID, "URL beats the mirror")
	assert.Equal(t, "maltepe-dental-clinic", p.ClinicID)

	q, _ = url.ParseQuery("promoToken=SPRING")
	p = ParseParams(q).WithFallback(Pending{PromoClinicID: "antalya-smile-centre", SelectedClinicID: "other"})
	assert.Equal(t, "antalya-smile-centre", p.ClinicID)
}

func TestWithFallbackSkipsOtherCategories(t *testing.T) {
	pending := Pending{
		SpecialOffer: &SpecialOffer{ID: "spring", Title: "Spring", ClinicID: "antalya-smile-centre"},
		Package:      &PackageData{ID: "pkg-003", ClinicID: "dentgroup-istanbul"},
	}

	tests := []struct {
		name      string
		query     string
		want      Source
		wantOffer string
		wantPkg   string
	}{
		{"url package", "packageId=pkg-001", SourcePackage, "", "pkg-001"},
		{"url promo", "promoToken=SPRING", SourcePromoToken, "", ""},
		{"url offer", "offerId=autumn", SourceSpecialOffer, "autumn", ""},
		{"no url flow prefers offer", "", SourceSpecialOffer, "spring", ""},
		{"explicit package source", "source=package", SourcePackage, "", "pkg-003"},
		{"explicit normal source", "source=normal", SourceNormal, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			p := ParseParams(q).WithFallback(pending)
			assert.Equal(t, tt.want, p.resolveSource())
			assert.Equal(t, tt.wantOffer, p.OfferID)
			assert.Equal(t, tt.wantPkg, p.PackageID)
		})
	}
}

func TestInitializeKeepsSourceUntilReset(t *testing.T) {
	f := NewFlow(nil, quietLogger())
	ctx := context.Background()

	q, _ := url.ParseQuery("source=package&packageId=pkg-002&clinicId=dentgroup-istanbul")
	f.Initialize(ctx, ParseParams(q), nil)
	require.Len(t, f.SetTreatmentData(nil), 1)

	q, _ = url.ParseQuery("source=special_offer&offerId=spring&clinicId=maltepe-dental-clinic&step=details")
	st := f.Initialize(ctx, ParseParams(q), nil)

	assert.Equal(t, SourcePackage, st.Source)
	assert.Nil(t, st.SpecialOffer)
	require.NotNil(t, st.PackageData)
	assert.Equal(t, "pkg-002", st.PackageData.ID)
	assert.Equal(t, StepDetails, st.CurrentStep, "step still applies")
	assert.Equal(t, "maltepe-dental-clinic", st.SelectedClinicID, "clinic still applies")
	require.Len(t, st.TreatmentData, 1)
	assert.True(t, st.TreatmentData[0].IsPackage)

	f.Reset()
	st = f.Initialize(ctx, ParseParams(q), nil)
	assert.Equal(t, SourceSpecialOffer, st.Source)
	assert.Nil(t, st.PackageData)
	assert.Empty(t, st.TreatmentData)
}

func TestWaitForClinicWhileFetchesStart(t *testing.T) {
	fetcher := &countingFetcher{}
	f := NewFlow(fetcher, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.SelectClinic(ctx, "dentgroup-istanbul", nil)
		}()
		go func() {
			defer wg.Done()
			_, err := f.WaitForClinic(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := f.WaitForClinic(ctx)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "dentgroup-istanbul", c.ID)
	assert.EqualValues(t, 20, fetcher.calls.Load())
}

func TestSnapshotIsACopy(t *testing.T) {
	f := NewFlow(nil, quietLogger())
	f.SetPatientData(PatientData{Name: "Ada"})

	st := f.Snapshot()
	st.PatientData.Name = "changed"

	assert.Equal(t, "Ada", f.Snapshot().PatientData.Name)
}
