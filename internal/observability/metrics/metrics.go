package metrics

import "github.com/prometheus/client_golang/prometheus"

// QuoteMetrics exposes counters/histograms for quote flows.
type QuoteMetrics struct {
	flowsInitialized *prometheus.CounterVec
	quotesSubmitted  *prometheus.CounterVec
	quoteValue       *prometheus.HistogramVec
	sideEffects      *prometheus.CounterVec
	clinicFetches    *prometheus.CounterVec
}

func NewQuoteMetrics(reg prometheus.Registerer) *QuoteMetrics {
	m := &QuoteMetrics{
		flowsInitialized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalquote",
			Subsystem: "quoteflow",
			Name:      "initialized_total",
			Help:      "Quote flows initialized, by source",
		}, []string{"source"}),
		quotesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalquote",
			Subsystem: "quotes",
			Name:      "submitted_total",
			Help:      "Quotes persisted, by source and clinic tier",
		}, []string{"source", "tier"}),
		quoteValue: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dentalquote",
			Subsystem: "quotes",
			Name:      "total_gbp",
			Help:      "Clinic total of submitted quotes in GBP",
			Buckets:   []float64{250, 500, 1000, 2000, 3500, 5000, 7500, 10000, 15000, 25000},
		}, []string{"tier"}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalquote",
			Subsystem: "quotes",
			Name:      "side_effects_total",
			Help:      "Post-submission side effects (archive, event, email), by outcome",
		}, []string{"effect", "status"}),
		clinicFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalquote",
			Subsystem: "quoteflow",
			Name:      "clinic_fetch_total",
			Help:      "Asynchronous clinic fetches, by outcome",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.flowsInitialized, m.quotesSubmitted, m.quoteValue, m.sideEffects, m.clinicFetches)
	return m
}

func (m *QuoteMetrics) ObserveFlowInitialized(source string) {
	if m == nil {
		return
	}
	m.flowsInitialized.WithLabelValues(source).Inc()
}

func (m *QuoteMetrics) ObserveSubmitted(source, tier string, totalGBP float64) {
	if m == nil {
		return
	}
	m.quotesSubmitted.WithLabelValues(source, tier).Inc()
	m.quoteValue.WithLabelValues(tier).Observe(totalGBP)
}

// ObserveSideEffect records the outcome of a best-effort post-submission step.
func (m *QuoteMetrics) ObserveSideEffect(effect string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.sideEffects.WithLabelValues(effect, status).Inc()
}

func (m *QuoteMetrics) ObserveClinicFetch(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.clinicFetches.WithLabelValues(status).Inc()
}
