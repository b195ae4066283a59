package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for the lead pipeline.
type LeadMetrics struct {
	submissionsTotal *prometheus.CounterVec
	storeLatency     prometheus.Histogram
	notifyTotal      *prometheus.CounterVec
	sendAttempts     *prometheus.CounterVec
	sendLatency      *prometheus.HistogramVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jetride",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Form submissions by kind and outcome",
		}, []string{"kind", "outcome"}),
		storeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "jetride",
			Subsystem: "leads",
			Name:      "store_append_seconds",
			Help:      "Latency of lead store appends",
			Buckets:   prometheus.DefBuckets,
		}),
		notifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jetride",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notification emails by provider and status",
		}, []string{"provider", "status"}),
		sendAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jetride",
			Subsystem: "notify",
			Name:      "send_attempts_total",
			Help:      "Individual provider send attempts, including retries",
		}, []string{"provider", "result"}),
		sendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jetride",
			Subsystem: "notify",
			Name:      "send_seconds",
			Help:      "Latency of a single provider send attempt",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.storeLatency, m.notifyTotal, m.sendAttempts, m.sendLatency)
	return m
}

// ObserveSubmission counts a finished Submit call. outcome is one of
// success, rejected, store_error, config_error.
func (m *LeadMetrics) ObserveSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *LeadMetrics) ObserveStoreLatency(seconds float64) {
	if m == nil {
		return
	}
	m.storeLatency.Observe(seconds)
}

// ObserveNotification counts a delivered (sent) or abandoned (failed) email.
func (m *LeadMetrics) ObserveNotification(provider string, sent bool) {
	if m == nil {
		return
	}
	status := "failed"
	if sent {
		status = "sent"
	}
	m.notifyTotal.WithLabelValues(provider, status).Inc()
}

func (m *LeadMetrics) ObserveSendAttempt(provider, result string, seconds float64) {
	if m == nil {
		return
	}
	m.sendAttempts.WithLabelValues(provider, result).Inc()
	m.sendLatency.WithLabelValues(provider).Observe(seconds)
}
