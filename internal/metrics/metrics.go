// Package metrics defines the Prometheus collectors for the site handlers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "steelcraft"

// Outcome labels.
const (
	OutcomeHandled      = "handled"
	OutcomeIgnored      = "ignored"
	OutcomeRejected     = "rejected"
	OutcomeInvalid      = "invalid"
	OutcomeAccepted     = "accepted"
	OutcomeRateLimited  = "rate_limited"
	OutcomeFailed       = "failed"
	OutcomeUnauthorized = "unauthorized"
)

// Metrics holds the site collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	WebhookUpdates     *prometheus.CounterVec
	ContactSubmissions *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// New registers the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWith(reg, reg)
}

// NewWith registers the collectors on reg and serves them from g.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		WebhookUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "webhook_updates_total",
			Help:      "Telegram webhook updates by outcome",
		}, []string{"outcome"}),
		ContactSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contact",
			Name:      "submissions_total",
			Help:      "Contact form submissions by outcome",
		}, []string{"outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request handling time by route and status code",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) Webhook(outcome string) {
	if m == nil {
		return
	}
	m.WebhookUpdates.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Contact(outcome string) {
	if m == nil {
		return
	}
	m.ContactSubmissions.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one handled request. route must be a template such
// as "/article/:slug", never a raw path.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
