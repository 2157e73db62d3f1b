// Package metrics exposes Prometheus counters for seating, payments, sync
// and HTTP traffic on a private registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nozze"

// Metrics is safe to use as a nil pointer; every Observe method is then a no-op.
type Metrics struct {
	Registry *prometheus.Registry

	assignRuns       *prometheus.CounterVec
	seatsAssigned    prometheus.Counter
	guestsUnassigned prometheus.Counter
	payments         *prometheus.CounterVec
	paymentCents     prometheus.Counter
	httpRequests     *prometheus.CounterVec
	syncMessages     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		assignRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seating_runs_total",
			Help:      "Automatic seat assignment passes by strategy.",
		}, []string{"strategy"}),
		seatsAssigned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seats_assigned_total",
			Help:      "Guests placed at a table by automatic assignment.",
		}),
		guestsUnassigned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guests_unassigned_total",
			Help:      "Guests left without a table after automatic assignment.",
		}),
		payments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Payments recorded against budget items by resulting status.",
		}, []string{"status"}),
		paymentCents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_cents_total",
			Help:      "Sum of recorded payments in cents.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		syncMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_messages_total",
			Help:      "Sync messages handled by the worker by kind and result.",
		}, []string{"kind", "result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveAssignment(strategy string, assigned, unassigned int) {
	if m == nil {
		return
	}
	m.assignRuns.WithLabelValues(strategy).Inc()
	m.seatsAssigned.Add(float64(assigned))
	m.guestsUnassigned.Add(float64(unassigned))
}

func (m *Metrics) ObservePayment(status string, cents int64) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(status).Inc()
	m.paymentCents.Add(float64(cents))
}

func (m *Metrics) ObserveHTTP(method string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func (m *Metrics) ObserveSync(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.syncMessages.WithLabelValues(kind, result).Inc()
}
