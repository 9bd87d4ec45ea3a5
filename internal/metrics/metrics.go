package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ticket outcomes used as the "outcome" label.
const (
	OutcomeWritten      = "written"
	OutcomeRenderFailed = "render_failed"
	OutcomeQueryFailed  = "query_failed"
	OutcomeWriteFailed  = "write_failed"
)

type Metrics struct {
	Tickets        *prometheus.CounterVec
	TicketDuration prometheus.Histogram
	ModelRequests  *prometheus.CounterVec
	Processing     prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Tickets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ticketcal",
			Name:      "tickets_total",
			Help:      "Tickets handled, by outcome",
		}, []string{"outcome"}),
		TicketDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ticketcal",
			Name:      "ticket_duration_seconds",
			Help:      "Time from picking up a ticket to writing its calendar file",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		ModelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ticketcal",
			Name:      "model_requests_total",
			Help:      "Vision model requests, by result",
		}, []string{"result"}),
		Processing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ticketcal",
			Name:      "processing",
			Help:      "1 while a ticket is being processed",
		}),
	}
	reg.MustRegister(m.Tickets, m.TicketDuration, m.ModelRequests, m.Processing)
	return m
}
