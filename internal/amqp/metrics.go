package amqp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dompet_events_published_total",
		Help: "Ledger events published, by kind and outcome.",
	}, []string{"kind", "outcome"})

	eventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dompet_events_consumed_total",
		Help: "Ledger events consumed, by outcome.",
	}, []string{"outcome"})

	circuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dompet_amqp_circuit_state",
		Help: "Publisher circuit breaker state: 0 closed, 1 open, 2 half-open.",
	})
)
