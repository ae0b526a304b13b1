package keeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the keeper's Prometheus instruments.
type Metrics struct {
	Checks       prometheus.Counter
	Upkeeps      prometheus.Counter
	Fulfillments prometheus.Counter
	Errors       *prometheus.CounterVec
	LastUpkeep   prometheus.Gauge
}

// NewMetrics registers the keeper metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Checks: f.NewCounter(prometheus.CounterOpts{
			Name: "lottery_keeper_checks_total",
			Help: "Total number of checkUpkeep calls",
		}),
		Upkeeps: f.NewCounter(prometheus.CounterOpts{
			Name: "lottery_keeper_upkeeps_total",
			Help: "Total number of performUpkeep transactions mined",
		}),
		Fulfillments: f.NewCounter(prometheus.CounterOpts{
			Name: "lottery_keeper_fulfillments_total",
			Help: "Total number of randomness requests fulfilled through the mock coordinator",
		}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lottery_keeper_errors_total",
			Help: "Total number of keeper errors by stage",
		}, []string{"stage"}),
		LastUpkeep: f.NewGauge(prometheus.GaugeOpts{
			Name: "lottery_keeper_last_upkeep_timestamp_seconds",
			Help: "Unix time of the last performUpkeep",
		}),
	}
}
