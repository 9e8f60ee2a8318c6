package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// allocation outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeSolverError  = "solver_error"
	OutcomeError        = "error"
)

var (
	allocationsTotal *prometheus.CounterVec
	solveDuration    *prometheus.HistogramVec
	bnbNodes         *prometheus.GaugeVec
	totalDeviation   *prometheus.GaugeVec
)

// InitMetrics registers all custom metrics with the provided registry
func InitMetrics(registry prometheus.Registerer) {
	allocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_optimizer_allocations_total",
			Help: "Total number of allocation requests by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)
	solveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stock_optimizer_solve_duration_seconds",
			Help:    "Time spent solving an allocation problem",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"strategy"},
	)
	bnbNodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stock_optimizer_bnb_nodes",
			Help: "Branch and bound nodes solved by the last allocation",
		},
		[]string{"strategy"},
	)
	totalDeviation = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stock_optimizer_total_deviation",
			Help: "Summed absolute deviation from the target shares of the last allocation",
		},
		[]string{"strategy"},
	)

	registry.MustRegister(allocationsTotal)
	registry.MustRegister(solveDuration)
	registry.MustRegister(bnbNodes)
	registry.MustRegister(totalDeviation)
}

// InitMetricsAndEmitter registers metrics with Prometheus and creates a metrics emitter
func InitMetricsAndEmitter(registry prometheus.Registerer) *MetricsEmitter {
	InitMetrics(registry)
	return NewMetricsEmitter()
}

// MetricsEmitter handles emission of custom metrics; it does nothing until
// InitMetrics has been called
type MetricsEmitter struct{}

func NewMetricsEmitter() *MetricsEmitter {
	return &MetricsEmitter{}
}

// EmitAllocationMetrics records a successful allocation
func (m *MetricsEmitter) EmitAllocationMetrics(ctx context.Context, strategy string, duration time.Duration,
	nodes int, deviation float64) {
	if allocationsTotal == nil {
		return
	}
	allocationsTotal.With(prometheus.Labels{"strategy": strategy, "outcome": OutcomeSuccess}).Inc()
	solveDuration.With(prometheus.Labels{"strategy": strategy}).Observe(duration.Seconds())
	bnbNodes.With(prometheus.Labels{"strategy": strategy}).Set(float64(nodes))
	totalDeviation.With(prometheus.Labels{"strategy": strategy}).Set(deviation)
}

// EmitErrorMetrics records a failed allocation
func (m *MetricsEmitter) EmitErrorMetrics(ctx context.Context, strategy, outcome string) {
	if allocationsTotal == nil {
		return
	}
	allocationsTotal.With(prometheus.Labels{"strategy": strategy, "outcome": outcome}).Inc()
}
