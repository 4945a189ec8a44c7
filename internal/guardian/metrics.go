package guardian

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Исходы анализа: DEMO, CLASSIFIED, UNAVAILABLE, PARSE_FALLBACK, FAIL_OPEN
	Outcomes *prometheus.CounterVec

	// Сколько раз локальные правила перебили вердикт модели
	Overrides prometheus.Counter

	// Ошибки по моделям (для фолбэка flash -> pro)
	ModelFailures *prometheus.CounterVec

	Duration *prometheus.HistogramVec

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - выбило)
	CircuitBreakerState prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Outcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mindtussle_guardian_outcomes_total",
			Help: "Guardian analyses by outcome.",
		}, []string{"outcome", "safe"}),

		Overrides: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "mindtussle_guardian_overrides_total",
			Help: "Model verdicts overridden by the local allow-list and keyword rules.",
		}),

		ModelFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mindtussle_guardian_model_failures_total",
			Help: "Failed model calls by model name.",
		}, []string{"model"}),

		Duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mindtussle_guardian_duration_seconds",
			Help:    "Latency of guardian analyses.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),

		CircuitBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mindtussle_guardian_circuit_breaker_state",
			Help: "Current state of the model circuit breaker (0=closed, 1=open).",
		}),
	}
}
