package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метки ресурса
const (
	resourceMission = "mission"
	resourceDrift   = "drift"
)

type Metrics struct {
	// Traffic: пуши и чтения по ресурсам
	Pushes *prometheus.CounterVec
	Reads  *prometheus.CounterVec

	// Сколько чтений отдали принудительно неактивное состояние (dead-man's switch)
	StaleReads *prometheus.CounterVec

	// Errors: сбои хранилища ячеек
	StoreErrors *prometheus.CounterVec

	// Возраст последнего пуша на момент чтения
	PushAge *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Pushes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "relay_pushes_total",
			Help: "Total number of state pushes.",
		}, []string{"resource"}),

		Reads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "relay_reads_total",
			Help: "Total number of state reads.",
		}, []string{"resource"}),

		StaleReads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "relay_stale_reads_total",
			Help: "Reads where the active flag was forced off by the staleness window.",
		}, []string{"resource"}),

		StoreErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "relay_store_errors_total",
			Help: "State store failures by operation.",
		}, []string{"resource", "op"}),

		PushAge: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "relay_push_age_seconds",
			Help: "Age of the last push observed at read time.",
		}, []string{"resource"}),
	}
}
