package shield

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Polls         *prometheus.CounterVec // result: ok | error
	ConnectedTabs prometheus.Gauge
	Broadcasts    prometheus.Counter
	MissionActive prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Polls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mindtussle_shield_polls_total",
			Help: "Mission status polls by result.",
		}, []string{"result"}),
		ConnectedTabs: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mindtussle_shield_connected_tabs",
			Help: "Tabs currently connected to the shield.",
		}),
		Broadcasts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "mindtussle_shield_tab_messages_total",
			Help: "MISSION_UPDATE messages delivered to tabs.",
		}),
		MissionActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mindtussle_shield_mission_active",
			Help: "1 while the shield believes a mission is active.",
		}),
	}
}
