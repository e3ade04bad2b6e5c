package out

import (
	"github.com/prometheus/client_golang/prometheus"

	"outcomes/internal/modules/outcome/domain"
	outcomeout "outcomes/internal/modules/outcome/port/out"
)

type PrometheusMetrics struct {
	deliveries *prometheus.CounterVec
	replays    *prometheus.CounterVec
}

// NewPrometheusMetrics registers the delivery counters on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (outcomeout.Metrics, error) {
	m := &PrometheusMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outcomes_deliveries_total",
			Help: "Outcome send attempts by route and status.",
		}, []string{"route", "status"}),
		replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outcomes_replays_total",
			Help: "Saved outcome replays by status.",
		}, []string{"status"}),
	}
	for _, c := range []prometheus.Collector{m.deliveries, m.replays} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) Delivered(route domain.SessionType, status domain.Status) {
	m.deliveries.WithLabelValues(string(route), string(status)).Inc()
}

func (m *PrometheusMetrics) Replayed(status domain.Status) {
	m.replays.WithLabelValues(string(status)).Inc()
}
