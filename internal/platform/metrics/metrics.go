package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics: アプリ全体の Prometheus メトリクス。nil レシーバでも呼べる
type Metrics struct {
	GeocodeAttempts *prometheus.CounterVec
	GeocodeLatency  *prometheus.HistogramVec
	QueryDuration   *prometheus.HistogramVec
	RecordsCreated  *prometheus.CounterVec
	RecordsDeleted  prometheus.Counter
}

// New: 既定レジストリに登録する。テストでは NewWithRegistry を使う
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GeocodeAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "workclock_geocode_attempts_total",
			Help: "Reverse geocoding provider attempts by provider and outcome",
		}, []string{"provider", "outcome"}),

		GeocodeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workclock_geocode_duration_seconds",
			Help:    "Duration of reverse geocoding provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),

		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workclock_admin_query_duration_seconds",
			Help:    "Duration of ad-hoc admin queries by type and outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"type", "outcome"}),

		RecordsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "workclock_records_created_total",
			Help: "Clock records created by action",
		}, []string{"action"}),

		RecordsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "workclock_records_deleted_total",
			Help: "Clock records deleted (single and bulk)",
		}),
	}
}

func (m *Metrics) ObserveGeocode(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GeocodeAttempts.WithLabelValues(provider, outcome).Inc()
	m.GeocodeLatency.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) ObserveQuery(queryType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(queryType, outcome).Observe(d.Seconds())
}

func (m *Metrics) IncRecordsCreated(action string) {
	if m != nil {
		m.RecordsCreated.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) AddRecordsDeleted(n int) {
	if m != nil && n > 0 {
		m.RecordsDeleted.Add(float64(n))
	}
}
