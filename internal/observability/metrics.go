package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveWidgets  prometheus.Gauge
	WidgetEvents   *prometheus.CounterVec
	Turns          *prometheus.CounterVec
	BestMatchScore prometheus.Histogram
	TurnDuration   prometheus.Histogram
	StoreErrors    *prometheus.CounterVec
	WSEvents       *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveWidgets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_widgets",
			Help:      "Number of widget sessions currently held in memory.",
		}),
		WidgetEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widget_events_total",
			Help:      "Widget session events by type.",
		}, []string{"event"}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed assistant turns by outcome.",
		}, []string{"outcome"}),
		BestMatchScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "best_match_score",
			Help:      "Best candidate score per submitted query.",
			Buckets:   []float64{0, 3, 5, 6, 10, 13, 16, 20, 30, 50},
		}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_ms",
			Help:      "Wall time of one accepted turn in milliseconds.",
			Buckets:   []float64{100, 250, 500, 750, 1000, 1500, 2500, 5000},
		}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Best-effort persistence failures by operation.",
		}, []string{"op"}),
		WSEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_events_total",
			Help:      "Widget websocket events by type and delivery status.",
		}, []string{"type", "status"}),
	}
}

func (m *Metrics) ObserveTurnDuration(d time.Duration) {
	m.TurnDuration.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
