package overlay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the overlay controller.
// A nil *Metrics is valid and records nothing.
//
// Metrics:
//   - devbar_plugin_inits_total{result} - plugin Init hook outcomes ("ready", "error")
//   - devbar_plugin_toggles_total{direction} - activations and deactivations
//   - devbar_plugin_vetoes_total - deactivations blocked by a plugin
//   - devbar_active_plugins - number of active plugins (0 or 1)
type Metrics struct {
	Inits   *prometheus.CounterVec
	Toggles *prometheus.CounterVec
	Vetoes  prometheus.Counter
	Active  prometheus.Gauge
}

// NewMetrics creates the overlay metrics and registers them on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Inits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devbar_plugin_inits_total",
				Help: "Total number of plugin initializations by result",
			},
			[]string{"result"},
		),
		Toggles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devbar_plugin_toggles_total",
				Help: "Total number of plugin activations and deactivations",
			},
			[]string{"direction"},
		),
		Vetoes: factory.NewCounter(prometheus.CounterOpts{
			Name: "devbar_plugin_vetoes_total",
			Help: "Total number of deactivations vetoed by a plugin",
		}),
		Active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "devbar_active_plugins",
			Help: "Number of plugins whose panel is currently shown",
		}),
	}
}

func (m *Metrics) initDone(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Inits.WithLabelValues("error").Inc()
		return
	}
	m.Inits.WithLabelValues("ready").Inc()
}

func (m *Metrics) toggled(active bool) {
	if m == nil {
		return
	}
	if active {
		m.Toggles.WithLabelValues("on").Inc()
		m.Active.Set(1)
		return
	}
	m.Toggles.WithLabelValues("off").Inc()
	m.Active.Set(0)
}

func (m *Metrics) vetoed() {
	if m == nil {
		return
	}
	m.Vetoes.Inc()
}
