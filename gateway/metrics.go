package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts refresh activity. A nil *Metrics records nothing.
type Metrics struct {
	refreshCalls    prometheus.Counter
	refreshFailures prometheus.Counter
	replays         prometheus.Counter
	waiters         prometheus.Gauge
}

// NewMetrics registers the gateway collectors on reg. It panics if they are
// already registered there.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		refreshCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgateway_refresh_calls_total",
			Help: "Refresh calls issued to the API.",
		}),
		refreshFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgateway_refresh_failures_total",
			Help: "Refresh calls that ended the session.",
		}),
		replays: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgateway_replays_total",
			Help: "Requests replayed after a successful refresh.",
		}),
		waiters: factory.NewGauge(prometheus.GaugeOpts{
			Name: "authgateway_refresh_waiters",
			Help: "Requests waiting on the in-flight refresh.",
		}),
	}
}

func (m *Metrics) refreshStarted() {
	if m != nil {
		m.refreshCalls.Inc()
	}
}

func (m *Metrics) refreshFailed() {
	if m != nil {
		m.refreshFailures.Inc()
	}
}

func (m *Metrics) replayed() {
	if m != nil {
		m.replays.Inc()
	}
}

func (m *Metrics) setWaiters(n int) {
	if m != nil {
		m.waiters.Set(float64(n))
	}
}

// Snapshot gathers g and returns the value of each counter and gauge family
// by metric name, summed across label sets.
func Snapshot(g prometheus.Gatherer) (map[string]any, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(families))
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
		values[mf.GetName()] = total
	}
	return values, nil
}
