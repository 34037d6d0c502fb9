// internal/metrics/metrics.go
//
// Prometheus collectors for the game service, registered on a dedicated
// registry so tests and the /metrics handler never see global state.

package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pokeguess/guesswho/internal/game"
)

const namespace = "guesswho"

// Metrics groups every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	Actions   *prometheus.CounterVec
	HintFetch prometheus.Histogram
}

// New registers collectors on a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Game actions handled, by action and result kind.",
		}, []string{"action", "result"}),
		HintFetch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hint_fetch_seconds",
			Help:      "Latency of species hint lookups.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.Actions,
		m.HintFetch,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry (for tests and extra collectors).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAction counts one handled action. A nil Metrics is a no-op.
func (m *Metrics) ObserveAction(action game.Action, err error) {
	if m == nil {
		return
	}
	name := string(action)
	if name == "" {
		name = "status"
	}
	m.Actions.WithLabelValues(name, game.Kind(err)).Inc()
}

// InstrumentHints wraps p so every lookup is timed.
func (m *Metrics) InstrumentHints(p game.HintProvider) game.HintProvider {
	if m == nil {
		return p
	}
	return &timedHints{next: p, hist: m.HintFetch}
}

type timedHints struct {
	next game.HintProvider
	hist prometheus.Histogram
}

func (t *timedHints) HintFor(ctx context.Context, species string) (string, error) {
	start := time.Now()
	defer func() { t.hist.Observe(time.Since(start).Seconds()) }()
	return t.next.HintFor(ctx, species)
}
