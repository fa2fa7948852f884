package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmcdole/lensgrid/internal/domain"
)

// PrometheusRecorder implements Recorder backed by Prometheus.
//
// Collectors are created and registered lazily on first use so that building
// a recorder never fails.
type PrometheusRecorder struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	fetchesStarted  *prometheus.CounterVec
	fetchesFinished *prometheus.CounterVec
	cachingHints    *prometheus.CounterVec
	cachingAssets   *prometheus.CounterVec
	preheats        prometheus.Counter
	columnChanges   prometheus.Counter
	columns         prometheus.Gauge
	tracked         prometheus.Gauge
}

// Compile-time assertion that PrometheusRecorder implements Recorder.
var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheus creates a Prometheus-backed recorder.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: metrics namespace (defaults to "lensgrid" if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "lensgrid"
	}
	return &PrometheusRecorder{reg: reg, namespace: namespace}
}

func (p *PrometheusRecorder) ensureRegistered() {
	p.once.Do(func() {
		p.fetchesStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "cell",
			Name:      "fetches_started_total",
			Help:      "Image fetches issued by cell loads, by quality.",
		}, []string{"quality"})

		p.fetchesFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "cell",
			Name:      "fetches_finished_total",
			Help:      "Image fetches that completed, by quality and outcome.",
		}, []string{"quality", "outcome"})

		p.cachingHints = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "preheat",
			Name:      "caching_hints_total",
			Help:      "Caching hints sent to the asset store, by operation.",
		}, []string{"op"})

		p.cachingAssets = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "preheat",
			Name:      "caching_assets_total",
			Help:      "Assets included in caching hints, by operation.",
		}, []string{"op"})

		p.preheats = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "preheat",
			Name:      "recomputes_total",
			Help:      "Preheat window recomputes that passed the movement guard.",
		})

		p.columnChanges = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "layout",
			Name:      "column_changes_total",
			Help:      "Times the column count changed.",
		})

		p.columns = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "layout",
			Name:      "columns",
			Help:      "Current column count.",
		})

		p.tracked = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "requests",
			Help:      "Cell requests currently in flight.",
		})

		p.reg.MustRegister(
			p.fetchesStarted,
			p.fetchesFinished,
			p.cachingHints,
			p.cachingAssets,
			p.preheats,
			p.columnChanges,
			p.columns,
			p.tracked,
		)
	})
}

// FetchStarted counts an issued fetch.
func (p *PrometheusRecorder) FetchStarted(quality domain.Quality) {
	p.ensureRegistered()
	p.fetchesStarted.WithLabelValues(quality.String()).Inc()
}

// FetchFinished counts a completed fetch by outcome.
func (p *PrometheusRecorder) FetchFinished(quality domain.Quality, outcome Outcome) {
	p.ensureRegistered()
	p.fetchesFinished.WithLabelValues(quality.String(), string(outcome)).Inc()
}

// CachingHint counts a caching hint and the assets it covered.
func (p *PrometheusRecorder) CachingHint(op string, assets int) {
	p.ensureRegistered()
	p.cachingHints.WithLabelValues(op).Inc()
	p.cachingAssets.WithLabelValues(op).Add(float64(assets))
}

// PreheatRecomputed counts a preheat window replacement.
func (p *PrometheusRecorder) PreheatRecomputed() {
	p.ensureRegistered()
	p.preheats.Inc()
}

// ColumnsChanged records a new column count.
func (p *PrometheusRecorder) ColumnsChanged(columns int) {
	p.ensureRegistered()
	p.columnChanges.Inc()
	p.columns.Set(float64(columns))
}

// SetTrackedRequests records the number of in-flight cell requests.
func (p *PrometheusRecorder) SetTrackedRequests(n int) {
	p.ensureRegistered()
	p.tracked.Set(float64(n))
}
