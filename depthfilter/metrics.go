package depthfilter

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds live instrumentation for a DepthFilter. A nil *Metrics is
// valid everywhere a DepthFilter accepts one — callers that don't pass a
// registry simply get no instrumentation, with no extra branching needed
// beyond the DepthFilter's own nil checks.
type Metrics struct {
	seedsLive           prometheus.Gauge
	seedsConvergedTotal prometheus.Counter
	seedsErasedTotal    *prometheus.CounterVec
	frameQueueDepth     prometheus.Gauge
	matchFailuresTotal  prometheus.Counter
	matchSuccessesTotal prometheus.Counter
}

// NewMetrics constructs and registers a Metrics against reg. Pass
// prometheus.DefaultRegisterer for process-global metrics, or a fresh
// *prometheus.Registry in tests that want isolation.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		seedsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "depthfilter_seeds_live",
			Help: "Number of live depth-hypothesis seeds.",
		}),
		seedsConvergedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "depthfilter_seeds_converged_total",
			Help: "Total seeds that converged and were emitted to the sink.",
		}),
		seedsErasedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "depthfilter_seeds_erased_total",
			Help: "Total seeds erased, by reason.",
		}, []string{"reason"}),
		frameQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "depthfilter_frame_queue_depth",
			Help: "Current depth of the non-keyframe intake queue.",
		}),
		matchFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "depthfilter_match_failures_total",
			Help: "Total epipolar match failures.",
		}),
		matchSuccessesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "depthfilter_match_successes_total",
			Help: "Total epipolar match successes.",
		}),
	}
	reg.MustRegister(
		m.seedsLive,
		m.seedsConvergedTotal,
		m.seedsErasedTotal,
		m.frameQueueDepth,
		m.matchFailuresTotal,
		m.matchSuccessesTotal,
	)
	return m
}
