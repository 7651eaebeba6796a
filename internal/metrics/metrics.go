// Package metrics exposes mission progress as Prometheus collectors. The
// collectors live on their own registry so several missions (or tests) can
// run in one process without colliding on the default registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kingrea/cartographer/internal/mission"
)

const (
	namespace = "cartographer"
	subsystem = "mission"
)

// Collector records mission events into Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	poseAttempts  *prometheus.HistogramVec
	legs          *prometheus.CounterVec
	unconfirmed   *prometheus.CounterVec
	inspections   *prometheus.CounterVec
	phases        prometheus.Counter
	markerDecoded prometheus.Gauge
	remaining     prometheus.Gauge
	state         *prometheus.GaugeVec
	errors        prometheus.Counter
}

// New registers the mission collectors on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		poseAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pose_attempts",
				Help:      "Pose commands issued per leg before success or giving up",
				Buckets:   []float64{1, 2, 3, 5, 10},
			},
			[]string{"kind"},
		),
		legs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "legs_total",
				Help:      "Legs traveled by kind",
			},
			[]string{"kind"},
		),
		unconfirmed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "unconfirmed_legs_total",
				Help:      "Legs whose arrival was never confirmed",
			},
			[]string{"kind"},
		),
		inspections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "inspections_total",
				Help:      "Target inspections by target id",
			},
			[]string{"target"},
		),
		phases: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "phases_total",
				Help:      "Inspection phases started",
			},
		),
		markerDecoded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "marker_decoded",
				Help:      "1 once the marker content has been decoded",
			},
		),
		remaining: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "remaining_milliseconds",
				Help:      "Mission time remaining at the last observation",
			},
		),
		state: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "state",
				Help:      "1 for the current mission state, 0 otherwise",
			},
			[]string{"state"},
		),
		errors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "errors_total",
				Help:      "Missions that finished with an error",
			},
		),
	}
}

// Registry returns the registry holding the mission collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Observe implements mission.Observer.
func (c *Collector) Observe(evt mission.Event) {
	c.remaining.Set(float64(evt.Remaining))
	switch evt.Kind {
	case mission.EventStateChanged:
		for _, s := range []mission.State{
			mission.StateNotStarted,
			mission.StatePhasing,
			mission.StateMarkerDecision,
			mission.StateFinalizing,
			mission.StateComplete,
		} {
			v := 0.0
			if s == evt.State {
				v = 1
			}
			c.state.WithLabelValues(string(s)).Set(v)
		}
	case mission.EventPhaseStarted:
		c.phases.Inc()
	case mission.EventLeg:
		if evt.Leg == nil {
			return
		}
		kind := string(evt.Leg.Kind)
		c.legs.WithLabelValues(kind).Inc()
		c.poseAttempts.WithLabelValues(kind).Observe(float64(evt.Leg.Arrival.Attempts))
		if !evt.Leg.Arrival.Confirmed {
			c.unconfirmed.WithLabelValues(kind).Inc()
		}
	case mission.EventInspected:
		c.inspections.WithLabelValues(strconv.Itoa(evt.Target)).Inc()
	case mission.EventMarkerRead:
		if evt.Marker != "" {
			c.markerDecoded.Set(1)
		}
	case mission.EventError:
		c.errors.Inc()
	}
}
