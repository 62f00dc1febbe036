package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the recorders.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
	OutcomeRelayed = "relayed"
)

// Recorder exposes service metrics on its own Prometheus registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	commands        *prometheus.HistogramVec
	deliveries      prometheus.Counter
	broadcasts      *prometheus.CounterVec
	activePlaybacks prometheus.Gauge
	viewers         prometheus.Gauge
	rooms           prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "uniplay",
			Name:      "command_duration_seconds",
			Help:      "Duration of match and schedule commands.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command", "outcome"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "uniplay",
			Name:      "deliveries_recorded_total",
			Help:      "Deliveries recorded across all live matches.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uniplay",
			Name:      "broadcasts_total",
			Help:      "Live events emitted to viewer rooms by outcome.",
		}, []string{"event", "outcome"}),
		activePlaybacks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uniplay",
			Name:      "autoplay_active_tasks",
			Help:      "Auto-play tasks currently running.",
		}),
		viewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uniplay",
			Name:      "websocket_viewers",
			Help:      "Connected websocket viewers.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uniplay",
			Name:      "websocket_rooms",
			Help:      "Match rooms with at least one viewer.",
		}),
	}
	r.registry.MustRegister(
		r.commands, r.deliveries, r.broadcasts, r.activePlaybacks, r.viewers, r.rooms,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ObserveCommand(command string, started time.Time, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	r.commands.WithLabelValues(command, outcome).Observe(time.Since(started).Seconds())
}

func (r *Recorder) IncDeliveries() {
	if r == nil {
		return
	}
	r.deliveries.Inc()
}

func (r *Recorder) RecordBroadcast(event, outcome string) {
	if r == nil {
		return
	}
	r.broadcasts.WithLabelValues(event, outcome).Inc()
}

func (r *Recorder) SetActivePlaybacks(n int) {
	if r == nil {
		return
	}
	r.activePlaybacks.Set(float64(n))
}

func (r *Recorder) AddViewers(delta int) {
	if r == nil {
		return
	}
	r.viewers.Add(float64(delta))
}

func (r *Recorder) SetRooms(n int) {
	if r == nil {
		return
	}
	r.rooms.Set(float64(n))
}
