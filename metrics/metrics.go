// Package metrics exposes the Prometheus collectors of the arena server.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name
const Namespace = "tictactoe"

// Metrics holds the server collectors
type Metrics struct {
	eventsTotal       *prometheus.CounterVec
	eventDuration     prometheus.Histogram
	connections       prometheus.Gauge
	rooms             prometheus.Gauge
	gamesFinished     *prometheus.CounterVec
	scoreReports      *prometheus.CounterVec
	scoreQueueDropped prometheus.Counter
	handlerPanics     prometheus.Counter
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_total",
			Help:      "Inbound protocol events processed, by event name",
		}, []string{"event"}),

		eventDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "event_duration_seconds",
			Help:      "Time spent handling one inbound event on the dispatcher loop",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),

		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "connections",
			Help:      "Live socket connections",
		}),

		rooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "rooms",
			Help:      "Live rooms",
		}),

		gamesFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "games_finished_total",
			Help:      "Finished games by how they ended",
		}, []string{"result"}),

		scoreReports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "score_reports_total",
			Help:      "Score writes by status",
		}, []string{"status"}),

		scoreQueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "score_queue_dropped_total",
			Help:      "Score reports dropped because the queue was full",
		}),

		handlerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "handler_panics_total",
			Help:      "Recovered panics in event handlers",
		}),
	}
}

// ObserveEvent records one handled inbound event
func (m *Metrics) ObserveEvent(event string, d time.Duration) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(event).Inc()
	m.eventDuration.Observe(d.Seconds())
}

// SetConnections sets the live connection gauge
func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

// SetRooms sets the live room gauge
func (m *Metrics) SetRooms(n int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(n))
}

// GameFinished counts a game ending in result: win, draw or forfeit
func (m *Metrics) GameFinished(result string) {
	if m == nil {
		return
	}
	m.gamesFinished.WithLabelValues(result).Inc()
}

// ScoreReport counts a score write with status ok, failed or skipped
func (m *Metrics) ScoreReport(status string) {
	if m == nil {
		return
	}
	m.scoreReports.WithLabelValues(status).Inc()
}

// ScoreDropped counts a report rejected by a full queue
func (m *Metrics) ScoreDropped() {
	if m == nil {
		return
	}
	m.scoreQueueDropped.Inc()
}

// HandlerPanic counts a recovered handler panic
func (m *Metrics) HandlerPanic() {
	if m == nil {
		return
	}
	m.handlerPanics.Inc()
}
