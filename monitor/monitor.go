// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	PendingWrites    prometheus.Gauge
	RoomsCreated     *prometheus.CounterVec
	RoomsClosed      *prometheus.CounterVec
	RoomLifetime     prometheus.Histogram
	GamesStarted     *prometheus.CounterVec
	QuestionsAsked   prometheus.Counter
	MessagesReceived *prometheus.CounterVec
	FrameErrors      prometheus.Counter
	MessageLatency   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of live rooms",
		}),
		PendingWrites: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_write_connections",
			Help:      "Connections with unflushed outbound bytes",
		}),
		RoomsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Rooms created, by visibility",
		}, []string{"visibility"}),
		RoomsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_closed_total",
			Help:      "Rooms closed, by reason",
		}, []string{"reason"}),
		RoomLifetime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "room_lifetime_seconds",
			Help:      "Time from room creation to teardown",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		GamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started, by visibility",
		}, []string{"visibility"}),
		QuestionsAsked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_asked_total",
			Help:      "Questions broadcast to rooms",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received, by action",
		}, []string{"action"}),
		FrameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_errors_total",
			Help:      "Frames that could not be decoded",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OnlinePlayers,
		m.ActiveRooms,
		m.PendingWrites,
		m.RoomsCreated,
		m.RoomsClosed,
		m.RoomLifetime,
		m.GamesStarted,
		m.QuestionsAsked,
		m.MessagesReceived,
		m.FrameErrors,
		m.MessageLatency,
	}
}

// Monitor owns a registry of its own, so several servers (and tests) can
// live in one process.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}
	m.registry.MustRegister(m.metrics.collectors()...)
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the server started",
		}, func() float64 {
			return time.Since(m.startTime).Seconds()
		}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) SetPendingWrites(count int) {
	m.metrics.PendingWrites.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived(action string) {
	m.metrics.MessagesReceived.WithLabelValues(action).Inc()
}

func (m *Monitor) IncFrameErrors() {
	m.metrics.FrameErrors.Inc()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

// --- room lifecycle ---

func (m *Monitor) RoomCreated(visibility string) {
	m.metrics.RoomsCreated.WithLabelValues(visibility).Inc()
}

func (m *Monitor) RoomClosed(reason string, age time.Duration) {
	m.metrics.RoomsClosed.WithLabelValues(reason).Inc()
	m.metrics.RoomLifetime.Observe(age.Seconds())
}

func (m *Monitor) GameStarted(visibility string) {
	m.metrics.GamesStarted.WithLabelValues(visibility).Inc()
}

func (m *Monitor) QuestionAsked() {
	m.metrics.QuestionsAsked.Inc()
}
