package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Push delivery outcomes.
const (
	PushDelivered = "delivered"
	PushPruned    = "pruned"
	PushFailed    = "failed"
	PushSkipped   = "skipped"
)

var (
	// NotificationsCreated counts persisted in-app notifications by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_notifications_created_total",
		Help: "Total number of notifications persisted, by type",
	}, []string{"type"})

	// PushDeliveries counts push attempts by outcome.
	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_push_deliveries_total",
		Help: "Total number of web push delivery attempts, by result",
	}, []string{"result"})

	// DetachedTaskPanics counts recovered panics in background tasks.
	DetachedTaskPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_detached_task_panics_total",
		Help: "Total number of panics recovered in detached tasks",
	}, []string{"task"})

	// DetachedTasksInFlight is the number of running detached tasks.
	DetachedTasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quill_detached_tasks_in_flight",
		Help: "Number of detached tasks currently running",
	})

	// WebSocketConnections is the gauge of open notification streams.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quill_websocket_connections",
		Help: "Number of open notification websocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped because a client's
	// send buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_websocket_backpressure_drops_total",
		Help: "Total number of websocket messages dropped due to backpressure",
	})

	// CacheLookups counts cache-aside lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_cache_lookups_total",
		Help: "Total number of cache lookups, by result",
	}, []string{"result"})
)
