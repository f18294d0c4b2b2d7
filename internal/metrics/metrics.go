package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "om_chat_messages_sent_total",
		Help: "Total messages persisted.",
	})
	NotificationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "om_chat_notifications_created_total",
		Help: "Total notification rows created by fan-out.",
	})
	NotificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "om_chat_notification_failures_total",
		Help: "Total per-recipient notification failures during fan-out.",
	})
	BroadcastPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "om_chat_broadcast_published_total",
		Help: "Total frames queued to websocket subscribers.",
	})
	BroadcastDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "om_chat_broadcast_dropped_total",
		Help: "Total frames dropped because a subscriber queue was full.",
	})
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "om_chat_ws_connections",
		Help: "Currently connected websocket clients.",
	})
	JoinedAtBackfilled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "om_chat_joined_at_backfilled_total",
		Help: "Total participant rows whose joined_at was rewritten by the backfill.",
	})
)

func Register() {
	prometheus.MustRegister(
		MessagesSent,
		NotificationsCreated, NotificationFailures,
		BroadcastPublished, BroadcastDropped,
		ActiveConnections,
		JoinedAtBackfilled,
	)
}
