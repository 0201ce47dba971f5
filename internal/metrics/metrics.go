package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var (
	chatMetricsOnce sync.Once

	friendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friend_requests_total",
			Help: "Total number of friend request attempts",
		},
		[]string{"status"},
	)

	friendAcceptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friend_accepts_total",
			Help: "Total number of friend request accept attempts",
		},
		[]string{"status"},
	)

	friendDeclinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friend_declines_total",
			Help: "Total number of friend request decline attempts",
		},
		[]string{"status"},
	)

	friendRemovalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friend_removals_total",
			Help: "Total number of friend removal attempts",
		},
		[]string{"status"},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_connections",
			Help: "Number of currently open websocket connections",
		},
	)

	messagesPersistedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_persisted_total",
			Help: "Total number of message append attempts",
		},
		[]string{"status"},
	)

	messagesDeliveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_delivered_total",
			Help: "Total number of messages delivered to room subscribers",
		},
	)
)

func RegisterChatMetrics() {
	chatMetricsOnce.Do(func() {
		prometheus.MustRegister(
			friendRequestsTotal,
			friendAcceptsTotal,
			friendDeclinesTotal,
			friendRemovalsTotal,
			wsConnections,
			messagesPersistedTotal,
			messagesDeliveredTotal,
		)
	})
}

func IncFriendRequest(status string) {
	RegisterChatMetrics()
	friendRequestsTotal.WithLabelValues(status).Inc()
}

func IncFriendAccept(status string) {
	RegisterChatMetrics()
	friendAcceptsTotal.WithLabelValues(status).Inc()
}

func IncFriendDecline(status string) {
	RegisterChatMetrics()
	friendDeclinesTotal.WithLabelValues(status).Inc()
}

func IncFriendRemoval(status string) {
	RegisterChatMetrics()
	friendRemovalsTotal.WithLabelValues(status).Inc()
}

func IncWSConnections() {
	RegisterChatMetrics()
	wsConnections.Inc()
}

func DecWSConnections() {
	RegisterChatMetrics()
	wsConnections.Dec()
}

func IncMessagePersisted(status string) {
	RegisterChatMetrics()
	messagesPersistedTotal.WithLabelValues(status).Inc()
}

func AddMessagesDelivered(n int) {
	RegisterChatMetrics()
	messagesDeliveredTotal.Add(float64(n))
}
