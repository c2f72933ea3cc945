package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parley_ws_connections_active",
			Help: "Currently open websocket connections",
		},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_messages_sent_total",
			Help: "Total messages accepted and broadcast",
		},
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_messages_rejected_total",
			Help: "Messages rejected before broadcast",
		},
		[]string{"reason"}, // "empty", "banned", "not_in_room", "persistence"
	)

	RoomJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_room_joins_total",
			Help: "Successful room joins",
		},
	)

	BansIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_bans_issued_total",
			Help: "Total bans issued by moderators",
		},
	)

	BroadcastFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parley_broadcast_fanout_recipients",
			Help:    "Recipients per room broadcast",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)
)
