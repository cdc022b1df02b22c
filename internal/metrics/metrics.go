package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "caronas", Name: "rides_created_total", Help: "Total rides created (including recurrence occurrences)"})

	SeatDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "caronas", Name: "seat_decisions_total", Help: "Seat decisions by outcome"},
		[]string{"decision", "result"},
	)
	SeatDecisionRetries = promauto.NewCounter(prometheus.CounterOpts{Namespace: "caronas", Name: "seat_decision_retries_total", Help: "Seat decision retries after concurrency conflicts"})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "caronas", Name: "ws_connected_clients", Help: "Currently authenticated websocket connections"})
	RoomMembers      = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "caronas", Name: "ws_room_members", Help: "Current ride-room memberships"})

	LocationUpdatesRouted     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "caronas", Name: "location_updates_routed_total", Help: "Location events delivered to recipients"})
	LocationUpdatesSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "caronas", Name: "location_updates_suppressed_total", Help: "Location deliveries suppressed, by reason"},
		[]string{"reason"},
	)
)
