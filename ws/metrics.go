package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsync_ws_reconnects_total",
		Help: "Reconnect attempts scheduled per channel.",
	}, []string{"channel"})

	metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsync_ws_events_total",
		Help: "Inbound frames received per channel.",
	}, []string{"channel"})

	metricErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsync_ws_errors_total",
		Help: "Transport errors per channel.",
	}, []string{"channel"})
)
