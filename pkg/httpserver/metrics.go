package httpserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StreamClientsActive tracks connected websocket clients.
	StreamClientsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaparb_stream_clients_active",
		Help: "Number of connected snapshot stream clients",
	})

	// StreamMessagesTotal counts snapshot deliveries by result.
	StreamMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swaparb_stream_messages_total",
		Help: "Snapshot stream messages by result (sent, dropped)",
	}, []string{"result"})
)
