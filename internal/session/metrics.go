package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cube_writes_total",
			Help: "Outbound protocol lines by outcome",
		},
		[]string{"result"},
	)
	WriteQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cube_write_queue_depth",
			Help: "Lines waiting behind the in-flight write",
		},
	)
	InboundLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cube_inbound_lines_total",
			Help: "Inbound protocol lines by route",
		},
		[]string{"route"},
	)
	RoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cube_rounds_total",
			Help: "Finished rounds by result",
		},
		[]string{"result"},
	)
	BaseDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cube_round_base_duration_ms",
			Help: "Current adaptive round duration",
		},
	)
	PeripheralConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cube_peripheral_connected",
			Help: "1 while the peripheral link is up",
		},
	)
	PingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cube_pings_total",
			Help: "Packet-test pings by outcome",
		},
		[]string{"outcome"},
	)
	PingRTT = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cube_ping_rtt_ms",
			Help:    "Packet-test round trip time",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(WritesTotal)
	prometheus.MustRegister(WriteQueueDepth)
	prometheus.MustRegister(InboundLines)
	prometheus.MustRegister(RoundsTotal)
	prometheus.MustRegister(BaseDuration)
	prometheus.MustRegister(PeripheralConnected)
	prometheus.MustRegister(PingsTotal)
	prometheus.MustRegister(PingRTT)
}
