package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promClientReq = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sugar_client_latency_ms",
		Help:    "Duration of RPC requests made by the candy machine client",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"request", "url"})

	promChunkWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sugar_config_chunk_writes",
		Help: "Config line chunk writes by outcome",
	}, []string{"outcome"})
)

func SetClientLatency(d time.Duration, request, url string) {
	promClientReq.WithLabelValues(request, url).Observe(float64(d.Milliseconds()))
}

// IncChunkWrite counts one chunk write attempt; outcome is "ok", "retry" or "abandoned".
func IncChunkWrite(outcome string) {
	promChunkWrites.WithLabelValues(outcome).Inc()
}
