package zonewriter

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	engineTransferPrometheusMetrics sync.Once

	engineTransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "zonewriter",
			Name:      "transfers_total",
			Help:      "Number of transfers into zones, by the reason they completed.",
		},
		[]string{"completion_reason"})
	engineTransferBytesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "zonewriter",
			Name:      "transfer_bytes_written_total",
			Help:      "Number of bytes written into zones by transfers.",
		})
	engineTransferDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "zonewriter",
			Name:      "transfer_duration_seconds",
			Help:      "Amount of time spent writing data into zones, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 12),
		})
)

func registerEngineMetrics() {
	engineTransferPrometheusMetrics.Do(func() {
		prometheus.MustRegister(engineTransfersTotal)
		prometheus.MustRegister(engineTransferBytesWrittenTotal)
		prometheus.MustRegister(engineTransferDurationSeconds)
	})
}

func observeTransfer(stats *TransferStats) {
	engineTransfersTotal.WithLabelValues(stats.Completed.String()).Inc()
	engineTransferBytesWrittenTotal.Add(float64(stats.BytesWritten))
	engineTransferDurationSeconds.Observe(stats.Elapsed.Seconds())
}
