package zbc

import (
	"sync"

	"github.com/buildbarn/bb-zone-writer/pkg/clock"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	deviceOperationsPrometheusMetrics sync.Once

	deviceOperationsDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "zbc",
			Name:      "device_operations_duration_seconds",
			Help:      "Amount of time spent per operation on zoned block devices, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 12),
		},
		[]string{"name", "operation", "result"})
	deviceWrittenSectorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "zbc",
			Name:      "device_written_sectors_total",
			Help:      "Total number of 512-byte sectors written to zoned block devices.",
		},
		[]string{"name"})
	deviceReportedZonesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "zbc",
			Name:      "device_reported_zones_total",
			Help:      "Total number of zones returned by zone reports, per reporting option.",
		},
		[]string{"name", "reporting_options"})
)

type metricsDevice struct {
	Device
	clock clock.Clock
	name  string

	listZonesSuccess    prometheus.Observer
	listZonesFailure    prometheus.Observer
	writeSectorsSuccess prometheus.Observer
	writeSectorsPartial prometheus.Observer
	writeSectorsFailure prometheus.Observer
	writtenSectors      prometheus.Counter
}

// NewMetricsDevice creates a decorator for Device that exposes
// Prometheus metrics on zone reports and writes.
func NewMetricsDevice(base Device, clock clock.Clock, name string) Device {
	deviceOperationsPrometheusMetrics.Do(func() {
		prometheus.MustRegister(deviceOperationsDurationSeconds)
		prometheus.MustRegister(deviceWrittenSectorsTotal)
		prometheus.MustRegister(deviceReportedZonesTotal)
	})

	return &metricsDevice{
		Device: base,
		clock:  clock,
		name:   name,

		listZonesSuccess:    deviceOperationsDurationSeconds.WithLabelValues(name, "ListZones", "Success"),
		listZonesFailure:    deviceOperationsDurationSeconds.WithLabelValues(name, "ListZones", "Failure"),
		writeSectorsSuccess: deviceOperationsDurationSeconds.WithLabelValues(name, "WriteSectors", "Success"),
		writeSectorsPartial: deviceOperationsDurationSeconds.WithLabelValues(name, "WriteSectors", "Partial"),
		writeSectorsFailure: deviceOperationsDurationSeconds.WithLabelValues(name, "WriteSectors", "Failure"),
		writtenSectors:      deviceWrittenSectorsTotal.WithLabelValues(name),
	}
}

func (d *metricsDevice) ListZones(startSector uint64, options ReportingOptions) ([]Zone, error) {
	timeStart := d.clock.Now()
	zones, err := d.Device.ListZones(startSector, options)
	duration := d.clock.Now().Sub(timeStart).Seconds()
	if err != nil {
		d.listZonesFailure.Observe(duration)
		return nil, err
	}
	d.listZonesSuccess.Observe(duration)
	deviceReportedZonesTotal.WithLabelValues(d.name, options.String()).Add(float64(len(zones)))
	return zones, nil
}

func (d *metricsDevice) WriteSectors(p []byte, sectorCount, sectorOffset uint64) (uint64, error) {
	timeStart := d.clock.Now()
	written, err := d.Device.WriteSectors(p, sectorCount, sectorOffset)
	duration := d.clock.Now().Sub(timeStart)
	switch {
	case err != nil || written == 0:
		d.writeSectorsFailure.Observe(duration.Seconds())
	case written < sectorCount:
		d.writeSectorsPartial.Observe(duration.Seconds())
	default:
		d.writeSectorsSuccess.Observe(duration.Seconds())
	}
	d.writtenSectors.Add(float64(written))
	return written, err
}
