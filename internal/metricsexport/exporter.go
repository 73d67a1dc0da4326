// Package metricsexport implements the Prometheus external
// collaborator: a registry of gauges fed from the Coordinator's latest
// snapshot and exposed over HTTP (spec.md §1). Grounded on the
// prometheus/client_golang usage observed in
// deepaucksharma-Phoenix/services/validator/main.go (package-level
// GaugeVec + MustRegister), adapted from that service's own custom
// registry to a dedicated prometheus.Registry per exporter instance so
// multiple Sentinel processes in tests don't collide on the global
// default registry.
package metricsexport

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ftahirops/sentinel/internal/model"
)

// Exporter owns a private Prometheus registry and the gauges updated on
// every Coordinator tick via Observe.
type Exporter struct {
	registry *prometheus.Registry

	cpuGlobal      prometheus.Gauge
	memUsedPercent prometheus.Gauge
	swapUsedPercent prometheus.Gauge
	load1          prometheus.Gauge
	processCount   prometheus.Gauge
	alertCount     prometheus.Gauge
	gpuUtil        prometheus.Gauge
	gpuTemp        prometheus.Gauge
}

// New builds an Exporter with its own registry, registering every gauge
// (deepaucksharma-Phoenix's init()-time MustRegister idiom, but against
// an instance registry instead of the package-global one).
func New() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		cpuGlobal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_cpu_usage_percent",
			Help: "Global CPU usage percent at the last sample.",
		}),
		memUsedPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_memory_used_percent",
			Help: "Memory used as a percent of total at the last sample.",
		}),
		swapUsedPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_swap_used_percent",
			Help: "Swap used as a percent of total at the last sample.",
		}),
		load1: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_load1",
			Help: "1-minute load average at the last sample.",
		}),
		processCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_process_count",
			Help: "Total processes observed at the last sample.",
		}),
		alertCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_alerts_last_tick",
			Help: "Number of alerts emitted on the most recent tick.",
		}),
		gpuUtil: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_gpu_utilization_percent",
			Help: "GPU utilization percent at the last sample, if a GPU was detected.",
		}),
		gpuTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_gpu_temperature_celsius",
			Help: "GPU temperature in Celsius at the last sample, if a GPU was detected.",
		}),
	}

	e.registry.MustRegister(
		e.cpuGlobal,
		e.memUsedPercent,
		e.swapUsedPercent,
		e.load1,
		e.processCount,
		e.alertCount,
		e.gpuUtil,
		e.gpuTemp,
	)
	return e
}

// Observe updates every gauge from the latest tick (implements
// coordinator.MetricsSink).
func (e *Exporter) Observe(snap *model.SystemSnapshot, alertCount int) {
	e.cpuGlobal.Set(snap.GlobalCPUUsage)
	e.memUsedPercent.Set(snap.MemoryPercent())
	e.swapUsedPercent.Set(snap.SwapPercent())
	e.load1.Set(snap.Load.Load1)
	e.processCount.Set(float64(snap.TotalProcesses))
	e.alertCount.Set(float64(alertCount))
	if snap.GPU != nil {
		e.gpuUtil.Set(snap.GPU.UtilizationPct)
		e.gpuTemp.Set(snap.GPU.TemperatureC)
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
