// Package metrics mirrors each frame into Prometheus gauges and writes them to
// a node_exporter textfile collector file. Nothing is served over the network.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/srodi/proctop/pkg/types"
)

const namespace = "proctop"

const maxCommandLabel = 64

// Exporter owns a private registry so only proctop series reach the file.
type Exporter struct {
	path     string
	registry *prometheus.Registry

	cpu        prometheus.Gauge
	memory     prometheus.Gauge
	uptime     prometheus.Gauge
	created    prometheus.Gauge
	running    prometheus.Gauge
	tracked    prometheus.Gauge
	processCPU *prometheus.GaugeVec
}

// New returns an Exporter writing to path.
func New(path string) *Exporter {
	e := &Exporter{
		path:     path,
		registry: prometheus.NewRegistry(),
		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cpu_utilization_ratio",
			Help: "System CPU utilization over the trailing sample window.",
		}),
		memory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "memory_utilization_ratio",
			Help: "Share of system memory not available for new allocations.",
		}),
		uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "uptime_seconds",
			Help: "Seconds since boot.",
		}),
		created: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "processes_created",
			Help: "Processes created since boot.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "processes_running",
			Help: "Processes currently runnable.",
		}),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "processes_tracked",
			Help: "Processes in the live table.",
		}),
		processCPU: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_cpu_utilization_ratio",
			Help: "CPU utilization of the displayed processes.",
		}, []string{"pid", "user", "command"}),
	}
	e.registry.MustRegister(e.cpu, e.memory, e.uptime, e.created, e.running, e.tracked, e.processCPU)
	return e
}

// Observe records frame. Per-process series are replaced by rows so exited
// processes drop out of the file.
func (e *Exporter) Observe(frame types.Frame, rows []types.ProcessRow) {
	e.cpu.Set(frame.CPUFraction)
	e.memory.Set(frame.MemoryFraction)
	e.uptime.Set(float64(frame.UptimeSeconds))
	e.created.Set(float64(frame.TotalProcesses))
	e.running.Set(float64(frame.RunningProcesses))
	e.tracked.Set(float64(len(frame.Processes)))

	e.processCPU.Reset()
	for _, row := range rows {
		e.processCPU.WithLabelValues(strconv.Itoa(row.PID), row.User, commandLabel(row.Command)).Set(row.CPUFraction)
	}
}

// Write atomically replaces the textfile with the current values.
func (e *Exporter) Write() error {
	if err := prometheus.WriteToTextfile(e.path, e.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Registry exposes the underlying registry for inspection.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

func commandLabel(cmd string) string {
	r := []rune(cmd)
	if len(r) > maxCommandLabel {
		return string(r[:maxCommandLabel])
	}
	return cmd
}
