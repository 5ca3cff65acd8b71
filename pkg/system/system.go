// Package system composes the CPU processor and the process registry into one
// sample per poll.
package system

import (
	"github.com/rs/zerolog"

	"github.com/srodi/proctop/pkg/collector/cpu"
	"github.com/srodi/proctop/pkg/collector/process"
	"github.com/srodi/proctop/pkg/types"
)

// Source is everything a System reads from the host.
type Source interface {
	cpu.Source
	process.Source
	Kernel() string
	OperatingSystem() string
	TotalProcesses() int
	RunningProcesses() int
	MemoryUtilization() float64
}

// System is not safe for concurrent use; one goroutine drives Sample.
type System struct {
	src       Source
	cpu       *cpu.Processor
	processes *process.Registry
	logger    zerolog.Logger

	kernel string
	os     string
}

// Option configures a System.
type Option func(*System)

// WithLogger forwards l to the processor and registry.
func WithLogger(l zerolog.Logger) Option {
	return func(s *System) { s.logger = l }
}

// New builds a System over src. Kernel and OS names are read once.
func New(src Source, opts ...Option) *System {
	s := &System{src: src, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.cpu = cpu.NewProcessor(src, cpu.WithLogger(s.logger.With().Str("component", "cpu").Logger()))
	s.processes = process.NewRegistry(src, process.WithLogger(s.logger.With().Str("component", "registry").Logger()))
	s.kernel = src.Kernel()
	s.os = src.OperatingSystem()
	s.logger.Debug().Str("kernel", s.kernel).Str("os", s.os).Msg("system facts cached")
	return s
}

// Sample polls every counter once.
func (s *System) Sample() types.Frame {
	return types.Frame{
		CPUFraction:      s.cpu.Utilization(),
		MemoryFraction:   s.src.MemoryUtilization(),
		UptimeSeconds:    s.src.SystemUptime(),
		TotalProcesses:   s.src.TotalProcesses(),
		RunningProcesses: s.src.RunningProcesses(),
		Kernel:           s.kernel,
		OperatingSystem:  s.os,
		Processes:        s.processes.Processes(),
	}
}

// CPU returns the system utilization processor.
func (s *System) CPU() *cpu.Processor { return s.cpu }

// Registry returns the live process table.
func (s *System) Registry() *process.Registry { return s.processes }

// Kernel returns the kernel release cached at construction.
func (s *System) Kernel() string { return s.kernel }

// OperatingSystem returns the distribution name cached at construction.
func (s *System) OperatingSystem() string { return s.os }
