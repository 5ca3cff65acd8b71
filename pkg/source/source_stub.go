//go:build !linux
// +build !linux

package source

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/srodi/proctop/pkg/types"
)

var errUnsupported = errors.New("process source requires linux procfs")

// ProcFS is a placeholder on non-Linux platforms.
type ProcFS struct{}

// Option configures a ProcFS.
type Option func(*ProcFS)

// WithMountPoint is accepted for API parity and ignored.
func WithMountPoint(string) Option { return func(*ProcFS) {} }

// WithLogger is accepted for API parity and ignored.
func WithLogger(zerolog.Logger) Option { return func(*ProcFS) {} }

// WithUserCacheSize is accepted for API parity and ignored.
func WithUserCacheSize(int) Option { return func(*ProcFS) {} }

// New returns an error because the counters are read from procfs.
func New(...Option) (*ProcFS, error) {
	return nil, errUnsupported
}

// ClockTicks returns zero.
func (s *ProcFS) ClockTicks() float64 { return 0 }

// SystemCPUSnapshot returns a zero snapshot.
func (s *ProcFS) SystemCPUSnapshot() types.CPUSnapshot { return types.CPUSnapshot{} }

// ProcessCPUSnapshot returns a zero snapshot.
func (s *ProcFS) ProcessCPUSnapshot(int) types.ProcessCPUSnapshot { return types.ProcessCPUSnapshot{} }

// Command returns an empty string.
func (s *ProcFS) Command(int) string { return "" }

// User returns an empty string.
func (s *ProcFS) User(int) string { return "" }

// MemoryReading returns an empty string.
func (s *ProcFS) MemoryReading(int) string { return "" }

// StartTime returns zero.
func (s *ProcFS) StartTime(int) int64 { return 0 }

// SystemUptime returns zero.
func (s *ProcFS) SystemUptime() int64 { return 0 }

// ListProcessIDs returns no pids.
func (s *ProcFS) ListProcessIDs() []int { return nil }

// Kernel returns an empty string.
func (s *ProcFS) Kernel() string { return "" }

// OperatingSystem returns an empty string.
func (s *ProcFS) OperatingSystem() string { return "" }

// TotalProcesses returns zero.
func (s *ProcFS) TotalProcesses() int { return 0 }

// RunningProcesses returns zero.
func (s *ProcFS) RunningProcesses() int { return 0 }

// MemoryUtilization returns zero.
func (s *ProcFS) MemoryUtilization() float64 { return 0 }
