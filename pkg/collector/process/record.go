package process

import (
	"math"

	"github.com/srodi/proctop/pkg/history"
	"github.com/srodi/proctop/pkg/types"
)

// Source supplies per-process counters and identity. Every method returns a
// zero value when the process is gone or the field is unreadable.
type Source interface {
	ListProcessIDs() []int
	ProcessCPUSnapshot(pid int) types.ProcessCPUSnapshot
	Command(pid int) string
	User(pid int) string
	MemoryReading(pid int) string
	StartTime(pid int) int64
	SystemUptime() int64
}

// Record tracks one process across polls.
type Record struct {
	src Source

	pid            int
	user           string
	command        string
	startSinceBoot int64

	history     *history.Queue[types.ProcessCPUSnapshot]
	cpuFraction float64
	memory      string
	stale       bool
}

// NewRecord reads the identity of pid once. Call UpdateUtilization before
// exposing the record so it never surfaces with an empty history.
func NewRecord(pid int, src Source) *Record {
	return newRecord(pid, src, types.ProcessHistoryDepth)
}

func newRecord(pid int, src Source, depth int) *Record {
	return &Record{
		src:            src,
		pid:            pid,
		command:        src.Command(pid),
		user:           src.User(pid),
		startSinceBoot: src.StartTime(pid),
		history:        history.NewQueue[types.ProcessCPUSnapshot](depth),
	}
}

// UpdateUtilization pulls a fresh snapshot and memory reading and recomputes
// the CPU fraction.
//
// Like the system processor, the baseline is the front of a count-bounded
// queue: after the history fills it is the snapshot from K polls ago, and the
// first update measures against zero, giving the lifetime average.
func (r *Record) UpdateUtilization() {
	now := r.src.ProcessCPUSnapshot(r.pid)
	r.memory = r.src.MemoryReading(r.pid)

	// A failed read pushes a zero snapshot on purpose; once it reaches the
	// front the next fraction is the lifetime average.
	r.history.Push(now)
	var base types.ProcessCPUSnapshot
	if r.history.Len() > 1 {
		base = r.history.Front()
	}
	r.history.EvictIfOverCapacity()

	deltaTotal := now.TotalTimeTicks - base.TotalTimeTicks
	deltaProcTime := now.ProcTimeSeconds - base.ProcTimeSeconds

	// Two polls inside the same whole second of uptime.
	if deltaProcTime == 0 {
		return
	}
	if now.ClockTicksPerSecond <= 0 || deltaTotal < 0 || deltaProcTime < 0 {
		r.cpuFraction = 0
		return
	}

	frac := (deltaTotal / now.ClockTicksPerSecond) / deltaProcTime
	if math.IsNaN(frac) || math.IsInf(frac, 0) {
		frac = 0
	}
	r.cpuFraction = frac
}

// MarkStale flags the record as belonging to a process that has exited.
func (r *Record) MarkStale() { r.stale = true }

// IsStale reports whether MarkStale was called.
func (r *Record) IsStale() bool { return r.stale }

// PID returns the tracked process id.
func (r *Record) PID() int { return r.pid }

// User returns the owner name read when the record was created.
func (r *Record) User() string { return r.user }

// Command returns the command line read when the record was created.
func (r *Record) Command() string { return r.command }

// CPUFraction returns the latest utilization; 1.0 is one full core.
func (r *Record) CPUFraction() float64 { return r.cpuFraction }

// Memory returns the latest virtual memory reading in MB.
func (r *Record) Memory() string { return r.memory }

// StartSinceBoot returns the process start time in seconds since boot.
func (r *Record) StartSinceBoot() int64 { return r.startSinceBoot }

// HistoryLen returns the number of retained snapshots.
func (r *Record) HistoryLen() int { return r.history.Len() }

// Row copies the record into a display row. uptime is the system uptime in
// seconds used to derive the process age.
func (r *Record) Row(uptime int64) types.ProcessRow {
	up := uptime - r.startSinceBoot
	if up < 0 {
		up = 0
	}
	return types.ProcessRow{
		PID:         r.pid,
		User:        r.user,
		Command:     r.command,
		CPUFraction: r.cpuFraction,
		Memory:      r.memory,
		UpSeconds:   up,
	}
}

// byDescendingUtilization orders a before b when a is using more CPU.
func byDescendingUtilization(a, b *Record) bool {
	return a.cpuFraction > b.cpuFraction
}
