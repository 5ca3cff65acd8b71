package cpu

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/srodi/proctop/pkg/history"
	"github.com/srodi/proctop/pkg/types"
)

// Source supplies cumulative system-wide CPU counters.
type Source interface {
	SystemCPUSnapshot() types.CPUSnapshot
}

// Processor derives aggregate CPU utilization from a trailing window of
// cumulative counters. It is not safe for concurrent use.
type Processor struct {
	src     Source
	history *history.Queue[types.CPUSnapshot]
	logger  zerolog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger attaches a logger for degenerate-window diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithWindow overrides the number of retained snapshots.
func WithWindow(n int) Option {
	return func(p *Processor) { p.history = history.NewQueue[types.CPUSnapshot](n) }
}

// NewProcessor returns a Processor reading from src.
func NewProcessor(src Source, opts ...Option) *Processor {
	p := &Processor{
		src:     src,
		history: history.NewQueue[types.CPUSnapshot](types.CPUWindow),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Utilization samples the counters once and returns the busy fraction in [0,1].
//
// The baseline is whatever snapshot sits at the front of the queue, not one of
// a fixed age. Once the queue is full that is the sample from Window polls ago;
// before then it is older relative to the queue size and the very first call
// measures against zero, i.e. the average since boot.
func (p *Processor) Utilization() float64 {
	now := p.src.SystemCPUSnapshot()
	p.history.Push(now)

	var base types.CPUSnapshot
	if p.history.Len() > 1 {
		base = p.history.Front()
	}
	p.history.EvictIfOverCapacity()

	totald := float64(now.Total) - float64(base.Total)
	idled := float64(now.Idle) - float64(base.Idle)
	if totald <= 0 {
		p.logger.Debug().Uint64("total", now.Total).Uint64("baseline", base.Total).Msg("cpu total did not advance")
		return 0
	}

	frac := (totald - idled) / totald
	switch {
	case math.IsNaN(frac), frac < 0:
		return 0
	case frac > 1:
		return 1
	}
	return frac
}

// Window returns how many snapshots are currently retained.
func (p *Processor) Window() int { return p.history.Len() }
