package process

import (
	"slices"
	"sort"

	"github.com/rs/zerolog"

	"github.com/srodi/proctop/pkg/types"
)

// Registry keeps the tracked process table in step with the OS pid set.
// A single goroutine must drive it.
type Registry struct {
	src     Source
	records map[int]*Record
	depth   int
	logger  zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger attaches a logger for reconciliation diagnostics.
func WithLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithHistoryDepth overrides the per-process snapshot depth.
func WithHistoryDepth(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.depth = n
		}
	}
}

// NewRegistry returns an empty registry reading from src.
func NewRegistry(src Source, opts ...RegistryOption) *Registry {
	r := &Registry{
		src:     src,
		records: make(map[int]*Record),
		depth:   types.ProcessHistoryDepth,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Processes runs one poll and returns the table sorted by descending CPU.
//
// Tracked pids that are still listed are refreshed, pids no longer listed are
// retired in this same poll, and newly listed pids get a record that is
// updated once before it is returned. The result is a copy; later polls do not
// mutate it.
func (r *Registry) Processes() []types.ProcessRow {
	current := normalizePIDs(r.src.ListProcessIDs())
	tracked := r.trackedPIDs()

	vanished := difference(tracked, current)
	kept := intersection(tracked, current)
	missing := difference(current, tracked)

	for _, pid := range kept {
		r.records[pid].UpdateUtilization()
	}
	r.retire(vanished)
	for _, pid := range missing {
		rec := newRecord(pid, r.src, r.depth)
		rec.UpdateUtilization()
		r.records[pid] = rec
	}

	if len(vanished) > 0 || len(missing) > 0 {
		r.logger.Debug().
			Int("retired", len(vanished)).
			Int("admitted", len(missing)).
			Int("tracked", len(r.records)).
			Msg("process table reconciled")
	}

	uptime := r.src.SystemUptime()
	table := r.sorted()
	rows := make([]types.ProcessRow, len(table))
	for i, rec := range table {
		rows[i] = rec.Row(uptime)
	}
	return rows
}

// Len returns the number of tracked processes.
func (r *Registry) Len() int { return len(r.records) }

// Lookup returns the record for pid, if tracked.
func (r *Registry) Lookup(pid int) (*Record, bool) {
	rec, ok := r.records[pid]
	return rec, ok
}

// retire marks each record stale and drops it from the table.
func (r *Registry) retire(pids []int) {
	for _, pid := range pids {
		rec, ok := r.records[pid]
		if !ok {
			continue
		}
		rec.MarkStale()
		delete(r.records, pid)
	}
}

func (r *Registry) trackedPIDs() []int {
	pids := make([]int, 0, len(r.records))
	for pid := range r.records {
		pids = append(pids, pid)
	}
	slices.Sort(pids)
	return pids
}

// sorted returns records ordered by byDescendingUtilization; equal fractions
// keep ascending pid order.
func (r *Registry) sorted() []*Record {
	table := make([]*Record, 0, len(r.records))
	for _, pid := range r.trackedPIDs() {
		table = append(table, r.records[pid])
	}
	sort.SliceStable(table, func(i, j int) bool {
		return byDescendingUtilization(table[i], table[j])
	})
	return table
}

// normalizePIDs sorts and de-duplicates a pid listing without touching the
// caller's slice.
func normalizePIDs(pids []int) []int {
	out := slices.Clone(pids)
	slices.Sort(out)
	return slices.Compact(out)
}

// difference returns the elements of a not in b. Both must be sorted.
func difference(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) {
		switch {
		case j >= len(b) || a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			j++
		default:
			i++
			j++
		}
	}
	return out
}

// intersection returns the elements present in both sorted slices.
func intersection(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
