package process

import (
	"bytes"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/srodi/proctop/pkg/types"
)

func pidsOf(rows []types.ProcessRow) []int {
	out := make([]int, len(rows))
	for i, row := range rows {
		out[i] = row.PID
	}
	slices.Sort(out)
	return out
}

func TestRegistryTracksListing(t *testing.T) {
	src := newFakeSource()
	for _, pid := range []int{1, 2, 3} {
		src.add(pid, snap(100, 10))
	}
	src.pids = []int{3, 1, 2}
	reg := NewRegistry(src)

	rows := reg.Processes()
	if got := pidsOf(rows); !slices.Equal(got, []int{1, 2, 3}) {
		t.Fatalf("expected pids 1,2,3, got %v", got)
	}
	for _, pid := range []int{1, 2, 3} {
		rec, ok := reg.Lookup(pid)
		if !ok || rec.HistoryLen() != 1 {
			t.Fatalf("pid %d should be admitted with one snapshot", pid)
		}
	}
}

func TestRegistryRetiresVanishedInSamePoll(t *testing.T) {
	src := newFakeSource()
	src.add(10, snap(100, 10))
	src.add(20, snap(100, 10))
	src.pids = []int{10, 20}
	reg := NewRegistry(src)
	reg.Processes()

	gone, _ := reg.Lookup(20)
	src.pids = []int{10}
	rows := reg.Processes()

	if got := pidsOf(rows); !slices.Equal(got, []int{10}) {
		t.Fatalf("vanished pid must be dropped in the same poll, got %v", got)
	}
	if _, ok := reg.Lookup(20); ok {
		t.Fatalf("pid 20 should no longer be tracked")
	}
	if !gone.IsStale() {
		t.Fatalf("retired record should be marked stale")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 tracked record, got %d", reg.Len())
	}
}

func TestRegistryHistoryGrowsForSurvivors(t *testing.T) {
	src := newFakeSource()
	src.add(5, snap(100, 10))
	src.pids = []int{5}
	reg := NewRegistry(src)

	for poll := 1; poll <= 14; poll++ {
		reg.Processes()
		rec, _ := reg.Lookup(5)
		want := min(poll, types.ProcessHistoryDepth)
		if rec.HistoryLen() != want {
			t.Fatalf("poll %d: expected history %d, got %d", poll, want, rec.HistoryLen())
		}
	}
}

func TestRegistrySortsByDescendingUtilization(t *testing.T) {
	src := newFakeSource()
	src.add(1, snap(100, 10)) // 0.1
	src.add(2, snap(900, 10)) // 0.9
	src.add(3, snap(500, 10)) // 0.5
	src.pids = []int{1, 2, 3}
	reg := NewRegistry(src)

	rows := reg.Processes()
	want := []float64{0.9, 0.5, 0.1}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, w := range want {
		if math.Abs(rows[i].CPUFraction-w) > 1e-9 {
			t.Fatalf("row %d: expected %.1f, got %.3f", i, w, rows[i].CPUFraction)
		}
	}
}

func TestRegistryTiesKeepPIDOrder(t *testing.T) {
	src := newFakeSource()
	for _, pid := range []int{30, 10, 20} {
		src.add(pid, snap(100, 10))
	}
	src.pids = []int{30, 10, 20}
	rows := NewRegistry(src).Processes()
	if rows[0].PID != 10 || rows[1].PID != 20 || rows[2].PID != 30 {
		t.Fatalf("equal fractions should keep pid order, got %v", rows)
	}
}

func TestRegistryNewcomerHasReading(t *testing.T) {
	src := newFakeSource()
	src.add(1, snap(100, 10))
	src.pids = []int{1}
	reg := NewRegistry(src)
	reg.Processes()

	src.add(2, snap(300, 10))
	src.pids = []int{1, 2}
	rows := reg.Processes()

	var found bool
	for _, row := range rows {
		if row.PID == 2 {
			found = true
			if math.Abs(row.CPUFraction-0.3) > 1e-9 {
				t.Fatalf("newcomer should carry its lifetime average, got %v", row.CPUFraction)
			}
			if row.Memory == "" || row.Command == "" {
				t.Fatalf("newcomer should be populated, got %+v", row)
			}
		}
	}
	if !found {
		t.Fatalf("newcomer missing from the poll that listed it")
	}
}

func TestRegistryDeduplicatesListing(t *testing.T) {
	src := newFakeSource()
	src.add(4, snap(100, 10))
	src.pids = []int{4, 4, 4}
	reg := NewRegistry(src)

	rows := reg.Processes()
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	if !slices.Equal(src.pids, []int{4, 4, 4}) {
		t.Fatalf("listing must not be modified, got %v", src.pids)
	}
}

func TestRegistryGhostPIDGetsZeroRow(t *testing.T) {
	src := newFakeSource()
	src.pids = []int{99}
	rows := NewRegistry(src).Processes()
	if len(rows) != 1 || rows[0].PID != 99 || rows[0].CPUFraction != 0 {
		t.Fatalf("ghost pid should be listed with zero stats, got %+v", rows)
	}
}

func TestRegistryReturnsSnapshotCopy(t *testing.T) {
	src := newFakeSource()
	src.add(1, snap(100, 10), snap(900, 20))
	src.pids = []int{1}
	reg := NewRegistry(src)

	first := reg.Processes()
	held := first[0].CPUFraction
	reg.Processes()
	if first[0].CPUFraction != held {
		t.Fatalf("earlier result mutated by later poll: %v -> %v", held, first[0].CPUFraction)
	}

	first[0].Command = "tampered"
	rec, _ := reg.Lookup(1)
	if rec.Command() == "tampered" {
		t.Fatalf("caller edits must not reach registry state")
	}
}

func TestRegistryUpSecondsUsesUptime(t *testing.T) {
	src := newFakeSource()
	src.add(8, snap(100, 10)).start = 25
	src.pids = []int{8}
	src.uptime = 125
	rows := NewRegistry(src).Processes()
	if rows[0].UpSeconds != 100 {
		t.Fatalf("expected 100s up, got %d", rows[0].UpSeconds)
	}
}

func TestRegistryLogsReconciliation(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	src := newFakeSource()
	src.pids = []int{1, 2}
	reg := NewRegistry(src, WithLogger(logger), WithHistoryDepth(2))
	reg.Processes()
	src.pids = []int{2}
	reg.Processes()

	out := buf.String()
	if !strings.Contains(out, "process table reconciled") || !strings.Contains(out, `"retired":1`) {
		t.Fatalf("expected reconciliation log, got %s", out)
	}
}

func TestSetOperations(t *testing.T) {
	a := []int{1, 2, 4, 7, 9}
	b := []int{2, 3, 7, 10}
	if got := difference(a, b); !slices.Equal(got, []int{1, 4, 9}) {
		t.Fatalf("a-b = %v", got)
	}
	if got := difference(b, a); !slices.Equal(got, []int{3, 10}) {
		t.Fatalf("b-a = %v", got)
	}
	if got := intersection(a, b); !slices.Equal(got, []int{2, 7}) {
		t.Fatalf("a∩b = %v", got)
	}
	if got := difference(nil, b); len(got) != 0 {
		t.Fatalf("empty difference expected, got %v", got)
	}
	if got := normalizePIDs([]int{5, 1, 5, 3, 1}); !slices.Equal(got, []int{1, 3, 5}) {
		t.Fatalf("normalize = %v", got)
	}
}
