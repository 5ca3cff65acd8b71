package process

import (
	"math"
	"testing"

	"github.com/srodi/proctop/pkg/types"
)

func TestRecordReadsIdentityOnce(t *testing.T) {
	src := newFakeSource()
	p := src.add(42, snap(0, 1))
	p.cmd, p.user, p.start = "/usr/bin/db --serve", "postgres", 30

	rec := NewRecord(42, src)
	p.cmd, p.user = "changed", "changed"

	if rec.PID() != 42 || rec.Command() != "/usr/bin/db --serve" || rec.User() != "postgres" {
		t.Fatalf("unexpected identity: pid=%d cmd=%q user=%q", rec.PID(), rec.Command(), rec.User())
	}
	if rec.StartSinceBoot() != 30 {
		t.Fatalf("expected start 30, got %d", rec.StartSinceBoot())
	}
	if rec.HistoryLen() != 0 {
		t.Fatalf("new record should have empty history, got %d", rec.HistoryLen())
	}
}

func TestRecordUpdateUtilization(t *testing.T) {
	src := newFakeSource()
	src.add(7,
		snap(200, 10), // lifetime: (200/100)/10
		snap(700, 20), // vs front: (500/100)/10
	)
	src.procs[7].mem = "12.3"

	rec := NewRecord(7, src)
	rec.UpdateUtilization()
	if math.Abs(rec.CPUFraction()-0.2) > 1e-9 {
		t.Fatalf("first update: expected 0.2, got %v", rec.CPUFraction())
	}
	if rec.Memory() != "12.3" {
		t.Fatalf("memory reading should be stored verbatim, got %q", rec.Memory())
	}

	rec.UpdateUtilization()
	if math.Abs(rec.CPUFraction()-0.5) > 1e-9 {
		t.Fatalf("second update: expected 0.5, got %v", rec.CPUFraction())
	}
	if rec.HistoryLen() != 2 {
		t.Fatalf("expected history of 2, got %d", rec.HistoryLen())
	}
}

func TestRecordSameSecondHoldsPreviousValue(t *testing.T) {
	src := newFakeSource()
	src.add(9, snap(200, 10), snap(300, 10))

	rec := NewRecord(9, src)
	rec.UpdateUtilization()
	before := rec.CPUFraction()
	rec.UpdateUtilization()

	got := rec.CPUFraction()
	if got != before {
		t.Fatalf("expected held value %v, got %v", before, got)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("fraction must stay finite, got %v", got)
	}
}

func TestRecordDegenerateInputsYieldZero(t *testing.T) {
	cases := []struct {
		name  string
		snaps []types.ProcessCPUSnapshot
	}{
		{"zeroClockTicks", []types.ProcessCPUSnapshot{{TotalTimeTicks: 100, ProcTimeSeconds: 5}}},
		{"processVanishedMidRead", []types.ProcessCPUSnapshot{snap(500, 10), {}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := newFakeSource()
			src.add(1, tc.snaps...)
			rec := NewRecord(1, src)
			for range tc.snaps {
				rec.UpdateUtilization()
			}
			if got := rec.CPUFraction(); got != 0 {
				t.Fatalf("expected 0, got %v", got)
			}
		})
	}
}

func TestRecordGhostPIDIsNotFatal(t *testing.T) {
	rec := NewRecord(404, newFakeSource())
	rec.UpdateUtilization()
	if rec.CPUFraction() != 0 || rec.Memory() != "" || rec.Command() != "" {
		t.Fatalf("ghost pid should carry zero values, got %+v", rec.Row(0))
	}
	if rec.HistoryLen() != 1 {
		t.Fatalf("ghost pid still records a snapshot, got %d", rec.HistoryLen())
	}
}

func TestRecordFailedReadFallsBackToLifetimeAverage(t *testing.T) {
	src := newFakeSource()
	src.add(11,
		snap(100, 10),
		types.ProcessCPUSnapshot{}, // read failed
		snap(300, 20),
		snap(900, 30),
	)

	rec := newRecord(11, src, 2)
	for range 3 {
		rec.UpdateUtilization()
	}
	// The zero snapshot is now the front, so this measures from boot:
	// (900/100)/30 rather than the windowed (600/100)/10.
	rec.UpdateUtilization()
	if math.Abs(rec.CPUFraction()-0.3) > 1e-9 {
		t.Fatalf("expected lifetime average 0.3, got %v", rec.CPUFraction())
	}
}

func TestRecordHistoryIsBounded(t *testing.T) {
	snaps := make([]types.ProcessCPUSnapshot, 25)
	for i := range snaps {
		snaps[i] = snap(float64(i*100), float64(i+1))
	}
	src := newFakeSource()
	src.add(3, snaps...)

	rec := NewRecord(3, src)
	for i := range snaps {
		rec.UpdateUtilization()
		want := min(i+1, types.ProcessHistoryDepth)
		if rec.HistoryLen() != want {
			t.Fatalf("update %d: expected history %d, got %d", i, want, rec.HistoryLen())
		}
	}
	// 100 ticks per second of age at 100 Hz is one full core.
	if math.Abs(rec.CPUFraction()-1) > 1e-9 {
		t.Fatalf("expected steady 1.0, got %v", rec.CPUFraction())
	}
}

func TestRecordStaleIsOneWay(t *testing.T) {
	rec := NewRecord(5, newFakeSource())
	if rec.IsStale() {
		t.Fatalf("new record must not be stale")
	}
	rec.MarkStale()
	rec.UpdateUtilization()
	if !rec.IsStale() {
		t.Fatalf("stale flag must survive further updates")
	}
}

func TestRecordRowUptime(t *testing.T) {
	src := newFakeSource()
	src.add(11, snap(100, 10)).start = 40
	rec := NewRecord(11, src)
	rec.UpdateUtilization()

	row := rec.Row(100)
	if row.PID != 11 || row.UpSeconds != 60 {
		t.Fatalf("unexpected row %+v", row)
	}
	if got := rec.Row(10).UpSeconds; got != 0 {
		t.Fatalf("age must clamp at zero, got %d", got)
	}
}

func TestByDescendingUtilization(t *testing.T) {
	a := &Record{cpuFraction: 0.9}
	b := &Record{cpuFraction: 0.1}
	if !byDescendingUtilization(a, b) || byDescendingUtilization(b, a) {
		t.Fatalf("higher utilization must order first")
	}
	if byDescendingUtilization(a, a) {
		t.Fatalf("equal records must not order before each other")
	}
}
