package process

import "github.com/srodi/proctop/pkg/types"

type fakeProc struct {
	snaps []types.ProcessCPUSnapshot // served in order, the last one repeats
	calls int
	cmd   string
	user  string
	mem   string
	start int64
}

// fakeSource is an in-memory Source. Pids listed without a fakeProc behave
// like processes that exited between listing and reading.
type fakeSource struct {
	pids   []int
	uptime int64
	procs  map[int]*fakeProc
}

func newFakeSource() *fakeSource {
	return &fakeSource{procs: make(map[int]*fakeProc)}
}

func (f *fakeSource) add(pid int, snaps ...types.ProcessCPUSnapshot) *fakeProc {
	p := &fakeProc{snaps: snaps, cmd: "cmd", user: "user", mem: "1.0"}
	f.procs[pid] = p
	return p
}

func (f *fakeSource) ListProcessIDs() []int { return f.pids }

func (f *fakeSource) ProcessCPUSnapshot(pid int) types.ProcessCPUSnapshot {
	p, ok := f.procs[pid]
	if !ok || len(p.snaps) == 0 {
		return types.ProcessCPUSnapshot{}
	}
	idx := p.calls
	if idx >= len(p.snaps) {
		idx = len(p.snaps) - 1
	}
	p.calls++
	return p.snaps[idx]
}

func (f *fakeSource) Command(pid int) string {
	if p, ok := f.procs[pid]; ok {
		return p.cmd
	}
	return ""
}

func (f *fakeSource) User(pid int) string {
	if p, ok := f.procs[pid]; ok {
		return p.user
	}
	return ""
}

func (f *fakeSource) MemoryReading(pid int) string {
	if p, ok := f.procs[pid]; ok {
		return p.mem
	}
	return ""
}

func (f *fakeSource) StartTime(pid int) int64 {
	if p, ok := f.procs[pid]; ok {
		return p.start
	}
	return 0
}

func (f *fakeSource) SystemUptime() int64 { return f.uptime }

func snap(ticks, procTime float64) types.ProcessCPUSnapshot {
	return types.ProcessCPUSnapshot{TotalTimeTicks: ticks, ProcTimeSeconds: procTime, ClockTicksPerSecond: 100}
}
