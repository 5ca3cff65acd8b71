package types

// DefaultTopK controls how many processes the table shows by default.
const DefaultTopK = 20

// ProcessHistoryDepth is the number of CPU snapshots a process record retains.
const ProcessHistoryDepth = 10

// CPUWindow is the number of system-wide CPU snapshots the processor retains.
const CPUWindow = 3

// CPUSnapshot holds cumulative system CPU ticks since boot, summed across all cores.
type CPUSnapshot struct {
	Idle    uint64
	NonIdle uint64
	Total   uint64
}

// ProcessCPUSnapshot captures one process's cumulative CPU ticks and its age at sample time.
type ProcessCPUSnapshot struct {
	TotalTimeTicks      float64 // utime + stime + cutime + cstime
	ProcTimeSeconds     float64 // system uptime minus process start, in seconds
	ClockTicksPerSecond float64
}

// ProcessRow is the read-only view of a tracked process handed to display code.
type ProcessRow struct {
	PID         int
	User        string
	Command     string
	CPUFraction float64
	Memory      string // pre-formatted, in MB
	UpSeconds   int64
}

// Frame is everything one poll produces for the display layer.
type Frame struct {
	CPUFraction      float64
	MemoryFraction   float64
	UptimeSeconds    int64
	TotalProcesses   int
	RunningProcesses int
	Kernel           string
	OperatingSystem  string
	Processes        []ProcessRow
}
