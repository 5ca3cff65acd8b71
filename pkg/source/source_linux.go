//go:build linux
// +build linux

// Package source reads the kernel counters the monitor samples. Every accessor
// swallows read failures and returns zero values: processes routinely exit
// between being listed and being read.
package source

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/procfs"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/tklauser/go-sysconf"

	"github.com/srodi/proctop/pkg/collector/memory"
	"github.com/srodi/proctop/pkg/types"
)

// procfs reports /proc/stat CPU columns in seconds using a fixed USER_HZ.
const procfsUserHZ = 100

const (
	defaultClockTicks    = 100
	defaultUserCacheSize = 512
)

// Seams for tests; they otherwise hit the live host.
var (
	hostUptime              = host.Uptime
	hostKernelVersion       = host.KernelVersion
	hostPlatformInformation = host.PlatformInformation
	lookupUserID            = user.LookupId
	clockTicks              = func() (int64, error) { return sysconf.Sysconf(sysconf.SC_CLK_TCK) }
)

// ProcFS is a StatSource backed by a procfs mount.
type ProcFS struct {
	fs     procfs.FS
	hz     float64
	users  *lru.Cache
	logger zerolog.Logger

	mountPoint string
	cacheSize  int
}

// Option configures a ProcFS.
type Option func(*ProcFS)

// WithMountPoint reads every counter, uptime included, from a procfs mounted
// somewhere other than /proc.
func WithMountPoint(path string) Option {
	return func(s *ProcFS) { s.mountPoint = path }
}

// WithLogger attaches a logger; read failures are logged at trace level.
func WithLogger(l zerolog.Logger) Option {
	return func(s *ProcFS) { s.logger = l }
}

// WithUserCacheSize bounds the uid to user name cache.
func WithUserCacheSize(n int) Option {
	return func(s *ProcFS) { s.cacheSize = n }
}

// New opens the procfs mount and detects the clock tick rate.
func New(opts ...Option) (*ProcFS, error) {
	s := &ProcFS{
		logger:     zerolog.Nop(),
		mountPoint: procfs.DefaultMountPoint,
		cacheSize:  defaultUserCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	fs, err := procfs.NewFS(s.mountPoint)
	if err != nil {
		return nil, fmt.Errorf("opening procfs at %s: %w", s.mountPoint, err)
	}
	s.fs = fs

	if s.cacheSize <= 0 {
		s.cacheSize = defaultUserCacheSize
	}
	users, err := lru.New(s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating user cache: %w", err)
	}
	s.users = users

	s.hz = defaultClockTicks
	if hz, err := clockTicks(); err == nil && hz > 0 {
		s.hz = float64(hz)
	} else {
		s.logger.Warn().Err(err).Int("fallback", defaultClockTicks).Msg("unable to read CLK_TCK")
	}
	return s, nil
}

// ClockTicks returns the detected ticks per second.
func (s *ProcFS) ClockTicks() float64 { return s.hz }

// SystemCPUSnapshot returns cumulative CPU ticks across all cores.
func (s *ProcFS) SystemCPUSnapshot() types.CPUSnapshot {
	stat, err := s.fs.Stat()
	if err != nil {
		s.logger.Trace().Err(err).Msg("reading system cpu counters")
		return types.CPUSnapshot{}
	}
	c := stat.CPUTotal
	idle := toTicks(c.Idle) + toTicks(c.Iowait)
	nonIdle := toTicks(c.User) + toTicks(c.Nice) + toTicks(c.System) +
		toTicks(c.IRQ) + toTicks(c.SoftIRQ) + toTicks(c.Steal)
	return types.CPUSnapshot{Idle: idle, NonIdle: nonIdle, Total: idle + nonIdle}
}

// ProcessCPUSnapshot returns pid's cumulative CPU ticks, including reaped
// children, and its age in seconds.
func (s *ProcFS) ProcessCPUSnapshot(pid int) types.ProcessCPUSnapshot {
	stat, ok := s.procStat(pid)
	if !ok {
		return types.ProcessCPUSnapshot{}
	}
	uptime := s.SystemUptime()
	return types.ProcessCPUSnapshot{
		TotalTimeTicks:      float64(stat.UTime) + float64(stat.STime) + float64(stat.CUTime) + float64(stat.CSTime),
		ProcTimeSeconds:     float64(uptime) - float64(stat.Starttime)/s.hz,
		ClockTicksPerSecond: s.hz,
	}
}

// Command returns pid's command line, or its bracketed comm for kernel threads.
func (s *ProcFS) Command(pid int) string {
	proc, err := s.fs.Proc(pid)
	if err != nil {
		s.logger.Trace().Err(err).Int("pid", pid).Msg("opening process")
		return ""
	}
	args, err := proc.CmdLine()
	if err == nil && len(args) > 0 {
		return strings.Join(args, " ")
	}
	comm, err := proc.Comm()
	if err != nil || comm == "" {
		return ""
	}
	return "[" + comm + "]"
}

// User returns the name owning pid's real uid. Unknown uids render numerically.
func (s *ProcFS) User(pid int) string {
	status, ok := s.procStatus(pid)
	if !ok {
		return ""
	}
	return s.userName(status.UIDs[0])
}

// MemoryReading returns pid's virtual memory size formatted in MB.
func (s *ProcFS) MemoryReading(pid int) string {
	status, ok := s.procStatus(pid)
	if !ok {
		return ""
	}
	return memory.FormatReading(status.VmSize)
}

// StartTime returns when pid started, in whole seconds since boot.
func (s *ProcFS) StartTime(pid int) int64 {
	stat, ok := s.procStat(pid)
	if !ok {
		return 0
	}
	return int64(float64(stat.Starttime) / s.hz)
}

// SystemUptime returns whole seconds since boot. With a custom mount point the
// mount's uptime file is read so process ages share one clock.
func (s *ProcFS) SystemUptime() int64 {
	if s.mountPoint != procfs.DefaultMountPoint {
		return s.mountUptime()
	}
	up, err := hostUptime()
	if err != nil {
		s.logger.Trace().Err(err).Msg("reading uptime")
		return 0
	}
	return int64(up)
}

// ListProcessIDs returns the pids currently present under the mount.
func (s *ProcFS) ListProcessIDs() []int {
	procs, err := s.fs.AllProcs()
	if err != nil {
		s.logger.Debug().Err(err).Msg("listing processes")
		return nil
	}
	pids := make([]int, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.PID)
	}
	return pids
}

// Kernel returns the running kernel release.
func (s *ProcFS) Kernel() string {
	v, err := hostKernelVersion()
	if err != nil {
		s.logger.Debug().Err(err).Msg("reading kernel version")
		return ""
	}
	return v
}

// OperatingSystem returns a human readable distribution name.
func (s *ProcFS) OperatingSystem() string {
	platform, _, version, err := hostPlatformInformation()
	if err != nil {
		s.logger.Debug().Err(err).Msg("reading platform information")
		return ""
	}
	return strings.TrimSpace(platform + " " + version)
}

// TotalProcesses returns the number of processes created since boot.
func (s *ProcFS) TotalProcesses() int {
	stat, err := s.fs.Stat()
	if err != nil {
		return 0
	}
	return int(stat.ProcessCreated)
}

// RunningProcesses returns the number of processes currently runnable.
func (s *ProcFS) RunningProcesses() int {
	stat, err := s.fs.Stat()
	if err != nil {
		return 0
	}
	return int(stat.ProcessesRunning)
}

// MemoryUtilization returns the used share of system memory.
func (s *ProcFS) MemoryUtilization() float64 {
	info, err := s.fs.Meminfo()
	if err != nil || info.MemTotal == nil || info.MemAvailable == nil {
		s.logger.Trace().Err(err).Msg("reading meminfo")
		return 0
	}
	return memory.Utilization(*info.MemTotal, *info.MemAvailable)
}

func (s *ProcFS) procStat(pid int) (procfs.ProcStat, bool) {
	proc, err := s.fs.Proc(pid)
	if err != nil {
		s.logger.Trace().Err(err).Int("pid", pid).Msg("opening process")
		return procfs.ProcStat{}, false
	}
	stat, err := proc.Stat()
	if err != nil {
		s.logger.Trace().Err(err).Int("pid", pid).Msg("reading process stat")
		return procfs.ProcStat{}, false
	}
	return stat, true
}

func (s *ProcFS) procStatus(pid int) (procfs.ProcStatus, bool) {
	proc, err := s.fs.Proc(pid)
	if err != nil {
		s.logger.Trace().Err(err).Int("pid", pid).Msg("opening process")
		return procfs.ProcStatus{}, false
	}
	status, err := proc.NewStatus()
	if err != nil {
		s.logger.Trace().Err(err).Int("pid", pid).Msg("reading process status")
		return procfs.ProcStatus{}, false
	}
	return status, true
}

func (s *ProcFS) userName(uid uint64) string {
	if name, ok := s.users.Get(uid); ok {
		return name.(string)
	}
	id := strconv.FormatUint(uid, 10)
	name := id
	if u, err := lookupUserID(id); err == nil && u.Username != "" {
		name = u.Username
	}
	s.users.Add(uid, name)
	return name
}

// mountUptime parses the first field of <mount>/uptime.
func (s *ProcFS) mountUptime() int64 {
	data, err := os.ReadFile(filepath.Join(s.mountPoint, "uptime"))
	if err != nil {
		s.logger.Trace().Err(err).Msg("reading uptime")
		return 0
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0
	}
	up, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || up < 0 {
		s.logger.Trace().Err(err).Str("uptime", fields[0]).Msg("parsing uptime")
		return 0
	}
	return int64(up)
}

func toTicks(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(seconds*procfsUserHZ + 0.5)
}
