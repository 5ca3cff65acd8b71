package ui

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/srodi/proctop/pkg/report"
	"github.com/srodi/proctop/pkg/types"
)

const defaultCommandWidth = 64

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("177"))

	loadStyles = map[string]lipgloss.Style{
		report.LoadIdle:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		report.LoadLight:     lipgloss.NewStyle().Foreground(lipgloss.Color("121")),
		report.LoadBusy:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		report.LoadSaturated: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
)

// RenderOptions carries the display settings for one frame.
type RenderOptions struct {
	Interval     time.Duration
	TopK         int
	Filter       report.FilterConfig
	Updated      time.Time
	CommandWidth int
	ShowBanner   bool
}

// RenderFrame writes one full screen for frame: header, system gauges, the
// focus line and the ranked process table.
func RenderFrame(w io.Writer, frame types.Frame, opts RenderOptions) error {
	rows := report.FilterRows(frame.Processes, opts.Filter)
	focus := report.SelectFocusCandidate(rows)
	top := report.TopRows(rows, opts.TopK)

	var buf bytes.Buffer
	if opts.ShowBanner {
		buf.WriteString(Banner())
	}
	fmt.Fprintf(&buf, "%s (press Ctrl+C to exit)\n", titleStyle.Render("proctop"))
	fmt.Fprintf(&buf, "Updated: %s | Interval: %v\n", opts.Updated.Format(time.RFC3339), opts.Interval)
	fmt.Fprintf(&buf, "Kernel: %s | OS: %s | Up: %s\n\n",
		orUnknown(frame.Kernel), orUnknown(frame.OperatingSystem), FormatElapsed(frame.UptimeSeconds))

	cpuLabel := report.LoadLabel(frame.CPUFraction)
	fmt.Fprintf(&buf, "CPU [%s] %5.1f%% %s\n", Bar(frame.CPUFraction, 30), frame.CPUFraction*100, loadStyles[cpuLabel].Render(cpuLabel))
	fmt.Fprintf(&buf, "MEM [%s] %5.1f%%\n", Bar(frame.MemoryFraction, 30), frame.MemoryFraction*100)
	fmt.Fprintf(&buf, "Tasks: %d created, %d running, %d tracked\n\n",
		frame.TotalProcesses, frame.RunningProcesses, len(frame.Processes))

	if focus != nil {
		label := report.LoadLabel(focus.CPUFraction)
		fmt.Fprintf(&buf, "%s %s (pid %d, %s)\n", focusStyle.Render("[!] Focus:"),
			truncate(focus.Command, 40), focus.PID, orUnknown(focus.User))
		fmt.Fprintf(&buf, "   Reason: %s - %s\n\n", label, report.FocusSummary(*focus))
	} else {
		fmt.Fprintf(&buf, "[!] No processes matched current filters (hide-kernel=%t, user=%q)\n\n",
			opts.Filter.HideKernel == nil || *opts.Filter.HideKernel, opts.Filter.User)
	}

	fmt.Fprintf(&buf, "%s\n", sectionStyle.Render(fmt.Sprintf("[Top %d of %d processes by CPU]", len(top), len(rows))))
	if len(top) > 0 {
		width := opts.CommandWidth
		if width <= 0 {
			width = defaultCommandWidth
		}
		tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PID\tUSER\tCPU(%)\tVIRT(MB)\tUP\tLOAD\tCOMMAND")
		for _, row := range top {
			fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\t%s\t%s\t%s\n",
				row.PID, orUnknown(row.User), row.CPUFraction*100, orUnknown(row.Memory),
				FormatElapsed(row.UpSeconds), report.LoadLabel(row.CPUFraction), truncate(row.Command, width))
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("flushing process table: %w", err)
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// FormatElapsed renders seconds as HH:MM:SS. Hours are not wrapped at 24.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds/60)%60, seconds%60)
}

// Bar draws a fixed-width utilization bar for fraction, clamped to [0,1].
func Bar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("·", width-filled)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
