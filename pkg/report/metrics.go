package report

import (
	"fmt"
	"strings"

	"github.com/srodi/proctop/pkg/types"
)

// Load labels, ordered by severity.
const (
	LoadIdle      = "idle"
	LoadLight     = "light"
	LoadBusy      = "busy"
	LoadSaturated = "saturated"
)

// FilterConfig controls which processes appear in the table.
type FilterConfig struct {
	HideKernel *bool // nil defaults to true so kernel threads stay hidden unless explicitly shown
	User       string
}

func (cfg FilterConfig) hideKernelEnabled() bool {
	if cfg.HideKernel == nil {
		return true
	}
	return *cfg.HideKernel
}

// FilterRows applies the kernel-thread and user filters, keeping row order.
func FilterRows(rows []types.ProcessRow, cfg FilterConfig) []types.ProcessRow {
	filtered := make([]types.ProcessRow, 0, len(rows))
	for _, row := range rows {
		if passesFilters(row, cfg) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// TopRows returns at most topK rows from an already ranked table.
// topK <= 0 means no limit.
func TopRows(rows []types.ProcessRow, topK int) []types.ProcessRow {
	if topK > 0 && len(rows) > topK {
		rows = rows[:topK]
	}
	return append([]types.ProcessRow(nil), rows...)
}

// LoadLabel buckets a utilization fraction for the status line and row colors.
func LoadLabel(fraction float64) string {
	switch {
	case fraction >= 0.9:
		return LoadSaturated
	case fraction >= 0.5:
		return LoadBusy
	case fraction >= 0.05:
		return LoadLight
	default:
		return LoadIdle
	}
}

// SelectFocusCandidate picks the process worth calling out to the operator:
// the heaviest non-idle row, or the top CPU consumer when everything is idle.
func SelectFocusCandidate(rows []types.ProcessRow) *types.ProcessRow {
	if len(rows) == 0 {
		return nil
	}
	var best *types.ProcessRow
	bestScore := -1.0
	for _, row := range rows {
		severity := loadSeverity(LoadLabel(row.CPUFraction))
		if severity == 0 {
			continue
		}
		score := float64(severity)*1000 + row.CPUFraction
		if best == nil || score > bestScore {
			copy := row
			best = &copy
			bestScore = score
		}
	}
	if best != nil {
		return best
	}
	maxIdx := 0
	for i := 1; i < len(rows); i++ {
		if rows[i].CPUFraction > rows[maxIdx].CPUFraction {
			maxIdx = i
		}
	}
	copy := rows[maxIdx]
	return &copy
}

// FocusSummary returns a short explanation string for the status line.
func FocusSummary(row types.ProcessRow) string {
	percent := row.CPUFraction * 100
	switch LoadLabel(row.CPUFraction) {
	case LoadSaturated:
		return fmt.Sprintf("saturating a core at %.1f%% CPU, %s MB virtual", percent, row.Memory)
	case LoadBusy:
		return fmt.Sprintf("busy at %.1f%% CPU, %s MB virtual", percent, row.Memory)
	case LoadLight:
		return fmt.Sprintf("%.1f%% CPU", percent)
	default:
		return fmt.Sprintf("idle, %.1f%% CPU", percent)
	}
}

func passesFilters(row types.ProcessRow, cfg FilterConfig) bool {
	if cfg.hideKernelEnabled() && isKernelThread(row) {
		return false
	}
	if cfg.User != "" && !strings.EqualFold(row.User, cfg.User) {
		return false
	}
	return true
}

// isKernelThread matches pid 0 and the bracketed comm names the source
// reports for threads without a command line.
func isKernelThread(row types.ProcessRow) bool {
	if row.PID == 0 {
		return true
	}
	return len(row.Command) > 2 && strings.HasPrefix(row.Command, "[") && strings.HasSuffix(row.Command, "]")
}

func loadSeverity(label string) int {
	switch label {
	case LoadSaturated:
		return 3
	case LoadBusy:
		return 2
	case LoadLight:
		return 1
	default:
		return 0
	}
}
