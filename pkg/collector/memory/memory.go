package memory

import (
	"fmt"
	"math"
)

// FormatReading renders a process's virtual memory size as megabytes with one
// decimal place. kB are divided by 1000 and the tenths are truncated, so
// 123456 kB reads "123.4".
func FormatReading(vmBytes uint64) string {
	kb := vmBytes / 1024
	tenths := kb / 100
	return fmt.Sprintf("%d.%d", tenths/10, tenths%10)
}

// Utilization returns the used share of system memory from MemTotal and
// MemAvailable, both in the same unit. A missing total reads as zero usage.
func Utilization(total, available uint64) float64 {
	if total == 0 || available > total {
		return 0
	}
	frac := float64(total-available) / float64(total)
	if math.IsNaN(frac) {
		return 0
	}
	return frac
}
