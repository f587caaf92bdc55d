package ui

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// FormatSize renders a byte count in IEC units ("4.2 MiB").
func FormatSize(n int64) string {
	if n < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

// FormatRatio renders a compressed/uncompressed percentage ("64.2%").
// Stored entries, and entries that compressed badly, sit at or above 100%.
func FormatRatio(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}
