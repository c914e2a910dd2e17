package outwriter

import (
	"os"

	"github.com/huangsam/kpiroll/internal/contract"
	"golang.org/x/term"
)

const (
	labelColumnWidth   = 18 // Period label plus the open marker
	countryColumnWidth = 9
	metricColumnWidth  = 18 // Fits 999,999,999.99 with padding
	tableChromeWidth   = 4
)

// GetTerminalWidth returns the width to render tables in.
// The --width override wins, then the detected terminal width, then 80 columns.
func GetTerminalWidth(cfg *contract.Config) int {
	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		return cfg.Width
	}

	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		// Fallback to conservative default if terminal size can't be detected
		return 80
	}
	return detectedWidth
}

// GetMetricColumnsPerTable returns how many metric columns fit next to the fixed columns.
// At least one metric column is always returned so narrow terminals still render.
func GetMetricColumnsPerTable(cfg *contract.Config, withCountry bool) int {
	available := GetTerminalWidth(cfg) - labelColumnWidth - tableChromeWidth
	if withCountry {
		available -= countryColumnWidth
	}
	return max(1, available/metricColumnWidth)
}
