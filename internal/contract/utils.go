package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// MissingValue is rendered wherever a metric value is null.
const MissingValue = "—"

// OpenMarker flags a period that is still open.
const OpenMarker = "(open)"

// Color variables for console output.
var (
	OpenColor     = color.New(color.FgYellow, color.Bold) // OpenColor marks partial periods.
	MissingColor  = color.New(color.FgHiBlack)            // MissingColor dims null values.
	PositiveColor = color.New(color.FgGreen)              // PositiveColor shows growth.
	NegativeColor = color.New(color.FgRed)                // NegativeColor shows decline.
)

// GetOpenLabel returns the open marker, colored for console output when useColors is set.
func GetOpenLabel(useColors bool) string {
	if !useColors {
		return OpenMarker
	}
	return OpenColor.Sprint(OpenMarker)
}

// GetChangeLabel formats a percentage change with an explicit sign.
func GetChangeLabel(change *float64, useColors bool) string {
	if change == nil {
		return MissingValue
	}
	text := fmt.Sprintf("%+.1f%%", *change)
	if !useColors {
		return text
	}
	switch {
	case *change > 0:
		return PositiveColor.Sprint(text)
	case *change < 0:
		return NegativeColor.Sprint(text)
	default:
		return text
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It returns os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// GetStoreDBFilePath returns the path to the SQLite DB file for the metric store.
func GetStoreDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".kpiroll.db"
	}
	return filepath.Join(homeDir, ".kpiroll.db")
}

// TruncateLabel truncates a label to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and at least one character.
func TruncateLabel(label string, maxWidth int) string {
	runes := []rune(label)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return label
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
