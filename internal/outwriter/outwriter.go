// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"os"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/internal/parquet"
	"github.com/huangsam/kpiroll/schema"
	"github.com/samber/lo"
)

// errParquetUnsupported is returned by views that have no long-format export.
func errParquetUnsupported(view string) error {
	return fmt.Errorf("parquet output is only supported for trends, not %s", view)
}

// printParquetResultsForTrends writes the trends result as long-format Parquet rows.
func printParquetResultsForTrends(result schema.TrendsResult, cfg *contract.Config) error {
	rows := parquet.TrendRowsFromResult(result)
	if err := parquet.WriteTrendRowsParquet(rows, cfg.OutputFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote %d Parquet trend rows to %s\n", len(rows), cfg.OutputFile)
	return nil
}

// fieldSet turns a field list into a lookup set.
func fieldSet(fields []string) map[string]bool {
	return lo.SliceToMap(fields, func(f string) (string, bool) { return f, true })
}

// countryLabel renders the partition key for display.
func countryLabel(country string) string {
	if country == "" {
		return schema.GlobalCountry
	}
	return country
}
