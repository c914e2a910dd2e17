package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/samber/lo"
)

// PrintTrendsResults outputs the trends result, dispatching based on the output format configured.
func PrintTrendsResults(result schema.TrendsResult, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		if err := printParquetResultsForTrends(result, cfg); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		return nil
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteTrendsResults(w, result, cfg, duration)
	}, fmt.Sprintf("Wrote %s trends results", cfg.Output))
}

// WriteTrendsResults writes the trends result to w in the configured text format.
func WriteTrendsResults(w io.Writer, result schema.TrendsResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtMoney := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, result); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVResultsForTrends(w, result, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return fmt.Errorf("parquet output needs a file, not a stream")
	default:
		if err := writeTrendsTable(w, result, cfg, fmtFloat, fmtMoney, duration); err != nil {
			return fmt.Errorf("error writing trends table output: %w", err)
		}
	}
	return nil
}

// writeCSVResultsForTrends writes one wide row per bucket with a column per metric.
func writeCSVResultsForTrends(w io.Writer, result schema.TrendsResult, fmtFloat func(float64) string) error {
	header := append([]string{
		"label",
		"country",
		"period_start",
		"period_end",
		"partial",
		"months",
		"currency",
	}, result.Metrics...)

	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, r := range result.Records {
			row := []string{
				r.Label,
				r.Country,
				r.Period.Start.Format(schema.DateFormat),
				r.Period.End.Format(schema.DateFormat),
				strconv.FormatBool(r.Partial),
				strconv.Itoa(r.Months),
				string(r.Currency),
			}
			for _, metric := range result.Metrics {
				row = append(row, formatCSVValue(r.Values[metric], fmtFloat))
			}
			if err := csvWriter.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeTrendsTable renders the records as one or more tables.
// Metric columns are split into chunks so each table fits the terminal width.
func writeTrendsTable(
	w io.Writer,
	result schema.TrendsResult,
	cfg *contract.Config,
	fmtFloat, fmtMoney func(float64) string,
	duration time.Duration,
) error {
	fmt.Fprintf(w, "📈 %s trends in %s from %s\n", titleCase(string(result.Granularity)), result.Currency, result.Source)

	if len(result.Records) == 0 {
		fmt.Fprintln(w, "No records found for the requested filter.")
		fmt.Fprintf(w, "Trends computed in %v.\n", duration)
		return nil
	}

	withCountry := slices.ContainsFunc(result.Records, func(r schema.AggregatedRecord) bool {
		return r.Country != ""
	})
	monetary := fieldSet(cfg.MonetaryFields)
	chunks := lo.Chunk(result.Metrics, GetMetricColumnsPerTable(cfg, withCountry))
	if len(chunks) == 0 {
		chunks = [][]string{nil}
	}

	for _, metrics := range chunks {
		table := tablewriter.NewWriter(w)

		// 1. Define Headers
		headers := []string{"Period"}
		if withCountry {
			headers = append(headers, "Country")
		}
		headers = append(headers, metrics...)
		table.Header(headers)

		// 2. Configure Alignment
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})

		// 3. Prepare Data Rows
		var data [][]string
		for _, r := range result.Records {
			label := r.Label
			if r.Partial {
				label += " " + contract.GetOpenLabel(cfg.UseColors)
			}
			row := []string{label}
			if withCountry {
				row = append(row, countryLabel(r.Country))
			}
			for _, metric := range metrics {
				format := fmtFloat
				if monetary[metric] {
					format = fmtMoney
				}
				row = append(row, formatNullable(r.Values[metric], format))
			}
			data = append(data, row)
		}

		// 4. Render the table
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "Trends computed in %v: %d buckets, %d metrics.\n", duration, len(result.Records), len(result.Metrics))
	return nil
}

// titleCase upper-cases the first letter of an ASCII word.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
