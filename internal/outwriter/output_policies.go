package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
	"github.com/olekukonko/tablewriter"
)

// PrintPolicies displays the effective aggregation policy table.
// This is a static display that does not load any records.
func PrintPolicies(listing schema.PolicyListing, cfg *contract.Config) error {
	if cfg.Output == schema.ParquetOut {
		return errParquetUnsupported("policies")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WritePolicies(w, listing, cfg)
	}, fmt.Sprintf("Wrote %s policies", cfg.Output))
}

// WritePolicies writes the policy table to w in the configured text format.
func WritePolicies(w io.Writer, listing schema.PolicyListing, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, listing)
	case schema.CSVOut:
		header := []string{"metric", "policy", "monetary", "default"}
		return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
			for _, e := range listing.Entries {
				row := []string{e.Metric, string(e.Policy), strconv.FormatBool(e.Monetary), strconv.FormatBool(e.IsDefault)}
				if err := csvWriter.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
	default:
		return writePoliciesText(w, listing, cfg)
	}
}

func writePoliciesText(w io.Writer, listing schema.PolicyListing, cfg *contract.Config) error {
	fmt.Fprintln(w, "🧮 Aggregation policies")
	fmt.Fprintln(w, "last = latest month in the bucket, average = mean of present values, sum = total of present values")

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Policy", "Currency", "Source"})

	var data [][]string
	for _, e := range listing.Entries {
		currency := ""
		if e.Monetary {
			currency = "converted"
		}
		source := "default"
		if !e.IsDefault {
			source = "override"
			if cfg.UseColors {
				source = contract.OpenColor.Sprint(source)
			}
		}
		data = append(data, []string{e.Metric, string(e.Policy), currency, source})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if listing.Fallback == schema.NoPolicy {
		fmt.Fprintln(w, "Unlisted metrics are rejected (no fallback policy).")
	} else {
		fmt.Fprintf(w, "Unlisted metrics use the %s policy.\n", listing.Fallback)
	}
	return nil
}
