package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/internal/parquet"
	"github.com/huangsam/kpiroll/schema"
)

// ExportRows writes every stored metric value to a long-format Parquet file.
// The file can be read back with --source file.
func ExportRows(ctx context.Context, w io.Writer, metricStore contract.MetricStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if metricStore == nil {
		return errors.New("metric store is not initialized")
	}

	status, err := metricStore.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TotalValues == 0 {
		return errors.New("no stored values found to export")
	}

	stored, err := metricStore.ListRows(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list stored rows: %w", err)
	}

	rows := parquet.MetricRowsFromRecords(schema.PivotRows(stored))
	if err := parquet.WriteMetricRowsParquet(rows, outputFile); err != nil {
		return fmt.Errorf("failed to write metric rows: %w", err)
	}

	_, _ = fmt.Fprintf(w, "Exported %d values from %s backend to: %s\n", len(rows), status.Backend, outputFile)
	return nil
}
