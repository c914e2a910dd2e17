// Package parquet provides data structures and functions for exchanging kpiroll
// data with Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/huangsam/kpiroll/schema"
	"github.com/parquet-go/parquet-go"
)

// TrendRow is one aggregated metric value of one bucket, in long format.
// A trends result with N buckets and M metrics becomes N*M rows.
type TrendRow struct {
	// Label is the display label of the bucket, e.g. Jun'24 or FY25
	Label string `parquet:"label,snappy"`

	// Country is the partition key, empty for consolidated records
	Country string `parquet:"country,snappy"`

	// Granularity is monthly, quarterly or annual
	Granularity string `parquet:"granularity,snappy"`

	// PeriodStart is the first day of the bucket (inclusive)
	PeriodStart time.Time `parquet:"period_start,snappy"`

	// PeriodEnd is the first day after the bucket (exclusive)
	PeriodEnd time.Time `parquet:"period_end,snappy"`

	// Partial marks a trailing period that is still open
	Partial bool `parquet:"partial,snappy"`

	// Metric is the metric name
	Metric string `parquet:"metric,snappy"`

	// Value is the aggregated value in Currency (nullable)
	Value *float64 `parquet:"value,optional,snappy"`

	// Currency is the display currency of the value
	Currency string `parquet:"currency,snappy"`
}

// MetricRow is one monthly metric observation, in long format.
// This is the layout accepted by the file source.
type MetricRow struct {
	// Date is the first day of the month
	Date time.Time `parquet:"date,snappy"`

	// Country is the partition key, empty for consolidated records
	Country string `parquet:"country,snappy"`

	// Metric is the metric name
	Metric string `parquet:"metric,snappy"`

	// Value is the raw value in the base currency (nullable)
	Value *float64 `parquet:"value,optional,snappy"`
}

// TrendRowsFromResult flattens a trends result into rows ordered like its records,
// with metrics in the order the result declares them.
func TrendRowsFromResult(result schema.TrendsResult) []TrendRow {
	rows := make([]TrendRow, 0, len(result.Records)*len(result.Metrics))
	for _, r := range result.Records {
		for _, metric := range result.Metrics {
			row := TrendRow{
				Label:       r.Label,
				Country:     r.Country,
				Granularity: string(r.Period.Granularity),
				PeriodStart: r.Period.Start,
				PeriodEnd:   r.Period.End,
				Partial:     r.Partial,
				Metric:      metric,
				Currency:    string(r.Currency),
			}
			if v := r.Values[metric]; v != nil {
				row.Value = schema.Float(*v)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// MetricRowsFromRecords flattens records into rows ordered by country, date and metric.
func MetricRowsFromRecords(records []schema.MetricRecord) []MetricRow {
	flat := schema.FlattenRecords(records)
	rows := make([]MetricRow, 0, len(flat))
	for _, f := range flat {
		rows = append(rows, MetricRow{Date: f.Period, Country: f.Country, Metric: f.MetricName, Value: f.Value})
	}
	return rows
}

// RecordsFromMetricRows pivots long rows back into one record per (country, month).
// Countries are uppercased and a NaN or infinite value fails with the offending row number.
func RecordsFromMetricRows(rows []MetricRow) ([]schema.MetricRecord, error) {
	flat := make([]schema.MetricValueRow, 0, len(rows))
	for i, r := range rows {
		if r.Value != nil && !schema.IsFinite(*r.Value) {
			return nil, fmt.Errorf("parquet row %d: metric %s is %v: %w", i+1, r.Metric, *r.Value, schema.ErrNonFiniteValue)
		}
		flat = append(flat, schema.MetricValueRow{
			Country:    schema.NormalizeCountry(r.Country),
			Period:     r.Date.UTC(),
			MetricName: r.Metric,
			Value:      r.Value,
		})
	}
	return schema.PivotRows(flat), nil
}

// WriteTrendRowsParquet writes a slice of TrendRow structs to a Parquet file.
func WriteTrendRowsParquet(data []TrendRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteMetricRowsParquet writes a slice of MetricRow structs to a Parquet file.
func WriteMetricRowsParquet(data []MetricRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ReadMetricRowsParquet reads every MetricRow from a Parquet file.
func ReadMetricRowsParquet(inputPath string) ([]MetricRow, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[MetricRow](file)
	defer func() { _ = reader.Close() }()

	rows := make([]MetricRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read data from parquet file: %w", err)
	}
	return slices.Clip(rows[:n]), nil
}

func writeParquet[T any](data []T, outputPath string) error {
	// Create the output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}
