package parquet

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/kpiroll/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func sampleTrends() schema.TrendsResult {
	return schema.TrendsResult{
		Granularity: schema.Quarterly,
		Currency:    schema.USD,
		Metrics:     []string{"live_arr", "nrr"},
		Records: []schema.AggregatedRecord{
			{
				Label:    "Jun'24",
				Period:   schema.Period{Granularity: schema.Quarterly, FiscalYear: 2025, Quarter: 1, Start: month(2024, 4), End: month(2024, 7)},
				Months:   3,
				Currency: schema.USD,
				Values:   map[string]*float64{"live_arr": schema.Float(9144000), "nrr": schema.Float(101)},
			},
			{
				Label:    "Aug'24",
				Period:   schema.Period{Granularity: schema.Quarterly, FiscalYear: 2025, Quarter: 2, Start: month(2024, 7), End: month(2024, 10)},
				Partial:  true,
				Months:   2,
				Currency: schema.USD,
				Values:   map[string]*float64{"live_arr": nil, "nrr": schema.Float(99.5)},
			},
		},
	}
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		schema  *parquet.Schema
		columns []string
	}{
		{"trend rows", parquet.SchemaOf(new(TrendRow)), []string{
			"label", "country", "granularity", "period_start", "period_end", "partial", "metric", "value", "currency",
		}},
		{"metric rows", parquet.SchemaOf(new(MetricRow)), []string{"date", "country", "metric", "value"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.schema)
			for _, colName := range tt.columns {
				col, ok := tt.schema.Lookup(colName)
				require.True(t, ok, "Column %s should exist in schema", colName)
				require.NotNil(t, col, "Column %s should not be nil", colName)
			}
		})
	}
}

func TestTrendRowsFromResult(t *testing.T) {
	rows := TrendRowsFromResult(sampleTrends())
	require.Len(t, rows, 4)

	assert.Equal(t, "Jun'24", rows[0].Label)
	assert.Equal(t, "live_arr", rows[0].Metric)
	assert.Equal(t, 9144000.0, *rows[0].Value)
	assert.Equal(t, "quarterly", rows[0].Granularity)
	assert.Equal(t, "USD", rows[0].Currency)

	assert.Equal(t, "Aug'24", rows[2].Label)
	assert.True(t, rows[2].Partial)
	assert.Nil(t, rows[2].Value)
	assert.Equal(t, "nrr", rows[3].Metric)
}

func TestWriteTrendRowsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "trends.parquet")
	data := TrendRowsFromResult(sampleTrends())

	require.NoError(t, WriteTrendRowsParquet(data, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Output file should not be empty")

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	reader := parquet.NewGenericReader[TrendRow](file)
	defer reader.Close()

	readData := make([]TrendRow, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err, "Should be able to read data")
	}
	assert.Equal(t, len(data), n, "Should read all records")

	for i := range data {
		assert.Equal(t, data[i].Label, readData[i].Label)
		assert.Equal(t, data[i].Metric, readData[i].Metric)
		assert.Equal(t, data[i].Partial, readData[i].Partial)
		assert.True(t, data[i].PeriodStart.Equal(readData[i].PeriodStart), "PeriodStart should match")
		if data[i].Value == nil {
			assert.Nil(t, readData[i].Value, "Value should be nil")
		} else {
			require.NotNil(t, readData[i].Value, "Value should not be nil")
			assert.InDelta(t, *data[i].Value, *readData[i].Value, 1e-9)
		}
	}
}

func TestMetricRowsRoundTrip(t *testing.T) {
	records := []schema.MetricRecord{
		{Date: month(2024, 5), Country: "IN", Values: map[string]*float64{"headcount": schema.Float(210), "nrr": nil}},
		{Date: month(2024, 4), Values: map[string]*float64{"headcount": schema.Float(305)}},
		{Values: map[string]*float64{"headcount": schema.Float(1)}},
	}
	rows := MetricRowsFromRecords(records)
	require.Len(t, rows, 3, "undated records are skipped")
	assert.Equal(t, "", rows[0].Country)

	path := filepath.Join(t.TempDir(), "metrics.parquet")
	require.NoError(t, WriteMetricRowsParquet(rows, path))

	readRows, err := ReadMetricRowsParquet(path)
	require.NoError(t, err)
	require.Len(t, readRows, 3)

	back, err := RecordsFromMetricRows(readRows)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, "", back[0].Country)
	assert.True(t, back[0].Date.Equal(month(2024, 4)))
	assert.Equal(t, 305.0, *back[0].Values["headcount"])
	assert.Equal(t, "IN", back[1].Country)
	assert.Contains(t, back[1].Values, "nrr")
	assert.Nil(t, back[1].Values["nrr"])
}

func TestRecordsFromMetricRowsNormalizes(t *testing.T) {
	t.Run("lowercase countries merge", func(t *testing.T) {
		records, err := RecordsFromMetricRows([]MetricRow{
			{Date: month(2024, 4), Country: "in", Metric: "headcount", Value: schema.Float(10)},
			{Date: month(2024, 4), Country: "IN", Metric: "nrr", Value: schema.Float(98)},
		})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "IN", records[0].Country)
		assert.Len(t, records[0].Values, 2)
	})

	t.Run("non-finite value", func(t *testing.T) {
		_, err := RecordsFromMetricRows([]MetricRow{
			{Date: month(2024, 4), Metric: "headcount", Value: schema.Float(10)},
			{Date: month(2024, 5), Metric: "live_mrr", Value: schema.Float(math.Inf(1))},
		})
		require.ErrorIs(t, err, schema.ErrNonFiniteValue)
		assert.Contains(t, err.Error(), "parquet row 2")
	})
}

func TestWriteTrendRowsParquetEmpty(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteTrendRowsParquet([]TrendRow{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Parquet file should have metadata even with no rows")
}

func TestReadMetricRowsParquetMissingFile(t *testing.T) {
	_, err := ReadMetricRowsParquet(filepath.Join(t.TempDir(), "nope.parquet"))
	assert.Error(t, err)
}

func TestWriteTrendRowsParquetInvalidPath(t *testing.T) {
	err := WriteTrendRowsParquet(nil, filepath.Join(t.TempDir(), "missing", "dir", "out.parquet"))
	assert.Error(t, err)
}
