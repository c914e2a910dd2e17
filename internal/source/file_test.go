package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/kpiroll/internal/parquet"
	"github.com/huangsam/kpiroll/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewFileSource(t *testing.T) {
	for _, name := range []string{"a.json", "b.CSV", "c.parquet"} {
		_, err := NewFileSource(name)
		assert.NoError(t, err, name)
	}
	_, err := NewFileSource("data.xlsx")
	assert.Error(t, err)
}

func TestFileSourceJSON(t *testing.T) {
	path := writeTempFile(t, "records.json", `[
  {"date": "2024-05-01", "country": "IN", "headcount": 210, "nrr": null},
  {"date": "2024-04", "headcount": 305, "label": "Apr'24"}
]`)
	src, err := NewFileSource(path)
	require.NoError(t, err)
	assert.Equal(t, "file:records.json", src.Name())

	records, err := src.Records(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "IN", records[0].Country)
	assert.Contains(t, records[0].Values, "nrr")
	assert.Nil(t, records[0].Values["nrr"])
	assert.True(t, records[1].Date.Equal(month(2024, time.April)))

	india, err := src.Records(context.Background(), "in")
	require.NoError(t, err)
	assert.Len(t, india, 1)
}

func TestFileSourceCSV(t *testing.T) {
	path := writeTempFile(t, "records.csv", strings.Join([]string{
		"date,country,live_arr,nrr",
		"2024-06-01,,\"1,200\",101",
		"2024-07-01,,1300,",
		",,5,5",
	}, "\n"))
	src, err := NewFileSource(path)
	require.NoError(t, err)

	records, err := src.Records(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 1200.0, *records[0].Values["live_arr"])
	assert.Contains(t, records[1].Values, "nrr")
	assert.Nil(t, records[1].Values["nrr"])
	assert.True(t, records[2].Date.IsZero(), "empty date leaves the record undated")

	snap, err := src.Snapshot(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1300.0, *snap.Values["live_arr"])
	assert.InDelta(t, 8.33, *snap.Values["live_arr_change"], 1e-9)
}

func TestReadCSVRecordsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing date column", "month,nrr\n2024-04,1\n"},
		{"bad date", "date,nrr\nApril,1\n"},
		{"bad number", "date,nrr\n2024-04-01,lots\n"},
		{"ragged row", "date,nrr\n2024-04-01,1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSVRecords(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}

	records, err := ReadCSVRecords(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadCSVRecordsRejectsNonFinite(t *testing.T) {
	for _, cell := range []string{"NaN", "Inf", "-Inf", "+inf"} {
		t.Run(cell, func(t *testing.T) {
			input := "date,country,live_mrr\n2024-04-01,IN,845\n2024-05-01,IN," + cell + "\n"
			_, err := ReadCSVRecords(strings.NewReader(input))
			require.ErrorIs(t, err, schema.ErrNonFiniteValue)
			assert.Contains(t, err.Error(), "CSV line 3")
			assert.Contains(t, err.Error(), "live_mrr")
		})
	}
}

func TestReadCSVRecordsUppercasesCountry(t *testing.T) {
	records, err := ReadCSVRecords(strings.NewReader("date,region,headcount\n2024-04-01, in ,10\n2024-05-01,IN,20\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "IN", records[0].Country)
	assert.Equal(t, "IN", records[1].Country)
}

func TestFileSourceParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.parquet")
	rows := parquet.MetricRowsFromRecords([]schema.MetricRecord{
		{Date: month(2024, time.April), Values: map[string]*float64{"headcount": schema.Float(300), "nrr": nil}},
		{Date: month(2024, time.May), Values: map[string]*float64{"headcount": schema.Float(305)}},
	})
	require.NoError(t, parquet.WriteMetricRowsParquet(rows, path))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	records, err := src.Records(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 305.0, *records[1].Values["headcount"])
	assert.Contains(t, records[0].Values, "nrr")
}

func TestFileSourceMissingFile(t *testing.T) {
	src, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	_, err = src.Records(context.Background(), "")
	assert.Error(t, err)
}
