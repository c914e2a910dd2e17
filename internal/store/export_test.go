package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/kpiroll/internal/parquet"
	"github.com/huangsam/kpiroll/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	out := filepath.Join(t.TempDir(), "values.parquet")
	var buf bytes.Buffer

	assert.Error(t, ExportRows(ctx, &buf, s, ""))
	assert.Error(t, ExportRows(ctx, &buf, nil, out))
	assert.ErrorContains(t, ExportRows(ctx, &buf, s, out), "no stored values")

	_, _, err := s.SaveRecords(ctx, "test", []schema.MetricRecord{
		{Date: month(2025, time.June), Values: map[string]*float64{"nrr": schema.Float(101), "mau": nil}},
		{Date: month(2025, time.June), Country: "IN", Values: map[string]*float64{"nrr": schema.Float(95)}},
	})
	require.NoError(t, err)

	require.NoError(t, ExportRows(ctx, &buf, s, out))
	assert.Contains(t, buf.String(), "Exported 3 values from sqlite backend")

	rows, err := parquet.ReadMetricRowsParquet(out)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	records, err := parquet.RecordsFromMetricRows(rows)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Contains(t, records[0].Values, "mau")
	assert.Nil(t, records[0].Values["mau"])
}
