package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) contract.MetricStore {
	t.Helper()
	s, err := NewMetricStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "kpis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMetricStore_NoneBackend(t *testing.T) {
	s, err := NewMetricStore(schema.NoneBackend, "")
	require.NoError(t, err)

	batchID, n, err := s.SaveRecords(context.Background(), "test", []schema.MetricRecord{
		{Date: month(2025, time.June), Values: map[string]*float64{"nrr": schema.Float(1)}},
	})
	assert.NoError(t, err)
	assert.Empty(t, batchID)
	assert.Zero(t, n)

	rows, err := s.ListRows(context.Background(), "")
	assert.NoError(t, err)
	assert.Empty(t, rows)

	status, err := s.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)
	assert.NoError(t, s.Close())
}

func TestMetricStore_UnsupportedBackend(t *testing.T) {
	_, err := NewMetricStore("oracle", "")
	assert.Error(t, err)
}

func TestMetricStore_SaveAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	records := []schema.MetricRecord{
		{Date: month(2025, time.June), Values: map[string]*float64{"live_mrr": schema.Float(64390521), "nrr": nil}},
		{Date: month(2025, time.May), Values: map[string]*float64{"live_mrr": schema.Float(61000000)}},
		{Date: month(2025, time.June), Country: "in", Values: map[string]*float64{"headcount": schema.Float(289)}},
		{Values: map[string]*float64{"headcount": schema.Float(1)}},
	}
	batchID, n, err := s.SaveRecords(ctx, "file:kpis.csv", records)
	require.NoError(t, err)
	assert.NotEmpty(t, batchID)
	assert.Equal(t, 4, n, "undated records are skipped")

	rows, err := s.ListRows(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "", rows[0].Country)
	assert.True(t, rows[0].Period.Equal(month(2025, time.May)))
	assert.Equal(t, "live_mrr", rows[1].MetricName)
	assert.Equal(t, 64390521.0, *rows[1].Value)
	assert.Equal(t, "nrr", rows[2].MetricName)
	assert.Nil(t, rows[2].Value, "nil values round-trip as NULL")
	assert.Equal(t, "IN", rows[3].Country, "countries are stored uppercased")
	assert.Equal(t, batchID, rows[3].BatchID)

	india, err := s.ListRows(ctx, "in")
	require.NoError(t, err)
	require.Len(t, india, 1)
	assert.Equal(t, 289.0, *india[0].Value)
}

func TestMetricStore_RejectsNonFinite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, _, err := s.SaveRecords(ctx, "file:kpis.csv", []schema.MetricRecord{
		{Date: month(2025, time.May), Values: map[string]*float64{"live_mrr": schema.Float(61000000)}},
		{Date: month(2025, time.June), Values: map[string]*float64{"live_mrr": schema.Float(math.NaN())}},
	})
	require.ErrorIs(t, err, schema.ErrNonFiniteValue)
	assert.Contains(t, err.Error(), "live_mrr")

	rows, err := s.ListRows(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, rows, "nothing from a rejected import is stored")

	status, err := s.GetStatus()
	require.NoError(t, err)
	assert.Zero(t, status.TotalBatches)
}

func TestMetricStore_Upsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, _, err := s.SaveRecords(ctx, "first", []schema.MetricRecord{
		{Date: month(2025, time.June), Values: map[string]*float64{"nrr": schema.Float(98), "headcount": schema.Float(300)}},
	})
	require.NoError(t, err)
	second, _, err := s.SaveRecords(ctx, "second", []schema.MetricRecord{
		{Date: month(2025, time.June), Values: map[string]*float64{"nrr": schema.Float(101)}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	rows, err := s.ListRows(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 300.0, *rows[0].Value)
	assert.Equal(t, first, rows[0].BatchID)
	assert.Equal(t, 101.0, *rows[1].Value)
	assert.Equal(t, second, rows[1].BatchID)

	status, err := s.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalValues)
	assert.Equal(t, 2, status.TotalBatches)
}

func TestMetricStore_GetStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	status, err := s.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalValues)
	assert.True(t, status.LastImportTime.IsZero())

	before := time.Now().Add(-time.Second)
	_, _, err = s.SaveRecords(ctx, "test", []schema.MetricRecord{
		{Date: month(2024, time.April), Values: map[string]*float64{"nrr": schema.Float(87)}},
		{Date: month(2025, time.August), Country: "SEA", Values: map[string]*float64{"nrr": schema.Float(90)}},
	})
	require.NoError(t, err)

	status, err = s.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalValues)
	assert.Equal(t, 1, status.TotalBatches)
	assert.Equal(t, []string{"", "SEA"}, status.Countries)
	assert.True(t, status.OldestPeriod.Equal(month(2024, time.April)))
	assert.True(t, status.LatestPeriod.Equal(month(2025, time.August)))
	assert.False(t, status.LastImportTime.Before(before.Truncate(time.Second)))
	assert.Positive(t, status.TableSizeBytes)
}

func TestMetricStore_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.SaveRecords(ctx, "test", []schema.MetricRecord{
		{Date: month(2025, time.June), Values: map[string]*float64{"nrr": schema.Float(1)}},
	})
	assert.Error(t, err)

	rows, err := s.ListRows(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
