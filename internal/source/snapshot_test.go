package source

import (
	"testing"
	"time"

	"github.com/huangsam/kpiroll/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotFromRecords(t *testing.T) {
	records := []schema.MetricRecord{
		{Date: month(2025, time.July), Values: map[string]*float64{
			"live_arr":         schema.Float(110),
			"target_arr":       schema.Float(130),
			"nrr":              schema.Float(100),
			"headcount":        schema.Float(300),
			"headcount_target": schema.Float(320),
			"mau":              nil,
		}},
		{Date: month(2025, time.June), Values: map[string]*float64{
			"live_arr":  schema.Float(100),
			"nrr":       nil,
			"headcount": schema.Float(0),
			"mau":       schema.Float(10),
		}},
		{Date: month(2025, time.July), Country: "IN", Values: map[string]*float64{"live_arr": schema.Float(1)}},
	}

	snap, err := SnapshotFromRecords(records, "")
	require.NoError(t, err)
	assert.True(t, snap.AsOf.Equal(month(2025, time.July)))
	assert.Equal(t, "", snap.Country)

	v := snap.Values
	assert.Equal(t, 110.0, *v["live_arr"])
	assert.Equal(t, 10.0, *v["live_arr_change"])
	assert.Equal(t, 130.0, *v["live_arr_target"], "target_arr is the live_arr target")
	assert.NotContains(t, v, "target_arr")

	assert.Equal(t, 320.0, *v["headcount_target"])
	assert.Nil(t, v["headcount_change"], "no change from a zero base")
	assert.NotContains(t, v, "headcount_target_change")

	assert.Contains(t, v, "nrr_change")
	assert.Nil(t, v["nrr_change"])
	assert.NotContains(t, v, "nrr_target")

	assert.Contains(t, v, "mau")
	assert.Nil(t, v["mau"])
}

func TestSnapshotFromRecordsCountry(t *testing.T) {
	records := []schema.MetricRecord{
		{Date: month(2025, time.June), Country: "SEA", Values: map[string]*float64{"nrr": schema.Float(80)}},
		{Date: month(2025, time.July), Country: "SEA", Values: map[string]*float64{"nrr": schema.Float(100)}},
		{Date: month(2025, time.July), Country: "SEA", Values: map[string]*float64{"headcount": schema.Float(16)}},
	}

	snap, err := SnapshotFromRecords(records, "sea")
	require.NoError(t, err)
	assert.Equal(t, "SEA", snap.Country)
	assert.Equal(t, 25.0, *snap.Values["nrr_change"])
	assert.Equal(t, 16.0, *snap.Values["headcount"], "records of the same month are merged")
}

func TestSnapshotFromRecordsEmpty(t *testing.T) {
	_, err := SnapshotFromRecords(nil, "")
	assert.ErrorIs(t, err, ErrNoRecords)

	undated := []schema.MetricRecord{{Values: map[string]*float64{"nrr": schema.Float(1)}}}
	_, err = SnapshotFromRecords(undated, "")
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestPercentChange(t *testing.T) {
	assert.Nil(t, percentChange(nil, schema.Float(1)))
	assert.Nil(t, percentChange(schema.Float(1), nil))
	assert.Nil(t, percentChange(schema.Float(0), schema.Float(1)))
	assert.Equal(t, -50.0, *percentChange(schema.Float(10), schema.Float(5)))
	assert.Equal(t, 50.0, *percentChange(schema.Float(-10), schema.Float(-5)))
	assert.Equal(t, 33.33, *percentChange(schema.Float(3), schema.Float(4)))
}
