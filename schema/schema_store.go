package schema

import (
	"cmp"
	"slices"
	"time"
)

// FlattenRecords turns wide records into long rows, one per metric key.
// Records without a date are skipped since the store keys rows by period.
// Output is ordered by country, period and metric name.
func FlattenRecords(records []MetricRecord) []MetricValueRow {
	var rows []MetricValueRow
	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		period := MonthStart(r.Date)
		for name, v := range r.Values {
			row := MetricValueRow{Country: r.Country, Period: period, MetricName: name}
			if v != nil {
				row.Value = Float(*v)
			}
			rows = append(rows, row)
		}
	}
	slices.SortFunc(rows, compareRows)
	return rows
}

// PivotRows groups long rows back into one record per (country, month).
// A later row for the same key overwrites an earlier one.
// Output is ordered by country then period.
func PivotRows(rows []MetricValueRow) []MetricRecord {
	type key struct {
		country string
		period  time.Time
	}
	index := make(map[key]int)
	var records []MetricRecord
	for _, row := range rows {
		k := key{country: row.Country, period: MonthStart(row.Period)}
		i, ok := index[k]
		if !ok {
			i = len(records)
			index[k] = i
			records = append(records, MetricRecord{
				Date:    k.period,
				Country: k.country,
				Values:  make(map[string]*float64),
			})
		}
		var v *float64
		if row.Value != nil {
			v = Float(*row.Value)
		}
		records[i].Values[row.MetricName] = v
	}
	slices.SortFunc(records, func(a, b MetricRecord) int {
		if c := cmp.Compare(a.Country, b.Country); c != 0 {
			return c
		}
		return a.Date.Compare(b.Date)
	})
	return records
}

func compareRows(a, b MetricValueRow) int {
	if c := cmp.Compare(a.Country, b.Country); c != 0 {
		return c
	}
	if c := a.Period.Compare(b.Period); c != 0 {
		return c
	}
	return cmp.Compare(a.MetricName, b.MetricName)
}
