package source

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/huangsam/kpiroll/core/fx"
	"github.com/huangsam/kpiroll/schema"
	"github.com/samber/lo"
)

// targetAliases maps a card metric to the stored metric that holds its target
// when no <metric>_target key exists.
var targetAliases = map[string]string{
	"live_arr": "target_arr",
}

// SnapshotFromRecords derives KPI card values from the latest two months of records.
// Each metric of the latest month gets a <metric>_change percentage against the prior month,
// and a <metric>_target when the records carry one. An empty country selects consolidated records.
func SnapshotFromRecords(records []schema.MetricRecord, country string) (schema.KPISnapshot, error) {
	if strings.TrimSpace(country) == "" {
		country = schema.GlobalCountry
	}
	selected := lo.Filter(schema.FilterCountry(records, country), func(r schema.MetricRecord, _ int) bool {
		return !r.Date.IsZero()
	})
	if len(selected) == 0 {
		return schema.KPISnapshot{}, fmt.Errorf("%w: nothing to derive a %s snapshot from", ErrNoRecords, country)
	}

	months := mergeByMonth(selected)
	latest := months[len(months)-1]
	var prior map[string]*float64
	if len(months) > 1 {
		prior = months[len(months)-2].Values
	}

	companions := make(map[string]bool)
	for key := range latest.Values {
		if base, ok := strings.CutSuffix(key, fx.TargetSuffix); ok {
			if _, present := latest.Values[base]; present {
				companions[key] = true
			}
		}
	}
	for metric, alias := range targetAliases {
		if _, present := latest.Values[metric]; present {
			companions[alias] = true
		}
	}

	values := make(map[string]*float64)
	for key, v := range latest.Values {
		if companions[key] {
			continue
		}
		values[key] = copyValue(v)
		values[key+fx.ChangeSuffix] = percentChange(prior[key], v)
		if target, ok := latest.Values[key+fx.TargetSuffix]; ok {
			values[key+fx.TargetSuffix] = copyValue(target)
		} else if alias, ok := targetAliases[key]; ok {
			if target, ok := latest.Values[alias]; ok {
				values[key+fx.TargetSuffix] = copyValue(target)
			}
		}
	}

	return schema.KPISnapshot{Country: latest.Country, AsOf: latest.Date, Values: values}, nil
}

// mergeByMonth collapses records of the same month, later records winning per key,
// and returns them in chronological order.
func mergeByMonth(records []schema.MetricRecord) []schema.MetricRecord {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b schema.MetricRecord) int {
		return a.Date.Compare(b.Date)
	})
	var out []schema.MetricRecord
	for _, r := range sorted {
		month := schema.MonthStart(r.Date)
		if n := len(out); n > 0 && out[n-1].Date.Equal(month) {
			out[n-1].Values = schema.MergeValues(out[n-1].Values, r.Values)
			continue
		}
		merged := r.Clone()
		merged.Date = month
		out = append(out, merged)
	}
	return out
}

// percentChange returns the change from prev to cur in percent, or nil when it is undefined.
func percentChange(prev, cur *float64) *float64 {
	if prev == nil || cur == nil || *prev == 0 {
		return nil
	}
	change := (*cur - *prev) / math.Abs(*prev) * 100
	return schema.Float(math.Round(change*100) / 100)
}

func copyValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return schema.Float(*v)
}
