// Package agg reduces the records of each bucket to a single aggregated record.
package agg

import (
	"maps"
	"slices"

	"github.com/huangsam/kpiroll/schema"
	"github.com/samber/lo"
)

// Aggregator applies a policy table to buckets.
type Aggregator struct {
	Policies PolicyTable
}

// New returns an aggregator backed by policies.
func New(policies PolicyTable) *Aggregator {
	return &Aggregator{Policies: policies}
}

// Aggregate reduces one bucket to one record holding every requested metric as a key.
// The bucket records may be in any order.
func (a *Aggregator) Aggregate(bucket schema.Bucket, metrics []string) (schema.AggregatedRecord, error) {
	// 1. Resolve policies before touching any values
	policies, err := a.Policies.Resolve(metrics)
	if err != nil {
		return schema.AggregatedRecord{}, err
	}

	out := schema.AggregatedRecord{
		Label:    bucket.Label,
		Period:   bucket.Period,
		Partial:  bucket.Partial,
		Months:   len(bucket.Records),
		Currency: schema.BaseCurrency,
		Values:   make(map[string]*float64, len(metrics)),
	}
	if len(bucket.Records) > 0 {
		out.Country = bucket.Records[0].Country
	}

	// 2. Reduce each metric independently
	latest := latestRecord(bucket.Records)
	for _, m := range metrics {
		switch policies[m] {
		case schema.LastPolicy:
			out.Values[m] = lastValue(latest, m)
		case schema.AveragePolicy:
			out.Values[m] = averageValue(bucket.Records, m)
		case schema.SumPolicy:
			out.Values[m] = sumValue(bucket.Records, m)
		}
	}
	return out, nil
}

// AggregateAll aggregates each bucket in order.
func (a *Aggregator) AggregateAll(buckets []schema.Bucket, metrics []string) ([]schema.AggregatedRecord, error) {
	out := make([]schema.AggregatedRecord, 0, len(buckets))
	for _, b := range buckets {
		rec, err := a.Aggregate(b, metrics)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeclaredMetrics returns the metric names an aggregation should emit.
// An explicit request is kept in its order without duplicates; otherwise the sorted
// union of metric names across records is used. Every name must resolve in policies.
func DeclaredMetrics(records []schema.MetricRecord, requested []string, policies PolicyTable) ([]string, error) {
	var metrics []string
	if len(requested) > 0 {
		metrics = lo.Uniq(lo.Compact(requested))
	} else {
		seen := make(map[string]struct{})
		for _, r := range records {
			for k := range r.Values {
				seen[k] = struct{}{}
			}
		}
		metrics = slices.Sorted(maps.Keys(seen))
	}
	if _, err := policies.Resolve(metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// latestRecord returns the record with the maximum date, preferring the later one on ties.
func latestRecord(records []schema.MetricRecord) *schema.MetricRecord {
	var latest *schema.MetricRecord
	for i := range records {
		if latest == nil || !records[i].Date.Before(latest.Date) {
			latest = &records[i]
		}
	}
	return latest
}

// lastValue never falls back to an earlier month when the latest value is missing.
func lastValue(latest *schema.MetricRecord, metric string) *float64 {
	if latest == nil {
		return nil
	}
	if v := latest.Values[metric]; v != nil {
		return schema.Float(*v)
	}
	return nil
}

func presentValues(records []schema.MetricRecord, metric string) []float64 {
	return lo.FilterMap(records, func(r schema.MetricRecord, _ int) (float64, bool) {
		v := r.Values[metric]
		if v == nil {
			return 0, false
		}
		return *v, true
	})
}

func averageValue(records []schema.MetricRecord, metric string) *float64 {
	values := presentValues(records, metric)
	if len(values) == 0 {
		return nil
	}
	return schema.Float(lo.Sum(values) / float64(len(values)))
}

// sumValue distinguishes no data (nil) from zero activity.
func sumValue(records []schema.MetricRecord, metric string) *float64 {
	values := presentValues(records, metric)
	if len(values) == 0 {
		return nil
	}
	return schema.Float(lo.Sum(values))
}
