package source

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// MergedSource loads every source concurrently and overlays them per (country, month).
// Later sources override the keys of earlier ones, so static data goes first.
type MergedSource struct {
	Sources []contract.RecordSource
}

// Name implements contract.RecordSource.
func (s *MergedSource) Name() string {
	names := lo.Map(s.Sources, func(src contract.RecordSource, _ int) string { return src.Name() })
	return "merged(" + strings.Join(names, "+") + ")"
}

// Records implements contract.RecordSource.
func (s *MergedSource) Records(ctx context.Context, country string) ([]schema.MetricRecord, error) {
	results := make([][]schema.MetricRecord, len(s.Sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.Sources {
		g.Go(func() error {
			records, err := src.Records(gctx, country)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return MergeRecords(results...), nil
}

// Snapshot implements contract.RecordSource.
// Sources with nothing to offer for country are skipped.
func (s *MergedSource) Snapshot(ctx context.Context, country string) (schema.KPISnapshot, error) {
	results := make([]*schema.KPISnapshot, len(s.Sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.Sources {
		g.Go(func() error {
			snap, err := src.Snapshot(gctx, country)
			if errors.Is(err, ErrNoRecords) {
				contract.Logger().Debugw("source has no snapshot", "source", src.Name(), "country", country)
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = &snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return schema.KPISnapshot{}, err
	}

	var merged *schema.KPISnapshot
	for _, snap := range lo.Compact(results) {
		if merged == nil {
			clone := snap.Clone()
			merged = &clone
			continue
		}
		merged.Values = schema.MergeValues(merged.Values, snap.Values)
		if snap.AsOf.After(merged.AsOf) {
			merged.AsOf = snap.AsOf
		}
		if snap.Country != "" {
			merged.Country = snap.Country
		}
	}
	if merged == nil {
		return schema.KPISnapshot{}, ErrNoRecords
	}
	return *merged, nil
}

// MergeRecords overlays record sets per (country, month), matching countries case-insensitively.
// Keys of later sets win, even when nil.
// Undated records cannot be matched and are kept as they are, after the dated ones.
func MergeRecords(sets ...[]schema.MetricRecord) []schema.MetricRecord {
	type key struct {
		country string
		month   time.Time
	}
	index := make(map[key]int)
	var merged, undated []schema.MetricRecord
	for _, records := range sets {
		for _, r := range records {
			if r.Date.IsZero() {
				undated = append(undated, r.Clone())
				continue
			}
			k := key{country: schema.NormalizeCountry(r.Country), month: schema.MonthStart(r.Date)}
			i, ok := index[k]
			if !ok {
				index[k] = len(merged)
				clone := r.Clone()
				clone.Country = k.country
				clone.Date = k.month
				merged = append(merged, clone)
				continue
			}
			merged[i].Values = schema.MergeValues(merged[i].Values, r.Values)
			if r.Label != "" {
				merged[i].Label = r.Label
			}
		}
	}
	slices.SortStableFunc(merged, func(a, b schema.MetricRecord) int {
		if c := cmp.Compare(a.Country, b.Country); c != 0 {
			return c
		}
		return a.Date.Compare(b.Date)
	})
	return append(merged, undated...)
}
