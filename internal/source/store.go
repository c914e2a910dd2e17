package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
)

// displayNameKeys maps the metric names used by spreadsheets and dashboards to record keys.
var displayNameKeys = map[string]string{
	"MRR":          "live_mrr",
	"Live MRR":     "live_mrr",
	"ARR":          "live_arr",
	"Live ARR":     "live_arr",
	"Accrued MRR":  "accrued_mrr",
	"NRR":          "nrr",
	"GRR":          "grr",
	"GM %":         "gm_percent",
	"EBITDA %":     "ebitda_percent",
	"Rule of 80":   "rule_of_80",
	"Headcount":    "headcount",
	"Live Clients": "live_clients",
	"MAU":          "mau",
	"CHS":          "chs",
}

// NormalizeMetricName maps a stored metric name onto its record key.
// Unknown names are lower-cased with spaces turned into underscores and a trailing % into _percent.
func NormalizeMetricName(name string) string {
	name = strings.TrimSpace(name)
	if key, ok := displayNameKeys[name]; ok {
		return key
	}
	key := strings.ToLower(name)
	key = strings.ReplaceAll(key, "%", "percent")
	key = strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
	return key
}

// StoreSource reads long-format rows from the metric store and pivots them into records.
type StoreSource struct {
	Store contract.MetricStore
}

// NewStoreSource returns a source over store.
func NewStoreSource(store contract.MetricStore) (*StoreSource, error) {
	if store == nil {
		return nil, ErrStoreUnavailable
	}
	return &StoreSource{Store: store}, nil
}

// Name implements contract.RecordSource.
func (s *StoreSource) Name() string {
	return "store"
}

// Records implements contract.RecordSource.
func (s *StoreSource) Records(ctx context.Context, country string) ([]schema.MetricRecord, error) {
	filter := strings.ToUpper(strings.TrimSpace(country))
	if filter == schema.GlobalCountry {
		filter = ""
	}
	rows, err := s.Store.ListRows(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing stored rows: %w", err)
	}
	for i := range rows {
		rows[i].MetricName = NormalizeMetricName(rows[i].MetricName)
		rows[i].Country = schema.NormalizeCountry(rows[i].Country)
		if v := rows[i].Value; v != nil && !schema.IsFinite(*v) {
			return nil, fmt.Errorf("stored row %d: metric %s is %v: %w", i+1, rows[i].MetricName, *v, schema.ErrNonFiniteValue)
		}
	}
	records := schema.PivotRows(rows)
	for i := range records {
		deriveARR(records[i].Values)
	}
	contract.Logger().Debugw("pivoted store rows", "rows", len(rows), "records", len(records))
	return schema.FilterCountry(records, country), nil
}

// Snapshot implements contract.RecordSource by deriving the cards from the latest months.
func (s *StoreSource) Snapshot(ctx context.Context, country string) (schema.KPISnapshot, error) {
	records, err := s.Records(ctx, country)
	if err != nil {
		return schema.KPISnapshot{}, err
	}
	return SnapshotFromRecords(records, country)
}

// deriveARR fills live_arr as twelve times live_mrr when only the monthly figure is stored.
func deriveARR(values map[string]*float64) {
	if _, ok := values["live_arr"]; ok {
		return
	}
	if mrr := values["live_mrr"]; mrr != nil {
		values["live_arr"] = schema.Float(*mrr * 12)
	}
}
