package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/kpiroll/core/agg"
	"github.com/huangsam/kpiroll/core/fiscal"
	"github.com/huangsam/kpiroll/core/fx"
	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
)

// Request describes one aggregation run over a set of records.
type Request struct {
	Granularity    schema.Granularity
	Currency       schema.Currency
	Country        string   // Empty means every partition, schema.GlobalCountry means consolidated only
	Metrics        []string // Empty means every metric seen in the data
	MonetaryFields []string // Fields divided by the exchange rate
}

// Pipeline buckets, aggregates and normalizes monthly records.
// It holds no mutable state so concurrent runs are independent.
type Pipeline struct {
	Bucketer   *fiscal.Bucketer
	Aggregator *agg.Aggregator
	Normalizer *fx.Normalizer
}

// NewPipeline builds a pipeline from the validated config.
func NewPipeline(cfg *contract.Config) (*Pipeline, error) {
	cal, err := fiscal.NewCalendar(cfg.FiscalStart)
	if err != nil {
		return nil, err
	}
	labels, err := fiscal.NewLabelFormatter(cfg.LabelStyle)
	if err != nil {
		return nil, err
	}
	policies, err := agg.DefaultPolicyTable().WithOverrides(cfg.PolicyOverrides, cfg.FallbackPolicy)
	if err != nil {
		return nil, err
	}
	normalizer, err := fx.NewNormalizer(cfg.Rates)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Bucketer:   fiscal.NewBucketer(cal, labels),
		Aggregator: agg.New(policies),
		Normalizer: normalizer,
	}, nil
}

// RequestFromConfig maps the config onto a pipeline request.
func RequestFromConfig(cfg *contract.Config) Request {
	return Request{
		Granularity:    cfg.Granularity,
		Currency:       cfg.Currency,
		Country:        cfg.Country,
		Metrics:        cfg.Metrics,
		MonetaryFields: cfg.MonetaryFields,
	}
}

// Run returns one aggregated record per bucket and country partition.
// Partitions come back consolidated first, then by country code, each in chronological order.
func (p *Pipeline) Run(records []schema.MetricRecord, req Request) ([]schema.AggregatedRecord, error) {
	out, _, err := p.run(records, req)
	return out, err
}

// Trends runs the pipeline and wraps the output with the metrics it declared.
func (p *Pipeline) Trends(records []schema.MetricRecord, req Request) (schema.TrendsResult, error) {
	out, metrics, err := p.run(records, req)
	if err != nil {
		return schema.TrendsResult{}, err
	}
	return schema.TrendsResult{
		Granularity: req.Granularity,
		Currency:    req.Currency,
		Metrics:     metrics,
		Records:     out,
	}, nil
}

func (p *Pipeline) run(records []schema.MetricRecord, req Request) ([]schema.AggregatedRecord, []string, error) {
	log := contract.Logger()

	// 1. Fail fast on an unconfigured currency, even without data
	if _, err := p.Normalizer.Convert(nil, req.Currency, nil); err != nil {
		return nil, nil, err
	}

	// 2. Filter by country and resolve the metric set
	filtered := schema.FilterCountry(records, req.Country)
	metrics, err := agg.DeclaredMetrics(filtered, req.Metrics, p.Aggregator.Policies)
	if err != nil {
		return nil, nil, err
	}

	// 3. Bucket and aggregate each partition on its own
	out := make([]schema.AggregatedRecord, 0)
	for _, part := range PartitionByCountry(filtered) {
		buckets, err := p.Bucketer.Bucket(part.Records, req.Granularity)
		if err != nil {
			return nil, nil, fmt.Errorf("partition %s: %w", part.Name(), err)
		}
		log.Debugw("bucketed records", "partition", part.Name(), "granularity", req.Granularity,
			"records", len(part.Records), "buckets", len(buckets))

		aggregated, err := p.Aggregator.AggregateAll(buckets, metrics)
		if err != nil {
			return nil, nil, fmt.Errorf("partition %s: %w", part.Name(), err)
		}
		out = append(out, aggregated...)
	}

	// 4. Normalize exactly once on the way to display
	converted, err := p.Normalizer.ConvertRecords(out, req.Currency, req.MonetaryFields)
	if err != nil {
		return nil, nil, err
	}
	return converted, metrics, nil
}

// Partition holds the records of one country.
type Partition struct {
	Country string
	Records []schema.MetricRecord
}

// Name returns a printable partition name.
func (p Partition) Name() string {
	if p.Country == "" {
		return "global"
	}
	return p.Country
}

// PartitionByCountry splits records by country, consolidated records first.
// Country codes are compared case-insensitively and come out uppercased.
// Input order is preserved within each partition.
func PartitionByCountry(records []schema.MetricRecord) []Partition {
	index := make(map[string]int)
	var parts []Partition
	for _, r := range records {
		r.Country = schema.NormalizeCountry(r.Country)
		i, ok := index[r.Country]
		if !ok {
			i = len(parts)
			index[r.Country] = i
			parts = append(parts, Partition{Country: r.Country})
		}
		parts[i].Records = append(parts[i].Records, r)
	}
	slices.SortFunc(parts, func(a, b Partition) int {
		return strings.Compare(a.Country, b.Country)
	})
	return parts
}
