// Package core has core logic for bucketing, aggregating and normalizing KPI records.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/kpiroll/core/agg"
	"github.com/huangsam/kpiroll/core/fx"
	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/internal/outwriter"
	"github.com/huangsam/kpiroll/schema"
)

// ExecutorFunc defines the function signature for executing different views.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, src contract.RecordSource) error

// ExecuteTrends loads records, aggregates them and prints the trend table.
// It serves as the main entry point for the 'trends' command.
func ExecuteTrends(ctx context.Context, cfg *contract.Config, src contract.RecordSource) error {
	start := time.Now()
	result, err := GetTrendsResult(ctx, cfg, src)
	if err != nil {
		return err
	}
	duration := time.Since(start)
	return outwriter.PrintTrendsResults(result, cfg, duration)
}

// ExecuteKPIs loads the KPI snapshot, converts it and prints the cards.
// It serves as the main entry point for the 'kpis' command.
func ExecuteKPIs(ctx context.Context, cfg *contract.Config, src contract.RecordSource) error {
	start := time.Now()
	result, err := GetKPIResult(ctx, cfg, src)
	if err != nil {
		return err
	}
	duration := time.Since(start)
	return outwriter.PrintKPIResults(result, cfg, duration)
}

// ExecutePolicies prints the effective policy table.
func ExecutePolicies(_ context.Context, cfg *contract.Config, _ contract.RecordSource) error {
	listing, err := GetPolicyListing(cfg)
	if err != nil {
		return err
	}
	return outwriter.PrintPolicies(listing, cfg)
}

// GetTrendsResult runs the pipeline without printing anything.
func GetTrendsResult(ctx context.Context, cfg *contract.Config, src contract.RecordSource) (schema.TrendsResult, error) {
	pipeline, err := NewPipeline(cfg)
	if err != nil {
		return schema.TrendsResult{}, err
	}
	records, err := src.Records(ctx, cfg.Country)
	if err != nil {
		return schema.TrendsResult{}, fmt.Errorf("loading records from %s: %w", src.Name(), err)
	}
	contract.Logger().Debugw("loaded records", "source", src.Name(), "records", len(records))

	result, err := pipeline.Trends(records, RequestFromConfig(cfg))
	if err != nil {
		return schema.TrendsResult{}, err
	}
	result.Source = src.Name()
	return result, nil
}

// GetKPIResult loads and converts the KPI snapshot without printing anything.
// Targets convert with their base metric while change percentages stay untouched.
func GetKPIResult(ctx context.Context, cfg *contract.Config, src contract.RecordSource) (schema.KPIResult, error) {
	pipeline, err := NewPipeline(cfg)
	if err != nil {
		return schema.KPIResult{}, err
	}
	snapshot, err := src.Snapshot(ctx, cfg.Country)
	if err != nil {
		return schema.KPIResult{}, fmt.Errorf("loading snapshot from %s: %w", src.Name(), err)
	}
	fields := fx.WithCompanions(cfg.KPIFields, fx.TargetSuffix)
	converted, err := pipeline.Normalizer.ConvertSnapshot(snapshot, cfg.Currency, fields)
	if err != nil {
		return schema.KPIResult{}, err
	}
	return schema.KPIResult{Currency: cfg.Currency, Source: src.Name(), Snapshot: converted}, nil
}

// GetPolicyListing describes the effective policy table for cfg.
func GetPolicyListing(cfg *contract.Config) (schema.PolicyListing, error) {
	policies, err := agg.DefaultPolicyTable().WithOverrides(cfg.PolicyOverrides, cfg.FallbackPolicy)
	if err != nil {
		return schema.PolicyListing{}, err
	}
	return policies.Listing(cfg.MonetaryFields), nil
}
