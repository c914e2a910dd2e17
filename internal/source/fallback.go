package source

import (
	"context"
	"fmt"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
)

// FallbackSource serves Fallback whenever Primary fails to load.
type FallbackSource struct {
	Primary  contract.RecordSource
	Fallback contract.RecordSource
}

// Name implements contract.RecordSource.
func (s *FallbackSource) Name() string {
	return s.Primary.Name()
}

// Records implements contract.RecordSource.
func (s *FallbackSource) Records(ctx context.Context, country string) ([]schema.MetricRecord, error) {
	records, err := s.Primary.Records(ctx, country)
	if err == nil {
		return records, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	contract.LogWarn(fmt.Sprintf("Loading records from %s failed, serving %s", s.Primary.Name(), s.Fallback.Name()), err)
	return s.Fallback.Records(ctx, country)
}

// Snapshot implements contract.RecordSource.
func (s *FallbackSource) Snapshot(ctx context.Context, country string) (schema.KPISnapshot, error) {
	snap, err := s.Primary.Snapshot(ctx, country)
	if err == nil {
		return snap, nil
	}
	if ctx.Err() != nil {
		return schema.KPISnapshot{}, err
	}
	contract.LogWarn(fmt.Sprintf("Loading snapshot from %s failed, serving %s", s.Primary.Name(), s.Fallback.Name()), err)
	return s.Fallback.Snapshot(ctx, country)
}
