// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/kpiroll/schema"
)

// RecordSource supplies monthly records and KPI snapshots to the pipeline.
// Records may come back in any order and with nullable metric values.
type RecordSource interface {
	// Name identifies the source in logs and results.
	Name() string

	// Records returns the monthly records for country. An empty country means every partition.
	Records(ctx context.Context, country string) ([]schema.MetricRecord, error)

	// Snapshot returns the live KPI card values for country.
	Snapshot(ctx context.Context, country string) (schema.KPISnapshot, error)
}

// StoreManager defines the interface for managing the metric store.
// This allows the store layer to be mocked for testing.
type StoreManager interface {
	GetMetricStore() MetricStore
}

// MetricStore defines the interface for metric data storage.
// Values are kept in long format, one row per (country, period, metric).
type MetricStore interface {
	// SaveRecords upserts records under a new import batch and returns its id and row count
	SaveRecords(ctx context.Context, source string, records []schema.MetricRecord) (string, int, error)

	// ListRows returns the stored rows for country, or every row when country is empty
	ListRows(ctx context.Context, country string) ([]schema.MetricValueRow, error)

	// GetStatus returns status information about the store
	GetStatus() (schema.StoreStatus, error)

	// Close closes the underlying connection
	Close() error
}
