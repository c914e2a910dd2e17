package contract

import (
	"context"

	"github.com/huangsam/kpiroll/schema"
	"github.com/stretchr/testify/mock"
)

// MockRecordSource is a mock implementation of RecordSource for testing.
type MockRecordSource struct {
	mock.Mock
}

var _ RecordSource = &MockRecordSource{} // Compile-time check

// Name implements the RecordSource interface.
func (m *MockRecordSource) Name() string {
	args := m.Called()
	return args.String(0)
}

// Records implements the RecordSource interface.
func (m *MockRecordSource) Records(ctx context.Context, country string) ([]schema.MetricRecord, error) {
	args := m.Called(ctx, country)
	records, _ := args.Get(0).([]schema.MetricRecord)
	return records, args.Error(1)
}

// Snapshot implements the RecordSource interface.
func (m *MockRecordSource) Snapshot(ctx context.Context, country string) (schema.KPISnapshot, error) {
	args := m.Called(ctx, country)
	snap, _ := args.Get(0).(schema.KPISnapshot)
	return snap, args.Error(1)
}

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ StoreManager = &MockStoreManager{} // Compile-time check

// GetMetricStore implements the StoreManager interface.
func (m *MockStoreManager) GetMetricStore() MetricStore {
	ret := m.Called()
	store, _ := ret.Get(0).(MetricStore)
	return store
}

// MockMetricStore is a mock implementation of MetricStore for testing.
type MockMetricStore struct {
	mock.Mock
}

var _ MetricStore = &MockMetricStore{} // Compile-time check

// SaveRecords implements the MetricStore interface.
func (m *MockMetricStore) SaveRecords(ctx context.Context, source string, records []schema.MetricRecord) (string, int, error) {
	args := m.Called(ctx, source, records)
	return args.String(0), args.Int(1), args.Error(2)
}

// ListRows implements the MetricStore interface.
func (m *MockMetricStore) ListRows(ctx context.Context, country string) ([]schema.MetricValueRow, error) {
	args := m.Called(ctx, country)
	rows, _ := args.Get(0).([]schema.MetricValueRow)
	return rows, args.Error(1)
}

// GetStatus implements the MetricStore interface.
func (m *MockMetricStore) GetStatus() (schema.StoreStatus, error) {
	args := m.Called()
	status, _ := args.Get(0).(schema.StoreStatus)
	return status, args.Error(1)
}

// Close implements the MetricStore interface.
func (m *MockMetricStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
