package schema

import "time"

// StoreStatus represents the status of the metric store.
type StoreStatus struct {
	Backend        string    `json:"backend"`
	Connected      bool      `json:"connected"`
	TotalValues    int       `json:"total_values"`
	TotalBatches   int       `json:"total_batches"`
	Countries      []string  `json:"countries"`
	OldestPeriod   time.Time `json:"oldest_period"`
	LatestPeriod   time.Time `json:"latest_period"`
	LastImportTime time.Time `json:"last_import_time"`
	TableSizeBytes int64     `json:"table_size_bytes"`
}

// MetricValueRow is one long-format row of the kpi_metric_values table.
type MetricValueRow struct {
	Country    string
	Period     time.Time
	MetricName string
	Value      *float64
	BatchID    string
}

// ImportBatch describes one store import.
type ImportBatch struct {
	BatchID    string    `json:"batch_id"`
	Source     string    `json:"source"`
	ImportedAt time.Time `json:"imported_at"`
	RowCount   int       `json:"row_count"`
}
