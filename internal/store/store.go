// Package store persists monthly KPI values in SQLite, MySQL or PostgreSQL.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
)

// MetricStoreManager manages the process wide MetricStore.
type MetricStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	metrics      contract.MetricStore
}

var _ contract.StoreManager = &MetricStoreManager{} // Compile-time check

// GetMetricStore returns the metric store, or nil before InitStore.
func (mgr *MetricStoreManager) GetMetricStore() contract.MetricStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.metrics
}

// Global Manager instance for main logic.
var (
	Manager   = &MetricStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// InitStore initializes the global manager with a metric store for the backend.
// An empty backend leaves the store unset.
func InitStore(backend schema.DatabaseBackend, connStr string) error {
	var initErr error

	initOnce.Do(func() {
		if backend == "" {
			return
		}
		metricStore, err := NewMetricStore(backend, connStr)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize metric store: %w", err)
			return
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.metrics = metricStore
	})

	return initErr
}

// CloseStore should be called on application shutdown.
func CloseStore() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.metrics != nil {
			_ = Manager.metrics.Close()
		}
	})
}

// ClearStore removes all stored metric data for the backend.
// For SQLite, it deletes the database file.
// For MySQL and PostgreSQL, it drops the metric tables.
// For NoneBackend, it does nothing.
func ClearStore(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		driverName, _ := driverFor(backend)
		return dropSQLTables(driverName, backend, connStr, metricValuesTable, importBatchesTable)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported store backend for clearing: %s", backend)
	}
}

// dropSQLTables connects to the SQL database and drops the tables if they exist.
func dropSQLTables(driverName string, backend schema.DatabaseBackend, connStr string, tables ...string) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	for _, table := range tables {
		if err := validateTableName(table); err != nil {
			return err
		}
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
