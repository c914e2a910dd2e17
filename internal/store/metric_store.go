package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/google/uuid"
	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for the metric store.
const (
	metricValuesTable  = "kpi_metric_values"
	importBatchesTable = "kpi_import_batches"
)

// periodLayout is how month starts are stored. Text keeps the column portable across backends.
const periodLayout = "2006-01-02"

// MetricStoreImpl implements the MetricStore interface.
type MetricStoreImpl struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
	connStr    string
}

var _ contract.MetricStore = &MetricStoreImpl{} // Compile-time check

// driverFor maps a backend to its database/sql driver name.
func driverFor(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported store backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}
}

// openDB opens and pings a connection for the backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetStoreDBFilePath()
	}

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct: user:password@tcp(host:port)/dbname"
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct: host=localhost port=5432 user=postgres dbname=kpis"
		default:
			connDetail = "Check that the directory is writable."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}
	return db, nil
}

// NewMetricStore creates a new MetricStore with the specified backend.
// The tables are created when they are missing.
func NewMetricStore(backend schema.DatabaseBackend, connStr string) (contract.MetricStore, error) {
	if backend == schema.NoneBackend {
		// No-op store for disabled persistence
		return &MetricStoreImpl{backend: backend, connStr: connStr}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if err := createMetricTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create metric tables: %w", err)
	}

	driverName, _ := driverFor(backend)
	return &MetricStoreImpl{
		db:         db,
		backend:    backend,
		driverName: driverName,
		connStr:    connStr,
	}, nil
}

// createMetricTables applies the initial schema from the embedded migrations.
func createMetricTables(db *sql.DB, backend schema.DatabaseBackend) error {
	script, err := migrationsFS.ReadFile(fmt.Sprintf("migrations/%s/000001_create_metric_tables.up.sql", backend))
	if err != nil {
		return err
	}
	for _, stmt := range splitStatements(string(script)) {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// getUpsertQuery returns the UPSERT query for one metric value.
func (ms *MetricStoreImpl) getUpsertQuery() string {
	table := quoteTableName(metricValuesTable, ms.backend)
	values := placeholders(ms.backend, 1, 5)
	switch ms.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (country, period, metric_name, value, batch_id) VALUES (%s) AS new
			ON DUPLICATE KEY UPDATE value = new.value, batch_id = new.batch_id`, table, values)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf(`INSERT INTO %s (country, period, metric_name, value, batch_id) VALUES (%s)
			ON CONFLICT (country, period, metric_name) DO UPDATE SET value = excluded.value, batch_id = excluded.batch_id`, table, values)
	}
}

// SaveRecords upserts records under a new import batch.
// Undated records are skipped and nil values are stored as NULL.
func (ms *MetricStoreImpl) SaveRecords(ctx context.Context, source string, records []schema.MetricRecord) (string, int, error) {
	if ms.backend == schema.NoneBackend || ms.db == nil {
		return "", 0, nil
	}

	rows := schema.FlattenRecords(records)
	for _, row := range rows {
		if row.Value != nil && !schema.IsFinite(*row.Value) {
			return "", 0, fmt.Errorf("refusing to store %s for %s: %w", row.MetricName, row.Period.Format(periodLayout), schema.ErrNonFiniteValue)
		}
	}
	batchID := uuid.NewString()

	tx, err := ms.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	batchQuery := fmt.Sprintf(`INSERT INTO %s (batch_id, source, imported_at, row_count) VALUES (%s)`,
		quoteTableName(importBatchesTable, ms.backend), placeholders(ms.backend, 1, 4))
	if _, err := tx.ExecContext(ctx, batchQuery, batchID, source, time.Now().Unix(), len(rows)); err != nil {
		return "", 0, fmt.Errorf("failed to insert import batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, ms.getUpsertQuery())
	if err != nil {
		return "", 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		var value sql.NullFloat64
		if row.Value != nil {
			value = sql.NullFloat64{Float64: *row.Value, Valid: true}
		}
		country := schema.NormalizeCountry(row.Country)
		if _, err := stmt.ExecContext(ctx, country, row.Period.Format(periodLayout), row.MetricName, value, batchID); err != nil {
			return "", 0, fmt.Errorf("failed to upsert %s for %s: %w", row.MetricName, row.Period.Format(periodLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return batchID, len(rows), nil
}

// ListRows returns stored rows ordered by country, period and metric.
func (ms *MetricStoreImpl) ListRows(ctx context.Context, country string) ([]schema.MetricValueRow, error) {
	if ms.backend == schema.NoneBackend || ms.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT country, period, metric_name, value, batch_id FROM %s`,
		quoteTableName(metricValuesTable, ms.backend))
	var args []any
	if country != "" {
		query += " WHERE country = " + placeholders(ms.backend, 1, 1)
		args = append(args, strings.ToUpper(country))
	}
	query += " ORDER BY country, period, metric_name"

	rows, err := ms.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.MetricValueRow
	for rows.Next() {
		var row schema.MetricValueRow
		var period string
		var value sql.NullFloat64
		if err := rows.Scan(&row.Country, &period, &row.MetricName, &value, &row.BatchID); err != nil {
			return nil, fmt.Errorf("failed to scan metric value: %w", err)
		}
		if row.Period, err = time.Parse(periodLayout, period); err != nil {
			return nil, fmt.Errorf("failed to parse period %q: %w", period, err)
		}
		if value.Valid {
			v := value.Float64
			row.Value = &v
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metric values: %w", err)
	}
	return results, nil
}

// Close closes the underlying connection.
func (ms *MetricStoreImpl) Close() error {
	if ms.db != nil {
		return ms.db.Close()
	}
	return nil
}

// GetStatus returns status information about the metric store.
func (ms *MetricStoreImpl) GetStatus() (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:   string(ms.backend),
		Connected: ms.db != nil,
	}

	if ms.backend == schema.NoneBackend || ms.db == nil {
		return status, nil
	}

	values := quoteTableName(metricValuesTable, ms.backend)
	batches := quoteTableName(importBatchesTable, ms.backend)

	if err := ms.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", values)).Scan(&status.TotalValues); err != nil {
		return status, fmt.Errorf("failed to get total values: %w", err)
	}
	if err := ms.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", batches)).Scan(&status.TotalBatches); err != nil {
		return status, fmt.Errorf("failed to get total batches: %w", err)
	}

	if status.TotalValues > 0 {
		var oldest, latest string
		row := ms.db.QueryRow(fmt.Sprintf("SELECT MIN(period), MAX(period) FROM %s", values))
		if err := row.Scan(&oldest, &latest); err != nil {
			return status, fmt.Errorf("failed to get period range: %w", err)
		}
		status.OldestPeriod, _ = time.Parse(periodLayout, oldest)
		status.LatestPeriod, _ = time.Parse(periodLayout, latest)

		countries, err := ms.db.Query(fmt.Sprintf("SELECT DISTINCT country FROM %s ORDER BY country", values))
		if err != nil {
			return status, fmt.Errorf("failed to get countries: %w", err)
		}
		defer func() { _ = countries.Close() }()
		for countries.Next() {
			var country string
			if err := countries.Scan(&country); err != nil {
				return status, fmt.Errorf("failed to scan country: %w", err)
			}
			status.Countries = append(status.Countries, country)
		}
		if err := countries.Err(); err != nil {
			return status, fmt.Errorf("error iterating countries: %w", err)
		}
	}

	if status.TotalBatches > 0 {
		var lastTs int64
		if err := ms.db.QueryRow(fmt.Sprintf("SELECT MAX(imported_at) FROM %s", batches)).Scan(&lastTs); err != nil {
			return status, fmt.Errorf("failed to get last import time: %w", err)
		}
		status.LastImportTime = time.Unix(lastTs, 0)
	}

	status.TableSizeBytes = ms.tableSizeBytes(status.TotalValues)
	return status, nil
}

// tableSizeBytes estimates the size of the metric values table.
// Falls back to a rough estimate when the backend cannot report it.
func (ms *MetricStoreImpl) tableSizeBytes(totalValues int) int64 {
	estimate := int64(totalValues) * 100
	var size int64

	switch ms.backend {
	case schema.SQLiteBackend:
		row := ms.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return estimate
		}
	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(ms.connStr)
		if err != nil || cfg.DBName == "" {
			return estimate
		}
		row := ms.db.QueryRow("SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
			cfg.DBName, metricValuesTable)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
	case schema.PostgreSQLBackend:
		row := ms.db.QueryRow("SELECT pg_total_relation_size($1)", metricValuesTable)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
	default:
		return estimate
	}
	return size
}
