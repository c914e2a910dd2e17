package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/internal/source"
	"github.com/huangsam/kpiroll/internal/store"
	"github.com/huangsam/kpiroll/schema"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeSetup loads minimal configuration needed for store operations.
// This avoids validating pipeline settings for simple database chores.
func storeSetup(connect bool) error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(viper.GetString("store-backend"))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	connStr := viper.GetString("store-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}
	contract.SetVerbose(viper.GetBool("verbose"))

	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	if !connect {
		return nil
	}
	if err := store.InitStore(backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	return nil
}

// storeSetupWrapper wraps storeSetup to provide PreRunE for store commands.
func storeSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeSetup(true)
}

// sqlitePath returns the SQLite database file for the configured store.
func sqlitePath() string {
	if cfg.StoreBackend == schema.SQLiteBackend && cfg.StoreDBConnect != "" {
		return cfg.StoreDBConnect
	}
	return contract.GetStoreDBFilePath()
}

// storeCmd focused on metric store management.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the metric store (import, status, clear, export, migrate)",
	Long: `Manage the database that backs --source store and --source merged.

Values are kept one row per country, month and metric. Importing the same
month again replaces its values, and every import is recorded as a batch.

Supported backends: SQLite (default, ~/.kpiroll.db), MySQL, PostgreSQL, or None

Examples:
  # Load a CSV export and query it
  kpiroll store import kpis.csv
  kpiroll trends --source store -g quarterly

  # Check what is stored
  kpiroll store status`,
}

// storeImportCmd imports record files into the store.
var storeImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import JSON, CSV or Parquet record files",
	Long: `Read monthly records from one or more files and upsert them into the store.

Each file becomes one import batch. Empty cells are stored as NULL.

Examples:
  kpiroll store import fy25.csv fy26.json`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		metricStore := store.Manager.GetMetricStore()
		bar := progressbar.Default(int64(len(args)), "importing")
		var total int
		for _, path := range args {
			src, err := source.NewFileSource(path)
			if err != nil {
				contract.LogFatal("Cannot import "+path, err)
			}
			records, err := src.Records(rootCtx, "")
			if err != nil {
				contract.LogFatal("Cannot read "+path, err)
			}
			batchID, n, err := metricStore.SaveRecords(rootCtx, src.Name(), records)
			if err != nil {
				contract.LogFatal("Cannot save "+path, err)
			}
			contract.Logger().Debugw("imported batch", "file", filepath.Base(path), "batch", batchID, "values", n)
			total += n
			_ = bar.Add(1)
		}
		fmt.Printf("Imported %d values from %d file(s).\n", total, len(args))
	},
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display store statistics and connection details",
	Long: `Show the backend, stored value and batch counts, covered countries and periods,
the last import time and the table size.

Examples:
  kpiroll store status`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := store.Manager.GetMetricStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}
		store.PrintStoreStatus(os.Stdout, status)
	},
}

// storeClearCmd clears the store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored metric values",
	Long: `Delete every stored value and import batch.

WARNING: This action cannot be undone. Consider exporting data first.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the metric tables

Examples:
  kpiroll store export --output-file backup.parquet
  kpiroll store clear`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return storeSetup(false)
	},
	Run: func(_ *cobra.Command, _ []string) {
		if err := store.ClearStore(cfg.StoreBackend, sqlitePath(), cfg.StoreDBConnect); err != nil {
			contract.LogFatal("Failed to clear store", err)
		}
		fmt.Println("Store cleared successfully.")
	},
}

// storeExportCmd exports stored values to Parquet.
var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored values to Parquet",
	Long: `Write every stored value as long-format Parquet rows (date, country, metric, value).

The export can be queried with DuckDB or pandas, or read back with --source file.

Requires: --output-file parameter

Examples:
  kpiroll store export --output-file kpis.parquet
  kpiroll trends --source file --file kpis.parquet`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := store.ExportRows(rootCtx, os.Stdout, store.Manager.GetMetricStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export store", err)
		}
	},
}

// storeMigrateCmd runs database migrations for the store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the metric store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  kpiroll store migrate

  # Rollback to the initial state
  kpiroll store migrate --target-version 0`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return storeSetup(false)
	},
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := store.Migrate(cfg.StoreBackend, cfg.StoreDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
