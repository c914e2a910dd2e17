// Package cmd defines the command-line interface for kpiroll.
package cmd

import (
	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(trendsCmd)
	rootCmd.AddCommand(kpisCmd)
	rootCmd.AddCommand(policiesCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeImportCmd)
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("source", string(schema.FixtureSource), "Record source: fixtures or file or store or merged")
	rootCmd.PersistentFlags().String("dataset", string(schema.ExecutiveDataset), "Bundled fixture dataset: executive or regional")
	rootCmd.PersistentFlags().String("file", "", "Path to a JSON, CSV or Parquet file of monthly records")
	rootCmd.PersistentFlags().Bool("fallback", false, "Serve the bundled fixtures when the primary source fails")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "Metric store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("currency", string(schema.BaseCurrency), "Display currency for monetary metrics: INR or USD")
	rootCmd.PersistentFlags().String("country", "", "Country partition (e.g., IN, SEA) or GLOBAL for consolidated records only")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("label-style", string(schema.EndMonthLabels), "Bucket label style: end-month or quarter")
	rootCmd.PersistentFlags().Int("fiscal-start", contract.DefaultFiscalStart, "First month of the fiscal year (1-12)")
	rootCmd.PersistentFlags().String("usd-rate", "", "INR per USD override (e.g., 84.5)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug diagnostics to stderr")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of trendsCmd to Viper
	trendsCmd.Flags().StringP("granularity", "g", string(schema.Monthly), "Bucket size: monthly or quarterly or annual")
	trendsCmd.Flags().StringSlice("metrics", nil, "Comma-separated metrics to include (default: every metric in the data)")
	if err := viper.BindPFlags(trendsCmd.Flags()); err != nil {
		contract.LogFatal("Error binding trends flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
