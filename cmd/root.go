package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/internal/store"
	"github.com/huangsam/kpiroll/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "kpiroll",
	Short:              "Roll monthly KPI records up into fiscal trends and live KPI cards.",
	Long:               `kpiroll buckets monthly business metrics into Apr-Mar fiscal quarters and years, aggregates them per metric policy and shows money in INR or USD.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	// A missing .env file is fine
	_ = godotenv.Load()

	setConfigPaths()

	// Set environment variable prefix
	viper.SetEnvPrefix("KPIROLL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("source", schema.FixtureSource)
	viper.SetDefault("dataset", schema.ExecutiveDataset)
	viper.SetDefault("store-backend", schema.SQLiteBackend)
	viper.SetDefault("store-db-connect", "")
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("color", "yes")
	viper.SetDefault("label-style", schema.EndMonthLabels)
	viper.SetDefault("fiscal-start", contract.DefaultFiscalStart)
	viper.SetDefault("granularity", schema.Monthly)
	viper.SetDefault("currency", schema.BaseCurrency)
}

// setConfigPaths points viper at --config or the default .kpiroll.yaml locations.
func setConfigPaths() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".kpiroll") // Name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // Look in the current directory
	viper.AddConfigPath("$HOME") // Look in the home directory
}

// loadConfigFile reads the config file if one exists.
func loadConfigFile() error {
	setConfigPaths()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	contract.SetVerbose(cfg.Verbose)

	// 4. Only store backed sources need a database connection
	if cfg.Source == schema.StoreSource || cfg.Source == schema.MergedSource {
		if err := store.InitStore(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
			if !cfg.Fallback {
				return fmt.Errorf("failed to initialize store: %w", err)
			}
			contract.LogWarn("Store unavailable, serving fixtures", err)
		}
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Shutdown releases resources held by the commands.
func Shutdown() {
	store.CloseStore()
	_ = contract.Logger().Sync()
}
