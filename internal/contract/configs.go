package contract

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/huangsam/kpiroll/core/fx"
	"github.com/huangsam/kpiroll/schema"
	"github.com/shopspring/decimal"
)

// Default values for configuration.
const (
	DefaultPrecision   = 2
	MaxPrecision       = 4
	DefaultFiscalStart = 4 // April
)

// Config holds the runtime configuration for a run.
// This struct remains the "final, validated" config.
type Config struct {
	Source   schema.SourceKind
	Dataset  schema.Dataset
	FilePath string
	Fallback bool // Serve bundled fixtures when the primary source fails

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	Granularity    schema.Granularity
	Currency       schema.Currency
	Country        string   // Empty means every partition
	Metrics        []string // Empty means every metric seen in the data
	LabelStyle     schema.LabelStyle
	FiscalStart    int
	Rates          map[schema.Currency]decimal.Decimal
	MonetaryFields []string
	KPIFields      []string

	// PolicyOverrides replaces individual rules of the default policy table
	PolicyOverrides map[string]schema.Policy

	// FallbackPolicy replaces the default fallback when set
	FallbackPolicy schema.Policy

	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
	Verbose    bool
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Source         string `mapstructure:"source"`
	Dataset        string `mapstructure:"dataset"`
	File           string `mapstructure:"file"`
	Fallback       bool   `mapstructure:"fallback"`
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Precision      int    `mapstructure:"precision"`
	Width          int    `mapstructure:"width"`
	Color          string `mapstructure:"color"`
	LabelStyle     string `mapstructure:"label-style"`
	FiscalStart    int    `mapstructure:"fiscal-start"`
	USDRate        string `mapstructure:"usd-rate"`
	Currency       string `mapstructure:"currency"`
	Country        string `mapstructure:"country"`
	Verbose        bool   `mapstructure:"verbose"`

	// --- Fields from trendsCmd.Flags() ---
	Granularity string   `mapstructure:"granularity"`
	Metrics     []string `mapstructure:"metrics"`

	// --- Config file only ---
	Rates          map[string]string `mapstructure:"rates"`
	Policies       map[string]string `mapstructure:"policies"`
	FallbackPolicy string            `mapstructure:"fallback-policy"`
	MonetaryFields []string          `mapstructure:"monetary-fields"`
	KPIFields      []string          `mapstructure:"kpi-fields"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Metrics = slices.Clone(c.Metrics)
	clone.MonetaryFields = slices.Clone(c.MonetaryFields)
	clone.KPIFields = slices.Clone(c.KPIFields)
	clone.Rates = maps.Clone(c.Rates)
	clone.PolicyOverrides = maps.Clone(c.PolicyOverrides)
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateSourceConfigs(cfg, input); err != nil {
		return err
	}
	if err := processPipelineInputs(cfg, input); err != nil {
		return err
	}
	if err := processRates(cfg, input); err != nil {
		return err
	}
	if err := processPolicies(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Verbose = input.Verbose

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Precision and Output Validation ---
	if input.Precision < 0 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 0 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	if input.Width < 0 {
		return fmt.Errorf("width must not be negative (received %d)", input.Width)
	}
	return nil
}

// validateSourceConfigs validates the record source and store backend.
func validateSourceConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.Source = schema.SourceKind(strings.ToLower(input.Source))
	if _, ok := schema.ValidSourceKinds[cfg.Source]; !ok {
		return fmt.Errorf("invalid source '%s'. must be fixtures, file, store, merged", input.Source)
	}

	cfg.Dataset = schema.Dataset(strings.ToLower(input.Dataset))
	if _, ok := schema.ValidDatasets[cfg.Dataset]; !ok {
		return fmt.Errorf("invalid dataset '%s'. must be executive, regional", input.Dataset)
	}

	cfg.FilePath = input.File
	if cfg.Source == schema.FileSource && cfg.FilePath == "" {
		return fmt.Errorf("--file is required when using the file source")
	}
	cfg.Fallback = input.Fallback

	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	if err := ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
		return err
	}
	if (cfg.Source == schema.StoreSource || cfg.Source == schema.MergedSource) && cfg.StoreBackend == schema.NoneBackend {
		return fmt.Errorf("source %s needs a store backend other than none", cfg.Source)
	}
	return nil
}

// processPipelineInputs validates what to aggregate and how to label it.
func processPipelineInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Granularity = schema.Granularity(strings.ToLower(strings.TrimSpace(input.Granularity)))
	if cfg.Granularity == "" {
		cfg.Granularity = schema.Monthly
	}
	if _, ok := schema.ValidGranularities[cfg.Granularity]; !ok {
		return fmt.Errorf("invalid granularity '%s'. must be monthly, quarterly, annual", input.Granularity)
	}

	cfg.Currency = schema.Currency(strings.ToUpper(strings.TrimSpace(input.Currency)))
	if cfg.Currency == "" {
		cfg.Currency = schema.BaseCurrency
	}
	if _, ok := schema.ValidCurrencies[cfg.Currency]; !ok {
		return fmt.Errorf("invalid currency '%s': %w", input.Currency, schema.ErrUnknownCurrency)
	}

	cfg.LabelStyle = schema.LabelStyle(strings.ToLower(strings.TrimSpace(input.LabelStyle)))
	if cfg.LabelStyle == "" {
		cfg.LabelStyle = schema.EndMonthLabels
	}
	if _, ok := schema.ValidLabelStyles[cfg.LabelStyle]; !ok {
		return fmt.Errorf("invalid label style '%s'. must be end-month, quarter", input.LabelStyle)
	}

	cfg.FiscalStart = input.FiscalStart
	if cfg.FiscalStart == 0 {
		cfg.FiscalStart = DefaultFiscalStart
	}
	if cfg.FiscalStart < 1 || cfg.FiscalStart > 12 {
		return fmt.Errorf("fiscal-start must be a month between 1 and 12 (received %d)", input.FiscalStart)
	}

	cfg.Country = strings.ToUpper(strings.TrimSpace(input.Country))
	cfg.Metrics = splitList(input.Metrics)

	cfg.MonetaryFields = splitList(input.MonetaryFields)
	if len(cfg.MonetaryFields) == 0 {
		cfg.MonetaryFields = slices.Clone(fx.DefaultMonetaryFields)
	}
	cfg.KPIFields = splitList(input.KPIFields)
	if len(cfg.KPIFields) == 0 {
		cfg.KPIFields = slices.Clone(fx.DefaultKPIFields)
	}
	return nil
}

// processRates builds the exchange rate table. The --usd-rate flag wins over rates.usd.
func processRates(cfg *Config, input *ConfigRawInput) error {
	cfg.Rates = fx.DefaultRates()

	for code, raw := range input.Rates {
		currency := schema.Currency(strings.ToUpper(code))
		if _, ok := schema.ValidCurrencies[currency]; !ok {
			return fmt.Errorf("rates.%s: %w", code, schema.ErrUnknownCurrency)
		}
		if currency == schema.BaseCurrency {
			return fmt.Errorf("rates.%s: the base currency cannot have a rate", code)
		}
		rate, err := parseRate(raw)
		if err != nil {
			return fmt.Errorf("rates.%s: %w", code, err)
		}
		cfg.Rates[currency] = rate
	}

	if strings.TrimSpace(input.USDRate) != "" {
		rate, err := parseRate(input.USDRate)
		if err != nil {
			return fmt.Errorf("invalid --usd-rate: %w", err)
		}
		cfg.Rates[schema.USD] = rate
	}
	return nil
}

// processPolicies validates the policy overrides from the config file.
func processPolicies(cfg *Config, input *ConfigRawInput) error {
	cfg.PolicyOverrides = make(map[string]schema.Policy, len(input.Policies))
	for metric, raw := range input.Policies {
		p := schema.Policy(strings.ToLower(strings.TrimSpace(raw)))
		if _, ok := schema.ValidPolicies[p]; !ok {
			return fmt.Errorf("policies.%s: invalid policy '%s'. must be last, average, sum", metric, raw)
		}
		cfg.PolicyOverrides[metric] = p
	}

	if input.FallbackPolicy != "" {
		p := schema.Policy(strings.ToLower(strings.TrimSpace(input.FallbackPolicy)))
		if _, ok := schema.ValidPolicies[p]; !ok && p != schema.NoPolicy {
			return fmt.Errorf("invalid fallback-policy '%s'. must be none, last, average, sum", input.FallbackPolicy)
		}
		cfg.FallbackPolicy = p
	}
	return nil
}

func parseRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("rate %q is not a number", raw)
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("rate %s must be positive", rate)
	}
	return rate, nil
}

// splitList flattens comma separated entries and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

// RequestOverrides holds per-request view settings, e.g. from MCP tool arguments.
// Empty fields keep the value already in the config.
type RequestOverrides struct {
	Granularity string
	Currency    string
	Country     string
	LabelStyle  string
	Metrics     []string
}

// ApplyOverrides revalidates and applies per-request settings to a cloned config.
func ApplyOverrides(cfg *Config, o RequestOverrides) error {
	if g := strings.ToLower(strings.TrimSpace(o.Granularity)); g != "" {
		if _, ok := schema.ValidGranularities[schema.Granularity(g)]; !ok {
			return fmt.Errorf("invalid granularity '%s'. must be monthly, quarterly, annual", o.Granularity)
		}
		cfg.Granularity = schema.Granularity(g)
	}
	if c := strings.ToUpper(strings.TrimSpace(o.Currency)); c != "" {
		if _, ok := schema.ValidCurrencies[schema.Currency(c)]; !ok {
			return fmt.Errorf("invalid currency '%s': %w", o.Currency, schema.ErrUnknownCurrency)
		}
		cfg.Currency = schema.Currency(c)
	}
	if l := strings.ToLower(strings.TrimSpace(o.LabelStyle)); l != "" {
		if _, ok := schema.ValidLabelStyles[schema.LabelStyle(l)]; !ok {
			return fmt.Errorf("invalid label style '%s'. must be end-month, quarter", o.LabelStyle)
		}
		cfg.LabelStyle = schema.LabelStyle(l)
	}
	if c := strings.ToUpper(strings.TrimSpace(o.Country)); c != "" {
		cfg.Country = c
	}
	if metrics := splitList(o.Metrics); len(metrics) > 0 {
		cfg.Metrics = metrics
	}
	return nil
}
