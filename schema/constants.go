package schema

// Custom string types for type safety.
type (
	// Granularity represents the time-bucketing resolution.
	Granularity string

	// Policy represents how a metric is reduced within a bucket.
	Policy string

	// Currency represents an ISO currency code used for display.
	Currency string

	// LabelStyle represents the convention used for bucket labels.
	LabelStyle string

	// OutputMode represents the format of the output.
	OutputMode string

	// SourceKind represents the strategy used to load monthly records.
	SourceKind string

	// DatabaseBackend represents the database backend for the metric store.
	DatabaseBackend string

	// Dataset represents one of the bundled fixture datasets.
	Dataset string
)

// All granularities supported.
const (
	Monthly   Granularity = "monthly" // default
	Quarterly Granularity = "quarterly"
	Annual    Granularity = "annual"
)

// All aggregation policies supported.
const (
	LastPolicy    Policy = "last"
	AveragePolicy Policy = "average"
	SumPolicy     Policy = "sum"

	// NoPolicy is only valid as a table fallback and means unlisted metrics are rejected.
	NoPolicy Policy = "none"
)

// All currencies supported.
const (
	INR Currency = "INR" // base currency of stored values
	USD Currency = "USD"
)

// BaseCurrency is the currency all stored monetary values are recorded in.
const BaseCurrency = INR

// All label styles supported.
const (
	EndMonthLabels LabelStyle = "end-month" // default, e.g. Jun'24
	QuarterLabels  LabelStyle = "quarter"   // e.g. Q1 '24
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All record sources supported.
const (
	FixtureSource SourceKind = "fixtures" // default
	FileSource    SourceKind = "file"
	StoreSource   SourceKind = "store"
	MergedSource  SourceKind = "merged"
)

// All store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All bundled datasets.
const (
	ExecutiveDataset Dataset = "executive" // default, consolidated global view
	RegionalDataset  Dataset = "regional"  // per-country view
)

// GlobalCountry selects only consolidated records when used as a country filter.
const GlobalCountry = "GLOBAL"

// AllGranularities returns a list of all supported granularities in display order.
var AllGranularities = []Granularity{Monthly, Quarterly, Annual}

// ValidGranularities lists all valid granularities.
var ValidGranularities = map[Granularity]struct{}{
	Monthly:   {},
	Quarterly: {},
	Annual:    {},
}

// ValidPolicies lists all policies a metric may be assigned.
var ValidPolicies = map[Policy]struct{}{
	LastPolicy:    {},
	AveragePolicy: {},
	SumPolicy:     {},
}

// ValidCurrencies lists all valid display currencies.
var ValidCurrencies = map[Currency]struct{}{
	INR: {},
	USD: {},
}

// ValidLabelStyles lists all valid label styles.
var ValidLabelStyles = map[LabelStyle]struct{}{
	EndMonthLabels: {},
	QuarterLabels:  {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidSourceKinds lists all valid record sources.
var ValidSourceKinds = map[SourceKind]struct{}{
	FixtureSource: {},
	FileSource:    {},
	StoreSource:   {},
	MergedSource:  {},
}

// ValidDatabaseBackends lists all valid store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidDatasets lists all bundled datasets.
var ValidDatasets = map[Dataset]struct{}{
	ExecutiveDataset: {},
	RegionalDataset:  {},
}
