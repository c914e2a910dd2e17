package schema

import "time"

// Period is a calendar range identified by its fiscal coordinates.
// Start is inclusive and End is exclusive; both fall on the first day of a month.
type Period struct {
	Granularity Granularity `json:"granularity"`
	FiscalYear  int         `json:"fiscal_year"`       // Calendar year in which the fiscal year ends
	Quarter     int         `json:"quarter,omitempty"` // 1-4 for quarterly periods, 0 otherwise
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
}

// Contains reports whether t falls within the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// LastMonth returns the first day of the final month in the period.
func (p Period) LastMonth() time.Time {
	return p.End.AddDate(0, -1, 0)
}

// Months returns the number of calendar months spanned by the period.
func (p Period) Months() int {
	return (p.End.Year()-p.Start.Year())*12 + int(p.End.Month()) - int(p.Start.Month())
}

// Bucket groups the records whose date falls in one period.
type Bucket struct {
	Label   string         // Display label produced by the active label style
	Period  Period         // Calendar range of the bucket
	Partial bool           // Trailing open period truncated at the latest available month
	Latest  time.Time      // Latest record month in the bucket
	Records []MetricRecord // Chronological, stable for equal dates
}

// AggregatedRecord is the single output record of a bucket.
// Values holds every declared metric as a key, possibly with a nil value.
type AggregatedRecord struct {
	Label    string              `json:"label"`
	Country  string              `json:"country,omitempty"`
	Period   Period              `json:"period"`
	Partial  bool                `json:"partial"`
	Months   int                 `json:"months"`
	Currency Currency            `json:"currency"`
	Values   map[string]*float64 `json:"values"`
}

// TrendsResult holds the aggregated records produced by one pipeline run.
type TrendsResult struct {
	Granularity Granularity        `json:"granularity"`
	Currency    Currency           `json:"currency"`
	Source      string             `json:"source"`
	Metrics     []string           `json:"metrics"`
	Records     []AggregatedRecord `json:"records"`
}

// KPIResult holds a converted KPI snapshot ready for display.
type KPIResult struct {
	Currency Currency    `json:"currency"`
	Source   string      `json:"source"`
	Snapshot KPISnapshot `json:"snapshot"`
}

// PolicyEntry is one row of the effective policy table, used for display.
type PolicyEntry struct {
	Metric    string `json:"metric"`
	Policy    Policy `json:"policy"`
	Monetary  bool   `json:"monetary"`
	IsDefault bool   `json:"is_default"`
}

// PolicyListing describes the effective policy table.
type PolicyListing struct {
	Entries  []PolicyEntry `json:"entries"`
	Fallback Policy        `json:"fallback"`
}
