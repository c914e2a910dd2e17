// Package schema has configs, models and global variables for all parts of kpiroll.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strings"
	"time"
)

// DateFormat is the canonical representation of a record date.
const DateFormat = "2006-01-02"

// MonthLabelFormat renders a month as an abbreviated name plus a 2-digit year, e.g. Jun'24.
const MonthLabelFormat = "Jan'06"

// Reserved keys of the flat record representation. Every other key is a metric.
const (
	dateKey    = "date"
	labelKey   = "label"
	countryKey = "country"
	regionKey  = "region"
)

// MetricRecord is one monthly observation for a country partition.
// A zero Date means the record has no usable date.
type MetricRecord struct {
	Date    time.Time           // First day of the month
	Label   string              // Optional human label, never authoritative
	Country string              // Partition key, empty for consolidated records
	Values  map[string]*float64 // Metric name to nullable value
}

// Float returns a pointer to v, for building nullable metric values.
func Float(v float64) *float64 {
	return &v
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NormalizeCountry returns the canonical partition key for a country code.
func NormalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}

// MonthStart truncates t to the first day of its month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthLabel renders t like Jun'24.
func MonthLabel(t time.Time) string {
	return t.Format(MonthLabelFormat)
}

// Value returns the value for metric and whether the key is present at all.
func (r MetricRecord) Value(metric string) (*float64, bool) {
	v, ok := r.Values[metric]
	return v, ok
}

// Clone returns a deep copy of the record, including the value pointers.
func (r MetricRecord) Clone() MetricRecord {
	clone := r
	clone.Values = CloneValues(r.Values)
	return clone
}

// CloneValues deep-copies a nullable value map.
func CloneValues(values map[string]*float64) map[string]*float64 {
	if values == nil {
		return nil
	}
	out := make(map[string]*float64, len(values))
	for k, v := range values {
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = Float(*v)
	}
	return out
}

// ParseDate accepts YYYY-MM-DD, YYYY-MM or RFC3339 and returns the first day of that month.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateFormat, "2006-01", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthStart(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q. Expected YYYY-MM-DD, YYYY-MM or RFC3339", s)
}

// UnmarshalJSON decodes the flat representation used by fixtures and JSON files.
func (r *MetricRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := MetricRecord{Values: make(map[string]*float64, len(raw))}
	for key, msg := range raw {
		isNull := bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
		switch key {
		case dateKey:
			if isNull {
				continue // zero Date, rejected later by the bucketer
			}
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return fmt.Errorf("date must be a string: %w", err)
			}
			t, err := ParseDate(s)
			if err != nil {
				return err
			}
			out.Date = t
		case labelKey:
			if !isNull {
				if err := json.Unmarshal(msg, &out.Label); err != nil {
					return fmt.Errorf("label must be a string: %w", err)
				}
			}
		case countryKey, regionKey:
			if !isNull {
				if err := json.Unmarshal(msg, &out.Country); err != nil {
					return fmt.Errorf("%s must be a string: %w", key, err)
				}
				out.Country = NormalizeCountry(out.Country)
			}
		default:
			if isNull {
				out.Values[key] = nil
				continue
			}
			var v float64
			if err := json.Unmarshal(msg, &v); err != nil {
				return fmt.Errorf("metric %s must be a number or null: %w", key, err)
			}
			out.Values[key] = &v
		}
	}
	*r = out
	return nil
}

// MarshalJSON encodes the record back into its flat representation.
func (r MetricRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Values)+3)
	for k, v := range r.Values {
		flat[k] = v
	}
	if !r.Date.IsZero() {
		flat[dateKey] = r.Date.Format(DateFormat)
	} else {
		flat[dateKey] = nil
	}
	if r.Label != "" {
		flat[labelKey] = r.Label
	}
	if r.Country != "" {
		flat[countryKey] = r.Country
	}
	return json.Marshal(flat)
}

// KPISnapshot holds the live KPI card values for one country.
// Values carry base metrics plus their <metric>_target and <metric>_change companions.
type KPISnapshot struct {
	Country string              `json:"country,omitempty"`
	AsOf    time.Time           `json:"as_of"`
	Values  map[string]*float64 `json:"values"`
}

// Clone returns a deep copy of the snapshot.
func (s KPISnapshot) Clone() KPISnapshot {
	clone := s
	clone.Values = CloneValues(s.Values)
	return clone
}

// MergeValues overlays src onto a copy of dst. Keys present in src win, even when nil.
func MergeValues(dst, src map[string]*float64) map[string]*float64 {
	out := CloneValues(dst)
	if out == nil {
		out = make(map[string]*float64, len(src))
	}
	maps.Copy(out, CloneValues(src))
	return out
}

// FilterCountry keeps the records of country, ignoring case. An empty country keeps everything
// and GlobalCountry keeps only consolidated records.
func FilterCountry(records []MetricRecord, country string) []MetricRecord {
	country = strings.TrimSpace(country)
	if country == "" {
		return records
	}
	var out []MetricRecord
	for _, r := range records {
		switch {
		case strings.EqualFold(country, GlobalCountry):
			if r.Country == "" {
				out = append(out, r)
			}
		case strings.EqualFold(r.Country, country):
			out = append(out, r)
		}
	}
	return out
}
