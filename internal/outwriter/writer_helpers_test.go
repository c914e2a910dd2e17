package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helperTrends is two quarters of the consolidated book in USD, the second one still open.
func helperTrends() schema.TrendsResult {
	q1Start := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	q2Start := q1Start.AddDate(0, 3, 0)
	return schema.TrendsResult{
		Granularity: schema.Quarterly,
		Currency:    schema.USD,
		Source:      "fixtures",
		Metrics:     []string{"live_arr", "nrr"},
		Records: []schema.AggregatedRecord{
			{
				Label:    "Q1 '25",
				Period:   schema.Period{Granularity: schema.Quarterly, FiscalYear: 2025, Quarter: 1, Start: q1Start, End: q2Start},
				Months:   3,
				Currency: schema.USD,
				Values:   map[string]*float64{"live_arr": schema.Float(9144144.5), "nrr": schema.Float(101.25)},
			},
			{
				Label:    "Aug'24",
				Period:   schema.Period{Granularity: schema.Quarterly, FiscalYear: 2025, Quarter: 2, Start: q2Start, End: q2Start.AddDate(0, 3, 0)},
				Partial:  true,
				Months:   2,
				Currency: schema.USD,
				Values:   map[string]*float64{"live_arr": schema.Float(9300000), "nrr": nil},
			},
		},
	}
}

func helperPolicies() schema.PolicyListing {
	return schema.PolicyListing{
		Entries: []schema.PolicyEntry{
			{Metric: "live_arr", Policy: schema.LastPolicy, Monetary: true, IsDefault: true},
			{Metric: "nrr", Policy: schema.AveragePolicy, IsDefault: true},
			{Metric: "new_logos", Policy: schema.SumPolicy},
		},
		Fallback: schema.LastPolicy,
	}
}

// writePolicyRows writes the listing the way the policies CSV view does.
func writePolicyRows(listing schema.PolicyListing) func(*csv.Writer) error {
	return func(w *csv.Writer) error {
		for _, e := range listing.Entries {
			row := []string{e.Metric, string(e.Policy), strconv.FormatBool(e.Monetary), strconv.FormatBool(e.IsDefault)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestCreateFormatters(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		value     float64
		expected  string
		money     string
	}{
		{
			name:      "rate below a thousand",
			precision: 2,
			value:     101.256,
			expected:  "101.26",
			money:     "101.26",
		},
		{
			name:      "whole rupees",
			precision: 0,
			value:     64390521,
			expected:  "64390521",
			money:     "64,390,521",
		},
		{
			name:      "dollars at precision 4",
			precision: 4,
			value:     1234.5,
			expected:  "1234.5000",
			money:     "1,234.5000",
		},
		{
			name:      "negative change",
			precision: 2,
			value:     -1234567.567,
			expected:  "-1234567.57",
			money:     "-1,234,567.57",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fmtFloat, fmtMoney := createFormatters(tt.precision)
			assert.Equal(t, tt.expected, fmtFloat(tt.value))
			assert.Equal(t, tt.money, fmtMoney(tt.value))
		})
	}
}

func TestFormatNullable(t *testing.T) {
	fmtFloat, fmtMoney := createFormatters(1)
	assert.Equal(t, contract.MissingValue, formatNullable(nil, fmtFloat))
	assert.Equal(t, "2.5", formatNullable(schema.Float(2.5), fmtFloat))
	assert.Equal(t, "9,300,000.0", formatNullable(schema.Float(9300000), fmtMoney))
	assert.Equal(t, "", formatCSVValue(nil, fmtFloat), "null metrics leave the cell empty")
	assert.Equal(t, "9300000.0", formatCSVValue(schema.Float(9300000), fmtFloat), "CSV cells are not grouped")
}

func TestWriteJSON(t *testing.T) {
	t.Run("policy listing", func(t *testing.T) {
		listing := schema.PolicyListing{
			Entries:  []schema.PolicyEntry{{Metric: "live_arr", Policy: schema.LastPolicy, Monetary: true, IsDefault: true}},
			Fallback: schema.NoPolicy,
		}
		var buf bytes.Buffer
		require.NoError(t, writeJSON(&buf, listing))
		assert.Equal(t, `{
  "entries": [
    {
      "metric": "live_arr",
      "policy": "last",
      "monetary": true,
      "is_default": true
    }
  ],
  "fallback": "none"
}
`, buf.String())
	})

	t.Run("trends result", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeJSON(&buf, helperTrends()))
		assert.Contains(t, buf.String(), `  "granularity": "quarterly",`)
		assert.Contains(t, buf.String(), `"nrr": null`, "null metrics stay null")

		var back schema.TrendsResult
		require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
		require.Len(t, back.Records, 2)
		assert.Equal(t, "Aug'24", back.Records[1].Label)
		assert.True(t, back.Records[1].Partial)
		assert.Equal(t, 9144144.5, *back.Records[0].Values["live_arr"])
	})
}

func TestWriteJSONError(t *testing.T) {
	result := helperTrends()
	result.Records[0].Values["nrr"] = schema.Float(math.NaN())

	var buf bytes.Buffer
	err := writeJSON(&buf, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	header := []string{"metric", "policy", "monetary", "default"}
	tests := []struct {
		name     string
		listing  schema.PolicyListing
		expected string
	}{
		{
			name:    "policy rows",
			listing: helperPolicies(),
			expected: "metric,policy,monetary,default\n" +
				"live_arr,last,true,true\n" +
				"nrr,average,false,true\n" +
				"new_logos,sum,false,false\n",
		},
		{
			name:     "no overrides",
			listing:  schema.PolicyListing{Fallback: schema.LastPolicy},
			expected: "metric,policy,monetary,default\n",
		},
		{
			name: "metric names with commas",
			listing: schema.PolicyListing{Entries: []schema.PolicyEntry{
				{Metric: "Rule of 80, adjusted", Policy: schema.LastPolicy},
			}},
			expected: "metric,policy,monetary,default\n\"Rule of 80, adjusted\",last,false,false\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeCSVWithHeader(&buf, header, writePolicyRows(tt.listing)))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteCSVWithHeaderError(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSVWithHeader(&buf, []string{"label"}, func(w *csv.Writer) error {
		return assert.AnError
	})
	require.Error(t, err)
	assert.Equal(t, assert.AnError, err)
}

func TestWriteWithFileStdout(t *testing.T) {
	called := false
	err := writeWithFile("", func(w io.Writer) error {
		called = true
		return writeJSON(io.Discard, helperPolicies())
	}, "Wrote policies")

	require.NoError(t, err)
	assert.True(t, called, "Writer function should have been called")
}

func TestWriteWithFileActualFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.csv")

	err := writeWithFile(path, func(w io.Writer) error {
		return writeCSVWithHeader(w, []string{"metric", "policy", "monetary", "default"}, writePolicyRows(helperPolicies()))
	}, "Wrote policies")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"new_logos", "sum", "false", "false"}, rows[3])
}

func TestWriteWithFileError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trends.json")

	err := writeWithFile(path, func(w io.Writer) error {
		return assert.AnError
	}, "Wrote trends")

	require.Error(t, err)
	assert.Equal(t, assert.AnError, err)
}

func TestWriteWithFileInvalidPath(t *testing.T) {
	err := writeWithFile(filepath.Join(t.TempDir(), "missing", "trends.json"), func(w io.Writer) error {
		return nil
	}, "Wrote trends")

	require.Error(t, err)
}

func TestWriteTrendsJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trends.json")

	err := writeWithFile(path, func(w io.Writer) error {
		return writeJSON(w, helperTrends())
	}, "Wrote trends")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var back schema.TrendsResult
	require.NoError(t, json.Unmarshal(content, &back))
	assert.Equal(t, schema.USD, back.Currency)
	assert.Equal(t, []string{"live_arr", "nrr"}, back.Metrics)
	require.Len(t, back.Records, 2)
	assert.Equal(t, 2, back.Records[1].Months)
	assert.Nil(t, back.Records[1].Values["nrr"])
}

func TestWriteTrendsCSVToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trends.csv")
	fmtFloat, _ := createFormatters(2)

	err := writeWithFile(path, func(w io.Writer) error {
		return writeCSVResultsForTrends(w, helperTrends(), fmtFloat)
	}, "Wrote trends")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3, "header + 2 quarters")
	assert.Equal(t, []string{"label", "country", "period_start", "period_end", "partial", "months", "currency", "live_arr", "nrr"}, rows[0])
	assert.Equal(t, "Q1 '25", rows[1][0])
	assert.Equal(t, "9144144.50", rows[1][7])
	assert.Equal(t, "101.25", rows[1][8])
	assert.Equal(t, "true", rows[2][4])
	assert.Equal(t, "", rows[2][8], "null metrics leave the cell empty")
}
