package source

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/huangsam/kpiroll/internal/parquet"
	"github.com/huangsam/kpiroll/schema"
	"github.com/samber/lo"
)

// Column names with a special meaning in CSV files. Every other column is a metric.
const (
	dateColumn    = "date"
	labelColumn   = "label"
	countryColumn = "country"
	regionColumn  = "region"
)

// FileSource reads monthly records from a JSON, CSV or Parquet file.
type FileSource struct {
	Path string
}

// NewFileSource returns a source over path after checking its extension.
func NewFileSource(path string) (*FileSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".csv", ".parquet":
		return &FileSource{Path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported file %q. Expected a .json, .csv or .parquet file", path)
	}
}

// Name implements contract.RecordSource.
func (s *FileSource) Name() string {
	return "file:" + filepath.Base(s.Path)
}

// Records implements contract.RecordSource.
func (s *FileSource) Records(_ context.Context, country string) ([]schema.MetricRecord, error) {
	records, err := s.readAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return schema.FilterCountry(records, country), nil
}

// Snapshot implements contract.RecordSource by deriving the cards from the latest months.
func (s *FileSource) Snapshot(ctx context.Context, country string) (schema.KPISnapshot, error) {
	records, err := s.Records(ctx, "")
	if err != nil {
		return schema.KPISnapshot{}, err
	}
	return SnapshotFromRecords(records, country)
}

func (s *FileSource) readAll() ([]schema.MetricRecord, error) {
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".parquet":
		rows, err := parquet.ReadMetricRowsParquet(s.Path)
		if err != nil {
			return nil, err
		}
		return parquet.RecordsFromMetricRows(rows)
	case ".csv":
		file, err := os.Open(s.Path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()
		return ReadCSVRecords(file)
	default:
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, err
		}
		var records []schema.MetricRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("expected a JSON array of flat records: %w", err)
		}
		return records, nil
	}
}

// ReadCSVRecords parses a wide CSV with a date header and one column per metric.
// An empty cell is a null value and an empty date leaves the record undated.
func ReadCSVRecords(r io.Reader) ([]schema.MetricRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	hasDate := lo.ContainsBy(header, func(h string) bool { return strings.EqualFold(h, dateColumn) })
	if !hasDate {
		return nil, fmt.Errorf("CSV header must contain a %q column", dateColumn)
	}

	var records []schema.MetricRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}

		record := schema.MetricRecord{Values: make(map[string]*float64, len(row))}
		for i, cell := range row {
			name := header[i]
			cell = strings.TrimSpace(cell)
			switch strings.ToLower(name) {
			case dateColumn:
				if cell == "" {
					continue
				}
				date, err := schema.ParseDate(cell)
				if err != nil {
					return nil, fmt.Errorf("CSV line %d: %w", line, err)
				}
				record.Date = date
			case labelColumn:
				record.Label = cell
			case countryColumn, regionColumn:
				record.Country = schema.NormalizeCountry(cell)
			default:
				if cell == "" {
					record.Values[name] = nil
					continue
				}
				v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
				if err != nil {
					return nil, fmt.Errorf("CSV line %d: metric %s must be a number or empty: %w", line, name, err)
				}
				if !schema.IsFinite(v) {
					return nil, fmt.Errorf("CSV line %d: metric %s is %q: %w", line, name, cell, schema.ErrNonFiniteValue)
				}
				record.Values[name] = &v
			}
		}
		records = append(records, record)
	}
	return records, nil
}
