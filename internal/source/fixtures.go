package source

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/kpiroll/schema"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

// FixtureSource serves the bundled static datasets.
type FixtureSource struct {
	Dataset schema.Dataset
}

// NewFixtureSource returns a source over one of the bundled datasets.
func NewFixtureSource(dataset schema.Dataset) (*FixtureSource, error) {
	if dataset == "" {
		dataset = schema.ExecutiveDataset
	}
	if _, ok := schema.ValidDatasets[dataset]; !ok {
		return nil, fmt.Errorf("unknown dataset %q. Must be 'executive' or 'regional'", dataset)
	}
	return &FixtureSource{Dataset: dataset}, nil
}

// Name implements contract.RecordSource.
func (s *FixtureSource) Name() string {
	return "fixtures:" + string(s.Dataset)
}

// Records implements contract.RecordSource.
func (s *FixtureSource) Records(_ context.Context, country string) ([]schema.MetricRecord, error) {
	var records []schema.MetricRecord
	if err := readFixture(string(s.Dataset)+"_records.json", &records); err != nil {
		return nil, err
	}
	return schema.FilterCountry(records, country), nil
}

// Snapshot implements contract.RecordSource.
// The executive dataset has one consolidated snapshot; the regional one has a snapshot per country.
func (s *FixtureSource) Snapshot(_ context.Context, country string) (schema.KPISnapshot, error) {
	country = strings.ToUpper(strings.TrimSpace(country))

	if s.Dataset == schema.ExecutiveDataset {
		if country != "" && country != schema.GlobalCountry {
			return schema.KPISnapshot{}, fmt.Errorf("%w: the executive dataset only has a consolidated snapshot, not %s", ErrNoRecords, country)
		}
		var snap schema.KPISnapshot
		if err := readFixture("executive_snapshot.json", &snap); err != nil {
			return schema.KPISnapshot{}, err
		}
		return snap, nil
	}

	var snaps []schema.KPISnapshot
	if err := readFixture("regional_snapshots.json", &snaps); err != nil {
		return schema.KPISnapshot{}, err
	}
	for _, snap := range snaps {
		if snap.Country == country {
			return snap, nil
		}
	}
	return schema.KPISnapshot{}, fmt.Errorf("%w: no regional snapshot for country %q", ErrNoRecords, country)
}

func readFixture(name string, dst any) error {
	data, err := fixtureFS.ReadFile("fixtures/" + name)
	if err != nil {
		return fmt.Errorf("reading fixture %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decoding fixture %s: %w", name, err)
	}
	return nil
}
