// Package source loads monthly KPI records and snapshots from the bundled fixtures,
// local files and the metric store.
package source

import (
	"errors"
	"fmt"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
)

var (
	// ErrNoRecords means a source has nothing to build the requested view from.
	ErrNoRecords = errors.New("no records")

	// ErrStoreUnavailable means the metric store was not initialized.
	ErrStoreUnavailable = errors.New("metric store is not initialized. Check --store-backend")
)

// New selects the record source described by cfg.
// The store manager is only consulted for the store and merged strategies.
func New(cfg *contract.Config, stores contract.StoreManager) (contract.RecordSource, error) {
	fixtures, err := NewFixtureSource(cfg.Dataset)
	if err != nil {
		return nil, err
	}

	var primary contract.RecordSource
	switch cfg.Source {
	case schema.FixtureSource, "":
		return fixtures, nil
	case schema.FileSource:
		primary, err = NewFileSource(cfg.FilePath)
	case schema.StoreSource:
		primary, err = newStoreSource(stores)
	case schema.MergedSource:
		primary, err = newMergedSource(cfg, fixtures, stores)
	default:
		err = fmt.Errorf("unknown source %q", cfg.Source)
	}
	if err != nil {
		if cfg.Fallback && errors.Is(err, ErrStoreUnavailable) {
			contract.LogWarn("Serving "+fixtures.Name(), err)
			return fixtures, nil
		}
		return nil, err
	}

	if cfg.Fallback {
		contract.Logger().Debugw("fixtures fallback enabled", "primary", primary.Name(), "fallback", fixtures.Name())
		return &FallbackSource{Primary: primary, Fallback: fixtures}, nil
	}
	return primary, nil
}

func newStoreSource(stores contract.StoreManager) (*StoreSource, error) {
	if stores == nil {
		return nil, ErrStoreUnavailable
	}
	return NewStoreSource(stores.GetMetricStore())
}

// newMergedSource layers the fixtures, then the optional file, then the store.
func newMergedSource(cfg *contract.Config, fixtures *FixtureSource, stores contract.StoreManager) (*MergedSource, error) {
	sources := []contract.RecordSource{fixtures}
	if cfg.FilePath != "" {
		file, err := NewFileSource(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		sources = append(sources, file)
	}
	store, err := newStoreSource(stores)
	if err != nil {
		return nil, err
	}
	sources = append(sources, store)
	return &MergedSource{Sources: sources}, nil
}
