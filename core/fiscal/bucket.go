package fiscal

import (
	"fmt"
	"slices"
	"time"

	"github.com/huangsam/kpiroll/schema"
)

// Bucketer groups monthly records into fiscal periods.
type Bucketer struct {
	Calendar Calendar
	Labels   LabelFormatter
}

// NewBucketer returns a bucketer for the calendar. A nil formatter means end-month labels.
func NewBucketer(cal Calendar, labels LabelFormatter) *Bucketer {
	if labels == nil {
		labels = EndMonthFormatter{}
	}
	return &Bucketer{Calendar: cal, Labels: labels}
}

// Bucket assigns every record to exactly one period of granularity g.
// Buckets come back in chronological order and so do the records inside them.
// Only the trailing bucket may be partial, and only for quarterly or annual granularity.
func (b *Bucketer) Bucket(records []schema.MetricRecord, g schema.Granularity) ([]schema.Bucket, error) {
	if _, ok := schema.ValidGranularities[g]; !ok {
		return nil, fmt.Errorf("unsupported granularity %q", g)
	}
	if len(records) == 0 {
		return nil, nil
	}

	for i, r := range records {
		if r.Date.IsZero() {
			return nil, fmt.Errorf("record %d (label %q, country %q) has no date: %w", i, r.Label, r.Country, schema.ErrInvalidRecord)
		}
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b schema.MetricRecord) int {
		return a.Date.Compare(b.Date)
	})

	var buckets []schema.Bucket
	for _, r := range sorted {
		p, err := b.Calendar.PeriodOf(r.Date, g)
		if err != nil {
			return nil, err
		}
		month := schema.MonthStart(r.Date)
		if n := len(buckets); n > 0 && buckets[n-1].Period.Start.Equal(p.Start) {
			buckets[n-1].Records = append(buckets[n-1].Records, r)
			buckets[n-1].Latest = latestOf(buckets[n-1].Latest, month)
			continue
		}
		buckets = append(buckets, schema.Bucket{Period: p, Latest: month, Records: []schema.MetricRecord{r}})
	}

	last := &buckets[len(buckets)-1]
	if g != schema.Monthly && last.Latest.Before(last.Period.LastMonth()) {
		last.Partial = true
	}
	for i := range buckets {
		buckets[i].Label = b.Labels.Label(buckets[i].Period, buckets[i].Latest, buckets[i].Partial)
	}
	return buckets, nil
}

func latestOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
