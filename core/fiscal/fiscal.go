// Package fiscal maps calendar months onto fiscal periods and groups records into buckets.
package fiscal

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/kpiroll/schema"
)

// DefaultStartMonth is the first month of the fiscal year.
const DefaultStartMonth = time.April

// Calendar describes a fiscal year that begins on the first day of StartMonth.
// The zero value behaves like an April calendar.
type Calendar struct {
	StartMonth time.Month
}

// DefaultCalendar returns the April to March calendar.
func DefaultCalendar() Calendar {
	return Calendar{StartMonth: DefaultStartMonth}
}

// NewCalendar validates start and returns a calendar beginning in that month.
func NewCalendar(start int) (Calendar, error) {
	if start < 1 || start > 12 {
		return Calendar{}, fmt.Errorf("fiscal start month must be between 1 and 12, got %d", start)
	}
	return Calendar{StartMonth: time.Month(start)}, nil
}

func (c Calendar) start() time.Month {
	if c.StartMonth < time.January || c.StartMonth > time.December {
		return DefaultStartMonth
	}
	return c.StartMonth
}

// YearStart returns the first month of the fiscal year containing t.
func (c Calendar) YearStart(t time.Time) time.Time {
	m := schema.MonthStart(t)
	offset := (int(m.Month()) - int(c.start()) + 12) % 12
	return m.AddDate(0, -offset, 0)
}

// FiscalYear returns the fiscal year of t, named by the calendar year in which it ends.
func (c Calendar) FiscalYear(t time.Time) int {
	return c.YearStart(t).AddDate(0, 11, 0).Year()
}

// PeriodOf returns the period of the given granularity that contains t.
func (c Calendar) PeriodOf(t time.Time, g schema.Granularity) (schema.Period, error) {
	if t.IsZero() {
		return schema.Period{}, fmt.Errorf("no date to place in a period: %w", schema.ErrInvalidRecord)
	}
	m := schema.MonthStart(t)
	yearStart := c.YearStart(m)
	p := schema.Period{Granularity: g, FiscalYear: c.FiscalYear(m)}

	switch g {
	case schema.Monthly:
		p.Start, p.End = m, m.AddDate(0, 1, 0)
	case schema.Quarterly:
		offset := (int(m.Month()) - int(c.start()) + 12) % 12
		p.Quarter = offset/3 + 1
		p.Start = yearStart.AddDate(0, (p.Quarter-1)*3, 0)
		p.End = p.Start.AddDate(0, 3, 0)
	case schema.Annual:
		p.Start, p.End = yearStart, yearStart.AddDate(1, 0, 0)
	default:
		return schema.Period{}, fmt.Errorf("unsupported granularity %q", g)
	}
	return p, nil
}

// ParseGranularity validates a user supplied granularity string.
func ParseGranularity(s string) (schema.Granularity, error) {
	g := schema.Granularity(strings.ToLower(strings.TrimSpace(s)))
	if g == "" {
		return schema.Monthly, nil
	}
	if _, ok := schema.ValidGranularities[g]; !ok {
		return "", fmt.Errorf("invalid granularity %q. Must be one of monthly, quarterly, annual", s)
	}
	return g, nil
}
