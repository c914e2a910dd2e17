package fiscal

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/kpiroll/schema"
)

// LabelFormatter renders the display label of a bucket.
// latest is the most recent month present in the bucket and only matters for open periods.
type LabelFormatter interface {
	Label(p schema.Period, latest time.Time, partial bool) string
}

// EndMonthFormatter labels quarters by their final month (Jun'24) and years as FY25.
// Open periods are labeled by their latest available month.
type EndMonthFormatter struct{}

// Label implements LabelFormatter.
func (EndMonthFormatter) Label(p schema.Period, latest time.Time, partial bool) string {
	switch p.Granularity {
	case schema.Quarterly:
		if partial && !latest.IsZero() {
			return schema.MonthLabel(latest)
		}
		return schema.MonthLabel(p.LastMonth())
	case schema.Annual:
		if partial && !latest.IsZero() {
			return schema.MonthLabel(latest)
		}
		return yearLabel(p.FiscalYear)
	default:
		return schema.MonthLabel(p.Start)
	}
}

// QuarterFormatter labels quarters as Q1 '24, where the year is the calendar
// year of the quarter's months. Open years are labeled FY26 YTD.
type QuarterFormatter struct{}

// Label implements LabelFormatter.
func (QuarterFormatter) Label(p schema.Period, _ time.Time, partial bool) string {
	switch p.Granularity {
	case schema.Quarterly:
		return fmt.Sprintf("Q%d '%02d", p.Quarter, p.Start.Year()%100)
	case schema.Annual:
		if partial {
			return yearLabel(p.FiscalYear) + " YTD"
		}
		return yearLabel(p.FiscalYear)
	default:
		return schema.MonthLabel(p.Start)
	}
}

func yearLabel(fiscalYear int) string {
	return fmt.Sprintf("FY%02d", fiscalYear%100)
}

// NewLabelFormatter returns the formatter for a label style.
func NewLabelFormatter(style schema.LabelStyle) (LabelFormatter, error) {
	switch style {
	case schema.EndMonthLabels, "":
		return EndMonthFormatter{}, nil
	case schema.QuarterLabels:
		return QuarterFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported label style %q", style)
	}
}

// ParseLabelStyle validates a user supplied label style.
func ParseLabelStyle(s string) (schema.LabelStyle, error) {
	style := schema.LabelStyle(strings.ToLower(strings.TrimSpace(s)))
	if style == "" {
		return schema.EndMonthLabels, nil
	}
	if _, ok := schema.ValidLabelStyles[style]; !ok {
		return "", fmt.Errorf("invalid label style %q. Must be one of end-month, quarter", s)
	}
	return style, nil
}
