package outwriter

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/kpiroll/core/fx"
	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// KPI card groups in display order.
const (
	revenueGroup    = "Revenue"
	retentionGroup  = "Retention"
	efficiencyGroup = "Efficiency"
	customersGroup  = "Customers"
	teamGroup       = "Team"
	otherGroup      = "Other"
)

var groupOrder = []string{revenueGroup, retentionGroup, efficiencyGroup, customersGroup, teamGroup, otherGroup}

var metricGroups = map[string]string{
	"live_mrr":             revenueGroup,
	"live_arr":             revenueGroup,
	"contracted_mrr":       revenueGroup,
	"contracted_arr":       revenueGroup,
	"accrued_mrr":          revenueGroup,
	"new_business_mrr":     revenueGroup,
	"expansion_mrr":        revenueGroup,
	"churned_mrr":          revenueGroup,
	"collections_unbilled": revenueGroup,
	"collections_ar":       revenueGroup,
	"nrr":                  retentionGroup,
	"grr":                  retentionGroup,
	"accounts_at_risk":     retentionGroup,
	"rule_of_80":           efficiencyGroup,
	"gm_percent":           efficiencyGroup,
	"ebitda_percent":       efficiencyGroup,
	"live_clients":         customersGroup,
	"contracted_clients":   customersGroup,
	"mau":                  customersGroup,
	"chs":                  customersGroup,
	"headcount":            teamGroup,
}

// KPICard is one displayed KPI with its companions.
type KPICard struct {
	Group  string   `json:"group"`
	Metric string   `json:"metric"`
	Value  *float64 `json:"value"`
	Target *float64 `json:"target"`
	Change *float64 `json:"change"`
}

// BuildKPICards groups a snapshot into cards ordered by group, then metric name.
// A <metric>_target or <metric>_change key is folded into its base card when the base is present.
func BuildKPICards(snapshot schema.KPISnapshot) []KPICard {
	var cards []KPICard
	for key, v := range snapshot.Values {
		if isCompanion(key, snapshot.Values) {
			continue
		}
		group, ok := metricGroups[key]
		if !ok {
			group = otherGroup
		}
		cards = append(cards, KPICard{
			Group:  group,
			Metric: key,
			Value:  v,
			Target: snapshot.Values[key+fx.TargetSuffix],
			Change: snapshot.Values[key+fx.ChangeSuffix],
		})
	}
	slices.SortFunc(cards, func(a, b KPICard) int {
		if c := cmp.Compare(slices.Index(groupOrder, a.Group), slices.Index(groupOrder, b.Group)); c != 0 {
			return c
		}
		return cmp.Compare(a.Metric, b.Metric)
	})
	return cards
}

func isCompanion(key string, values map[string]*float64) bool {
	for _, suffix := range []string{fx.TargetSuffix, fx.ChangeSuffix} {
		if base, ok := strings.CutSuffix(key, suffix); ok {
			if _, present := values[base]; present {
				return true
			}
		}
	}
	return false
}

// PrintKPIResults outputs the KPI cards, dispatching based on the output format configured.
func PrintKPIResults(result schema.KPIResult, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		return errParquetUnsupported("kpis")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteKPIResults(w, result, cfg, duration)
	}, fmt.Sprintf("Wrote %s KPI cards", cfg.Output))
}

// WriteKPIResults writes the KPI cards to w in the configured text format.
func WriteKPIResults(w io.Writer, result schema.KPIResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtMoney := createFormatters(cfg.Precision)
	cards := BuildKPICards(result.Snapshot)

	switch cfg.Output {
	case schema.JSONOut:
		payload := struct {
			schema.KPIResult
			Cards []KPICard `json:"cards"`
		}{result, cards}
		if err := writeJSON(w, payload); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		header := []string{"group", "metric", "value", "target", "change", "currency"}
		err := writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
			for _, c := range cards {
				row := []string{
					c.Group,
					c.Metric,
					formatCSVValue(c.Value, fmtFloat),
					formatCSVValue(c.Target, fmtFloat),
					formatCSVValue(c.Change, fmtFloat),
					string(result.Currency),
				}
				if err := csvWriter.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeKPITable(w, result, cards, cfg, fmtFloat, fmtMoney, duration); err != nil {
			return fmt.Errorf("error writing KPI table output: %w", err)
		}
	}
	return nil
}

func writeKPITable(
	w io.Writer,
	result schema.KPIResult,
	cards []KPICard,
	cfg *contract.Config,
	fmtFloat, fmtMoney func(float64) string,
	duration time.Duration,
) error {
	asOf := contract.MissingValue
	if !result.Snapshot.AsOf.IsZero() {
		asOf = schema.MonthLabel(result.Snapshot.AsOf)
	}
	fmt.Fprintf(w, "📊 KPIs for %s as of %s in %s from %s\n",
		countryLabel(result.Snapshot.Country), asOf, result.Currency, result.Source)

	monetary := fieldSet(append(slices.Clone(cfg.KPIFields), cfg.MonetaryFields...))

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Group", "Metric", "Value", "Target", "Change"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, c := range cards {
		format := fmtFloat
		if monetary[c.Metric] {
			format = fmtMoney
		}
		data = append(data, []string{
			c.Group,
			c.Metric,
			formatNullable(c.Value, format),
			formatNullable(c.Target, format),
			contract.GetChangeLabel(c.Change, cfg.UseColors),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, "KPIs loaded in %v: %d cards.\n", duration, len(cards))
	return nil
}
