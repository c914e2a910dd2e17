package cmd

import (
	"github.com/huangsam/kpiroll/core"
	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/internal/source"
	"github.com/huangsam/kpiroll/internal/store"
	"github.com/spf13/cobra"
)

// runView builds the configured record source and runs one executor.
func runView(name string, execute core.ExecutorFunc) {
	src, err := source.New(cfg, store.Manager)
	if err != nil {
		contract.LogFatal("Cannot open record source", err)
	}
	if err := execute(rootCtx, cfg, src); err != nil {
		contract.LogFatal("Cannot run "+name, err)
	}
}

// trendsCmd aggregates monthly records into fiscal buckets.
var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show KPI trends by fiscal month, quarter or year.",
	Long: `Bucket monthly KPI records into fiscal periods and aggregate each metric.

Fiscal years run April to March and are named by the year they end in,
so FY25 covers April 2024 to March 2025. Each metric rolls up with its policy:
- last: balances such as ARR, headcount and clients take the period-end value
- average: ratios such as NRR and margins are averaged over the months present
- sum: flows such as accrued MRR and collections are added up

The trailing bucket is marked open when the data stops before the period ends.
Monetary metrics are stored in INR and converted once, after aggregation.

Examples:
  # Quarterly trends in USD
  kpiroll trends --granularity quarterly --currency USD

  # Fiscal years with quarter-style labels
  kpiroll trends -g annual --label-style quarter

  # A single country from the regional dataset
  kpiroll trends --dataset regional --country IN --metrics live_arr,nrr

  # Export for BI tools
  kpiroll trends -g quarterly --output parquet --output-file trends.parquet`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runView("trends", core.ExecuteTrends)
	},
}

// kpisCmd shows the live KPI cards.
var kpisCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Show the live KPI cards with targets and change.",
	Long: `Display the latest KPI snapshot grouped into cards.

Each card shows the current value, its target when one exists and the
month-over-month change. Monetary values and their targets follow --currency;
change percentages are never converted.

Examples:
  # Executive cards in USD
  kpiroll kpis --currency USD

  # Cards for one country
  kpiroll kpis --dataset regional --country SEA`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runView("kpis", core.ExecuteKPIs)
	},
}

// policiesCmd lists the aggregation policy table.
var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the aggregation policy of each metric.",
	Long: `Print the effective metric policy table, including overrides from the config file.

Examples:
  # Show the policy table
  kpiroll policies

  # As JSON
  kpiroll policies --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePolicies(rootCtx, cfg, nil); err != nil {
			contract.LogFatal("Cannot list policies", err)
		}
	},
}
