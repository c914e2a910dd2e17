package cmd

import (
	"github.com/huangsam/kpiroll/internal/mcp"
	"github.com/huangsam/kpiroll/internal/store"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the kpiroll MCP server",
	Long: `Launch an MCP server over stdio so AI agents can query KPI trends and cards.

Tools:
  get_trends     - fiscal trend buckets for a granularity, currency and country
  get_kpis       - live KPI cards
  list_policies  - the metric aggregation policy table

Logs go to stderr so stdout stays reserved for the protocol.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, store.Manager)
	},
}
