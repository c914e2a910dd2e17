// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the kpiroll MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, stores contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"kpiroll KPI Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		stores:  stores,
	}

	// --- 1. Tool: get_trends ---
	s.AddTool(mcp.NewTool("get_trends",
		mcp.WithDescription("Aggregate monthly KPI records into fiscal trend buckets (Apr-Mar fiscal years)."),
		mcp.WithString("granularity", mcp.Description("Bucket size. Defaults to the server setting."), mcp.Enum("monthly", "quarterly", "annual")),
		mcp.WithString("currency", mcp.Description("Display currency for monetary metrics."), mcp.Enum("INR", "USD")),
		mcp.WithString("country", mcp.Description("Country partition such as IN or SEA. Use GLOBAL for consolidated records only.")),
		mcp.WithString("label_style", mcp.Description("Bucket label style."), mcp.Enum("end-month", "quarter")),
		mcp.WithArray("metrics", mcp.Description("Metrics to include. Defaults to every metric in the data."), mcp.WithStringItems()),
	), h.handleGetTrends)

	// --- 2. Tool: get_kpis ---
	s.AddTool(mcp.NewTool("get_kpis",
		mcp.WithDescription("Return the live KPI cards with targets and month-over-month change."),
		mcp.WithString("currency", mcp.Description("Display currency for monetary KPIs."), mcp.Enum("INR", "USD")),
		mcp.WithString("country", mcp.Description("Country partition such as IN or SEA.")),
	), h.handleGetKPIs)

	// --- 3. Tool: list_policies ---
	s.AddTool(mcp.NewTool("list_policies",
		mcp.WithDescription("List the aggregation policy (last, average, sum) used for each metric."),
	), h.handleListPolicies)

	return s
}

// StartMCPServer starts the kpiroll MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, stores contract.StoreManager) error {
	s := NewMCPServer(baseCfg, stores)
	return server.ServeStdio(s)
}
