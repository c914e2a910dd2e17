package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/kpiroll/core"
	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/huangsam/kpiroll/internal/outwriter"
	"github.com/huangsam/kpiroll/internal/source"
	"github.com/huangsam/kpiroll/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	stores  contract.StoreManager
}

// requestConfig clones the base config and applies the tool arguments.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	err := contract.ApplyOverrides(cfg, contract.RequestOverrides{
		Granularity: request.GetString("granularity", ""),
		Currency:    request.GetString("currency", ""),
		Country:     request.GetString("country", ""),
		LabelStyle:  request.GetString("label_style", ""),
		Metrics:     request.GetStringSlice("metrics", nil),
	})
	return cfg, err
}

func (h *toolHandler) handleGetTrends(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid trend parameters: %v", err)), nil
	}

	src, err := source.New(cfg, h.stores)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("source unavailable: %v", err)), nil
	}

	result, err := core.GetTrendsResult(ctx, cfg, src)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trend aggregation failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetKPIs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid KPI parameters: %v", err)), nil
	}

	src, err := source.New(cfg, h.stores)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("source unavailable: %v", err)), nil
	}

	result, err := core.GetKPIResult(ctx, cfg, src)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("KPI lookup failed: %v", err)), nil
	}

	payload := struct {
		schema.KPIResult
		Cards []outwriter.KPICard `json:"cards"`
	}{result, outwriter.BuildKPICards(result.Snapshot)}
	jsonData, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListPolicies(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	listing, err := core.GetPolicyListing(h.baseCfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid policy table: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(listing, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
