// Package mcp exposes the fleet statistics as MCP tools so agents can query
// reports without going through the HTTP API.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ReportSource yields the current report snapshot.
type ReportSource interface {
	Reports() []reporting.Report
}

// Server wraps the MCP server with basewatch tools.
type Server struct {
	mcpServer *server.MCPServer
	source    ReportSource
}

// ToolNames lists the tools every server registers.
var ToolNames = []string{"list_units", "unit_stats", "fleet_stats", "unit_history"}

func New(source ReportSource, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("basewatch", version, server.WithToolCapabilities(false)),
		source:    source,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	window := []mcp.ToolOption{
		mcp.WithString("start_date", mcp.Description("Inclusive start date, YYYY-MM-DD (default: open)")),
		mcp.WithString("end_date", mcp.Description("Inclusive end date, YYYY-MM-DD (default: open)")),
	}

	s.mcpServer.AddTool(mcp.NewTool("list_units",
		mcp.WithDescription("List every unit that has reported, with report count and last submission time."),
	), s.handleListUnits)

	s.mcpServer.AddTool(mcp.NewTool("unit_stats", append([]mcp.ToolOption{
		mcp.WithDescription("Average satisfaction, latest supply days and report count of one unit over a date window."),
		mcp.WithString("unit", mcp.Required(), mcp.Description("Unit name")),
	}, window...)...), s.handleUnitStats)

	s.mcpServer.AddTool(mcp.NewTool("fleet_stats", append([]mcp.ToolOption{
		mcp.WithDescription("Per-unit statistics and fleet totals over a date window."),
	}, window...)...), s.handleFleetStats)

	s.mcpServer.AddTool(mcp.NewTool("unit_history",
		mcp.WithDescription("Full report history of one unit in date order, photos omitted."),
		mcp.WithString("unit", mcp.Required(), mcp.Description("Unit name")),
	), s.handleUnitHistory)
}

// ServeStdio blocks serving the tools over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleListUnits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(reporting.ListUnits(s.source.Reports()))
}

func (s *Server) handleUnitStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	unit, err := requireUnit(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	window, err := windowArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	snapshot := s.source.Reports()
	if _, ok := reporting.FindUnit(snapshot, unit); !ok {
		return mcp.NewToolResultError("unknown unit: " + unit), nil
	}
	return jsonResult(reporting.ComputeStat(snapshot, unit, window))
}

func (s *Server) handleFleetStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	window, err := windowArg(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fleet := reporting.BuildFleetContext(s.source.Reports(), window)
	return jsonResult(fleet)
}

func (s *Server) handleUnitHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	unit, err := requireUnit(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	snapshot := s.source.Reports()
	if _, ok := reporting.FindUnit(snapshot, unit); !ok {
		return mcp.NewToolResultError("unknown unit: " + unit), nil
	}
	return jsonResult(reporting.BuildUnitContext(snapshot, unit))
}

func requireUnit(args map[string]interface{}) (string, error) {
	unit, _ := args["unit"].(string)
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return "", errors.New("unit parameter is required")
	}
	return unit, nil
}

func windowArg(args map[string]interface{}) (reporting.DateRange, error) {
	start, _ := args["start_date"].(string)
	end, _ := args["end_date"].(string)
	return reporting.ParseDateRange(start, end)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
