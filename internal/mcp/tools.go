package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
	"github.com/stockscout/stockscout/internal/research"
)

// toolset carries the dependencies shared by the tool handlers.
type toolset struct {
	logger  *common.Logger
	storage interfaces.StorageManager
	engine  *research.Engine
}

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// jsonResult marshals data into a text content result.
func jsonResult(data interface{}) *mcp.CallToolResult {
	out, err := json.Marshal(data)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: %v", err))
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(string(out))}}
}

func runResearchTool() mcp.Tool {
	return mcp.NewTool("run_research",
		mcp.WithDescription("Start a stock research run immediately. Provide either a free-text prompt or a comma-separated list of ticker symbols, not both. Returns the queued run; results appear under list_reports once complete."),
		mcp.WithString("prompt", mcp.Description("Free-text research question")),
		mcp.WithString("symbols", mcp.Description("Comma-separated ticker symbols, e.g. AAPL,MSFT")),
		mcp.WithBoolean("deep_research", mcp.Description("Use the deep research model (slower, more thorough)")),
	)
}

func (t *toolset) runResearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user := common.UserFromContext(ctx)

	prompt := strings.TrimSpace(request.GetString("prompt", ""))
	var symbols []string
	for _, s := range strings.Split(request.GetString("symbols", ""), ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			symbols = append(symbols, s)
		}
	}
	if (prompt == "") == (len(symbols) == 0) {
		return errorResult("Error: provide exactly one of prompt or symbols"), nil
	}

	run, err := t.engine.StartRun(ctx, &models.Schedule{
		ID:           models.OneOffScheduleID,
		UserID:       user.ID,
		Prompt:       prompt,
		Symbols:      symbols,
		DeepResearch: request.GetBool("deep_research", false),
	})
	if err != nil {
		return errorResult(fmt.Sprintf("Error: %v", err)), nil
	}
	return jsonResult(run), nil
}

func listSchedulesTool() mcp.Tool {
	return mcp.NewTool("list_schedules",
		mcp.WithDescription("List the caller's research schedules with their next fire times."),
	)
}

func (t *toolset) listSchedules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user := common.UserFromContext(ctx)

	items, err := t.storage.Schedules().ListByUser(ctx, user.ID)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: %v", err)), nil
	}
	if items == nil {
		items = []models.Schedule{}
	}
	return jsonResult(items), nil
}

func listReportsTool() mcp.Tool {
	return mcp.NewTool("list_reports",
		mcp.WithDescription("List the caller's research reports, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of reports to return (default 20)")),
	)
}

func (t *toolset) listReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user := common.UserFromContext(ctx)

	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	items, err := t.storage.Reports().ListByUser(ctx, user.ID, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: %v", err)), nil
	}
	if items == nil {
		items = []models.Report{}
	}
	return jsonResult(items), nil
}

func getReportTool() mcp.Tool {
	return mcp.NewTool("get_report",
		mcp.WithDescription("Fetch one research report by ID, including its summary, citations, and artifact paths."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Report ID")),
	)
}

func (t *toolset) getReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user := common.UserFromContext(ctx)

	id := request.GetString("id", "")
	if id == "" {
		return errorResult("Error: id parameter is required"), nil
	}
	rep, err := t.storage.Reports().Get(ctx, id)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: %v", err)), nil
	}
	if rep.UserID != user.ID {
		return errorResult("Error: report not found"), nil
	}
	return jsonResult(rep), nil
}

func versionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the stockscout server version. Use this to verify connectivity."),
	)
}

func versionToolHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]string{
		"version": config.GetVersion(),
		"build":   config.GetBuild(),
		"commit":  config.GetGitCommit(),
	}), nil
}
