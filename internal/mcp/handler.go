// Package mcp exposes the research service over the Model Context
// Protocol, wrapping mcp-go's StreamableHTTPServer.
package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/research"
)

// Handler is the HTTP handler for the MCP endpoint.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler creates the MCP handler and registers the tool set.
func NewHandler(cfg *config.Config, logger *common.Logger, storage interfaces.StorageManager, engine *research.Engine) *Handler {
	mcpSrv := mcpserver.NewMCPServer(
		"stockscout",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	tools := &toolset{logger: logger, storage: storage, engine: engine}
	mcpSrv.AddTool(runResearchTool(), tools.runResearch)
	mcpSrv.AddTool(listSchedulesTool(), tools.listSchedules)
	mcpSrv.AddTool(listReportsTool(), tools.listReports)
	mcpSrv.AddTool(getReportTool(), tools.getReport)
	mcpSrv.AddTool(versionTool(), versionToolHandler)

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().Int("tools", 5).Msg("MCP handler initialized")

	return &Handler{streamable: streamable, logger: logger}
}

// ServeHTTP resolves the caller's identity from request headers and
// delegates to the mcp-go StreamableHTTPServer. Tool handlers read the
// user back out of the request context.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := common.ResolveUser(r)
	r = r.WithContext(common.WithUser(r.Context(), user))
	h.streamable.ServeHTTP(w, r)
}
