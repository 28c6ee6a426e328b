package mcp

import (
	"net/http"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/config"
	"github.com/bobmcallan/coin-portal/internal/dashboard"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// ServerName is the MCP server name reported to clients.
const ServerName = "coin-portal"

// NewServer creates an MCP server with every dashboard tool registered.
// It is shared by the portal's /mcp endpoint and the stdio binary.
func NewServer(service *dashboard.Service, logger *common.Logger) *mcpserver.MCPServer {
	mcpSrv := mcpserver.NewMCPServer(
		ServerName,
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)
	count := RegisterTools(mcpSrv, service)
	logger.Info().Int("tools", count).Msg("MCP tools registered")
	return mcpSrv
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	server     *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler creates a new MCP handler over service.
func NewHandler(service *dashboard.Service, logger *common.Logger) *Handler {
	mcpSrv := NewServer(service, logger)
	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)
	return &Handler{
		server:     mcpSrv,
		streamable: streamable,
		logger:     logger,
	}
}

// Server returns the underlying MCP server.
func (h *Handler) Server() *mcpserver.MCPServer {
	return h.server
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
