package mcp

import (
	"context"
	"encoding/json"

	"github.com/bobmcallan/coin-portal/internal/config"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// versionInfo holds version fields for the portal.
type versionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// VersionTool returns the mcp.Tool definition for get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the coin-portal version. Use this to verify connectivity."),
	)
}

// VersionToolHandler reports the portal version.
func VersionToolHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := json.Marshal(map[string]versionInfo{
			ServerName: {
				Version: config.GetVersion(),
				Build:   config.GetBuild(),
				Commit:  config.GetGitCommit(),
			},
		})
		if err != nil {
			return errorResult("failed to marshal version info"), nil
		}
		return textResult(string(out)), nil
	}
}
