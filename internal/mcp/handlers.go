package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/coin-portal/internal/dashboard"
	"github.com/bobmcallan/coin-portal/internal/market"
	"github.com/bobmcallan/coin-portal/internal/renderer"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	defaultListLimit = 20
	maxListLimit     = 250
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
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

func handleListMarket(svc *dashboard.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawKey := r.GetString("sort", string(market.DefaultSort.Key))
		key, ok := market.ParseSortKey(rawKey)
		if !ok && strings.TrimSpace(rawKey) != "" {
			return errorResult(fmt.Sprintf("Error: unknown sort key %q", rawKey)), nil
		}
		rawDir := r.GetString("direction", string(market.DefaultSort.Direction))
		dir, ok := market.ParseDirection(rawDir)
		if !ok && strings.TrimSpace(rawDir) != "" {
			return errorResult(fmt.Sprintf("Error: unknown direction %q", rawDir)), nil
		}
		limit := r.GetInt("limit", defaultListLimit)
		if limit <= 0 || limit > maxListLimit {
			limit = defaultListLimit
		}

		view := svc.Market(ctx, r.GetString("query", ""), market.SortState{Key: key, Direction: dir})
		coins := view.Coins
		if len(coins) > limit {
			coins = coins[:limit]
		}
		return textResult(renderer.Market(coins, view.Total, view.Query, view.Sort, view.Stale)), nil
	}
}

func handleTopMovers(svc *dashboard.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		view := svc.Home(ctx)
		return textResult(renderer.Home(view.Top, view.Gainers, view.Losers, view.Stale)), nil
	}
}

func handleGetCoin(svc *dashboard.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := r.RequireString("id")
		if err != nil {
			return errorResult("Error: id parameter is required"), nil
		}
		view, err := svc.Coin(ctx, id, r.GetInt("days", 0))
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		return textResult(renderer.Coin(view.Coin, view.History, view.InPortfolio)), nil
	}
}

func handleSearchCoins(svc *dashboard.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := r.RequireString("query")
		if err != nil {
			return errorResult("Error: query parameter is required"), nil
		}
		results, err := svc.Search(ctx, query)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		return textResult(renderer.Search(query, results)), nil
	}
}

func handleGetPortfolio(svc *dashboard.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		view := svc.Portfolio(ctx)
		return textResult(renderer.Portfolio(view.Valuation, view.Stale)), nil
	}
}

func handleAddHolding(svc *dashboard.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		coinID, err := r.RequireString("coin_id")
		if err != nil {
			return errorResult("Error: coin_id parameter is required"), nil
		}
		h, result, err := svc.AddHolding(ctx, coinID, r.GetFloat("amount", 0))
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		return textResult(renderer.HoldingAdded(h, result)), nil
	}
}

func handleUpdateHolding(svc *dashboard.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		coinID, err := r.RequireString("coin_id")
		if err != nil {
			return errorResult("Error: coin_id parameter is required"), nil
		}
		amount, err := r.RequireFloat("amount")
		if err != nil {
			return errorResult("Error: amount parameter is required"), nil
		}
		h, err := svc.UpdateHolding(ctx, coinID, amount)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		return textResult(renderer.HoldingUpdated(h)), nil
	}
}

func handleRemoveHolding(svc *dashboard.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		coinID, err := r.RequireString("coin_id")
		if err != nil {
			return errorResult("Error: coin_id parameter is required"), nil
		}
		removed, err := svc.RemoveHolding(ctx, coinID)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		return textResult(renderer.HoldingRemoved(coinID, removed)), nil
	}
}
