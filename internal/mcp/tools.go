package mcp

import (
	"github.com/bobmcallan/coin-portal/internal/dashboard"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers every dashboard tool on s and returns the count.
func RegisterTools(s *server.MCPServer, service *dashboard.Service) int {
	tools := []server.ServerTool{
		{Tool: VersionTool(), Handler: VersionToolHandler()},
		{Tool: listMarketTool(), Handler: handleListMarket(service)},
		{Tool: topMoversTool(), Handler: handleTopMovers(service)},
		{Tool: getCoinTool(), Handler: handleGetCoin(service)},
		{Tool: searchCoinsTool(), Handler: handleSearchCoins(service)},
		{Tool: getPortfolioTool(), Handler: handleGetPortfolio(service)},
		{Tool: addHoldingTool(), Handler: handleAddHolding(service)},
		{Tool: updateHoldingTool(), Handler: handleUpdateHolding(service)},
		{Tool: removeHoldingTool(), Handler: handleRemoveHolding(service)},
	}
	s.AddTools(tools...)
	return len(tools)
}

func listMarketTool() mcp.Tool {
	return mcp.NewTool("list_market",
		mcp.WithDescription("List the top cryptocurrencies by market cap, optionally filtered by name or symbol and sorted."),
		mcp.WithString("query", mcp.Description("Case-insensitive substring of the coin name or symbol")),
		mcp.WithString("sort", mcp.Description("Sort key: market_cap (default), price, volume or change")),
		mcp.WithString("direction", mcp.Description("Sort direction: desc (default) or asc")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default: 20, max: 250)")),
	)
}

func topMoversTool() mcp.Tool {
	return mcp.NewTool("get_top_movers",
		mcp.WithDescription("Get the headline coins and the top 24h gainers and losers."),
	)
}

func getCoinTool() mcp.Tool {
	return mcp.NewTool("get_coin",
		mcp.WithDescription("Get details and a price history summary for one coin."),
		mcp.WithString("id", mcp.Required(), mcp.Description("CoinGecko coin id, e.g. bitcoin")),
		mcp.WithNumber("days", mcp.Description("Chart range in days: 1, 7, 30, 90 or 365 (default: last selected, else 7)")),
	)
}

func searchCoinsTool() mcp.Tool {
	return mcp.NewTool("search_coins",
		mcp.WithDescription("Search all listed coins by name or symbol to find their ids."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
	)
}

func getPortfolioTool() mcp.Tool {
	return mcp.NewTool("get_portfolio",
		mcp.WithDescription("Get the simulated portfolio valued at current prices, with profit and loss."),
	)
}

func addHoldingTool() mcp.Tool {
	return mcp.NewTool("add_holding",
		mcp.WithDescription("Add a coin to the portfolio at its current price. Does nothing if the coin is already held."),
		mcp.WithString("coin_id", mcp.Required(), mcp.Description("CoinGecko coin id")),
		mcp.WithNumber("amount", mcp.Description("Amount held (default: 0)")),
	)
}

func updateHoldingTool() mcp.Tool {
	return mcp.NewTool("update_holding",
		mcp.WithDescription("Change the amount held of a coin already in the portfolio."),
		mcp.WithString("coin_id", mcp.Required(), mcp.Description("CoinGecko coin id")),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("New amount, zero or more")),
	)
}

func removeHoldingTool() mcp.Tool {
	return mcp.NewTool("remove_holding",
		mcp.WithDescription("Remove a coin from the portfolio."),
		mcp.WithString("coin_id", mcp.Required(), mcp.Description("CoinGecko coin id")),
	)
}
