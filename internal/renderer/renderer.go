// Package renderer turns market and portfolio views into markdown. The MCP
// tools return it as-is and the CLI prints it through a terminal renderer.
package renderer

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/market"
	"github.com/bobmcallan/coin-portal/internal/portfolio"
)

// staleNote is appended when a view was built from an older snapshot.
const staleNote = "> Market data could not be refreshed; showing the last available snapshot.\n\n"

// cell escapes text for use inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func symbol(s string) string {
	return strings.ToUpper(cell(s))
}

// Market renders a listing as a table in the given order.
func Market(coins []market.Coin, total int, query string, state market.SortState, stale bool) string {
	var sb strings.Builder

	sb.WriteString("# Market\n\n")
	if stale {
		sb.WriteString(staleNote)
	}
	if q := strings.TrimSpace(query); q != "" {
		sb.WriteString(fmt.Sprintf("**Search:** %s (%d of %d coins)\n", cell(q), len(coins), total))
	} else {
		sb.WriteString(fmt.Sprintf("**Coins:** %d\n", len(coins)))
	}
	sb.WriteString(fmt.Sprintf("**Sorted by:** %s %s\n\n", state.Key, state.Direction))

	if len(coins) == 0 {
		sb.WriteString("No coins found.\n")
		return sb.String()
	}

	sb.WriteString("| # | Coin | Price | 24h | Market Cap | Volume |\n")
	sb.WriteString("|---|------|-------|-----|------------|--------|\n")
	for _, c := range coins {
		sb.WriteString(fmt.Sprintf("| %s | %s (%s) | %s | %s | %s | %s |\n",
			rank(c.MarketCapRank), cell(c.Name), symbol(c.Symbol),
			common.FormatMoney(c.CurrentPrice), common.FormatPercentage(c.PriceChangePercentage24h),
			common.FormatCurrency(c.MarketCap), common.FormatCurrency(c.TotalVolume)))
	}
	return sb.String()
}

func rank(r int) string {
	if r <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d", r)
}

// Home renders the headline coins and the top movers.
func Home(top, gainers, losers []market.Coin, stale bool) string {
	var sb strings.Builder

	sb.WriteString("# Crypto Market Overview\n\n")
	if stale {
		sb.WriteString(staleNote)
	}

	if len(top) > 0 {
		sb.WriteString("## Top Coins\n\n")
		sb.WriteString("| Coin | Price | 24h | Market Cap |\n")
		sb.WriteString("|------|-------|-----|------------|\n")
		for _, c := range top {
			sb.WriteString(fmt.Sprintf("| %s (%s) | %s | %s | %s |\n",
				cell(c.Name), symbol(c.Symbol), common.FormatMoney(c.CurrentPrice),
				common.FormatPercentage(c.PriceChangePercentage24h), common.FormatCurrency(c.MarketCap)))
		}
		sb.WriteString("\n")
	}

	writeMovers(&sb, "Top Gainers", gainers)
	writeMovers(&sb, "Top Losers", losers)
	return sb.String()
}

func writeMovers(sb *strings.Builder, title string, coins []market.Coin) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(coins) == 0 {
		sb.WriteString("None in the current snapshot.\n\n")
		return
	}
	for _, c := range coins {
		sb.WriteString(fmt.Sprintf("- **%s** (%s) %s %s\n",
			cell(c.Name), symbol(c.Symbol), common.FormatMoney(c.CurrentPrice),
			common.FormatPercentage(c.PriceChangePercentage24h)))
	}
	sb.WriteString("\n")
}

// Coin renders a coin's detail and, when present, a summary of its chart range.
func Coin(d *market.CoinDetail, history *market.PriceHistory, inPortfolio bool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s (%s)\n\n", cell(d.Name), symbol(d.Symbol)))
	sb.WriteString(fmt.Sprintf("**Price:** %s (%s 24h)\n", common.FormatMoney(d.CurrentPrice), common.FormatPercentage(d.PriceChangePercentage24h)))
	if d.MarketCapRank > 0 {
		sb.WriteString(fmt.Sprintf("**Rank:** #%d\n", d.MarketCapRank))
	}
	if inPortfolio {
		sb.WriteString("**In portfolio:** yes\n")
	} else {
		sb.WriteString("**In portfolio:** no\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Market Data\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	rows := [][2]string{
		{"Market Cap", common.FormatCurrency(d.MarketCap)},
		{"24h Volume", common.FormatCurrency(d.TotalVolume)},
		{"24h High", common.FormatMoney(d.High24h)},
		{"24h Low", common.FormatMoney(d.Low24h)},
		{"7d Change", common.FormatPercentage(d.PriceChange7d)},
		{"30d Change", common.FormatPercentage(d.PriceChange30d)},
		{"All-Time High", fmt.Sprintf("%s (%s)", common.FormatMoney(d.ATH), common.FormatDate(d.ATHDate))},
		{"From ATH", common.FormatPercentage(d.ATHChange)},
		{"All-Time Low", fmt.Sprintf("%s (%s)", common.FormatMoney(d.ATL), common.FormatDate(d.ATLDate))},
		{"Circulating Supply", common.FormatNumber(d.CirculatingSupply)},
		{"Total Supply", supply(d.TotalSupply)},
		{"Max Supply", supply(d.MaxSupply)},
	}
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", r[0], r[1]))
	}
	sb.WriteString("\n")

	if history != nil {
		writeHistory(&sb, history)
	}

	if d.Description != "" {
		sb.WriteString("## About\n\n")
		sb.WriteString(firstParagraph(d.Description))
		sb.WriteString("\n\n")
	}
	if d.Homepage != "" {
		sb.WriteString(fmt.Sprintf("**Website:** %s\n", d.Homepage))
	}
	return sb.String()
}

func supply(v float64) string {
	if v <= 0 {
		return "∞"
	}
	return common.FormatNumber(v)
}

func firstParagraph(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "\n"); i > 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

// HistorySummary is the range statistics of a price series.
type HistorySummary struct {
	Open, Close, High, Low float64
	Change                 float64 // percent from open to close
}

// Summarize computes range statistics. An empty series yields zeros.
func Summarize(h *market.PriceHistory) HistorySummary {
	if h == nil || len(h.Prices) == 0 {
		return HistorySummary{}
	}
	s := HistorySummary{
		Open:  h.Prices[0].Price,
		Close: h.Prices[len(h.Prices)-1].Price,
		High:  h.Prices[0].Price,
		Low:   h.Prices[0].Price,
	}
	for _, p := range h.Prices[1:] {
		s.High = max(s.High, p.Price)
		s.Low = min(s.Low, p.Price)
	}
	if s.Open != 0 {
		s.Change = (s.Close - s.Open) / s.Open * 100
	}
	return s
}

func writeHistory(sb *strings.Builder, h *market.PriceHistory) {
	sb.WriteString(fmt.Sprintf("## Price History (%s)\n\n", rangeLabel(h.Days)))
	if len(h.Prices) == 0 {
		sb.WriteString("No price history available.\n\n")
		return
	}
	s := Summarize(h)
	sb.WriteString(fmt.Sprintf("**Open:** %s  **Close:** %s  **Change:** %s\n",
		common.FormatMoney(s.Open), common.FormatMoney(s.Close), common.FormatPercentage(s.Change)))
	sb.WriteString(fmt.Sprintf("**High:** %s  **Low:** %s  **Samples:** %d (%s)\n\n",
		common.FormatMoney(s.High), common.FormatMoney(s.Low), len(h.Prices), h.Interval))
}

func rangeLabel(days int) string {
	switch days {
	case 1:
		return "24 hours"
	case 365:
		return "1 year"
	}
	return fmt.Sprintf("%d days", days)
}

// Portfolio renders a valuation.
func Portfolio(v portfolio.Valuation, stale bool) string {
	var sb strings.Builder

	sb.WriteString("# Portfolio\n\n")
	if stale {
		sb.WriteString(staleNote)
	}
	if len(v.Holdings) == 0 {
		sb.WriteString("Your portfolio is empty. Add coins from the market listing.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("**Total Value:** %s\n", common.FormatMoney(v.TotalValue)))
	sb.WriteString(fmt.Sprintf("**Total P&L:** %s (%s)\n", common.FormatMoney(v.TotalPnL), common.FormatPercentage(v.TotalPnLPercentage)))
	sb.WriteString(fmt.Sprintf("**Cost Basis:** %s\n", common.FormatMoney(v.CostBasis)))
	if v.UnpricedCount > 0 {
		if v.Policy == portfolio.UnpricedExcluded.String() {
			sb.WriteString(fmt.Sprintf("**Unpriced:** %d holding(s) excluded from totals\n", v.UnpricedCount))
		} else {
			sb.WriteString(fmt.Sprintf("**Unpriced:** %d holding(s) valued at zero\n", v.UnpricedCount))
		}
	}
	sb.WriteString("\n## Holdings\n\n")
	sb.WriteString("| Coin | Amount | Buy Price | Price | Value | P&L | P&L % | Weight |\n")
	sb.WriteString("|------|--------|-----------|-------|-------|-----|-------|--------|\n")
	for _, h := range v.Holdings {
		price := "n/a"
		if h.Priced {
			price = common.FormatMoney(h.CurrentPrice)
		}
		sb.WriteString(fmt.Sprintf("| %s (%s) | %s | %s | %s | %s | %s | %s | %.1f%% |\n",
			cell(h.Name), symbol(h.Symbol), common.FormatNumber(h.Amount),
			common.FormatMoney(h.PurchasePrice), price, common.FormatMoney(h.CurrentValue),
			common.FormatMoney(h.PnL), common.FormatPercentage(h.PnLPercentage), h.Allocation))
	}
	return sb.String()
}

// Search renders search matches.
func Search(query string, results []market.SearchResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Search: %s\n\n", cell(query)))
	if len(results) == 0 {
		sb.WriteString("No matching coins.\n")
		return sb.String()
	}
	sb.WriteString("| Rank | Coin | Symbol | Id |\n")
	sb.WriteString("|------|------|--------|----|\n")
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | `%s` |\n", rank(r.MarketCapRank), cell(r.Name), symbol(r.Symbol), r.ID))
	}
	return sb.String()
}

// HoldingAdded confirms an add attempt.
func HoldingAdded(h portfolio.Holding, result portfolio.AddResult) string {
	if result == portfolio.AlreadyExists {
		return fmt.Sprintf("%s (%s) is already in the portfolio; nothing changed.\n", h.Name, symbol(h.Symbol))
	}
	return fmt.Sprintf("Added %s %s at %s on %s.\n",
		common.FormatNumber(h.Amount), symbol(h.Symbol), common.FormatMoney(h.PurchasePrice), common.FormatDate(h.PurchaseDate))
}

// HoldingUpdated confirms an amount change.
func HoldingUpdated(h portfolio.Holding) string {
	return fmt.Sprintf("%s amount is now %s.\n", symbol(h.Symbol), common.FormatNumber(h.Amount))
}

// HoldingRemoved confirms a removal.
func HoldingRemoved(coinID string, removed bool) string {
	if !removed {
		return fmt.Sprintf("%s is not in the portfolio; nothing changed.\n", coinID)
	}
	return fmt.Sprintf("Removed %s from the portfolio.\n", coinID)
}
