package renderer

import (
	"strings"
	"testing"

	"github.com/bobmcallan/coin-portal/internal/market"
	"github.com/bobmcallan/coin-portal/internal/portfolio"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// doc is the parsed shape of rendered markdown.
type doc struct {
	headings []string
	// tables holds the body row count of each table, in order.
	tables []int
}

func parse(t *testing.T, md string) doc {
	t.Helper()
	src := []byte(md)
	root := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(src))

	var d doc
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			d.headings = append(d.headings, string(node.Text(src)))
		case *east.Table:
			rows := 0
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if _, ok := c.(*east.TableRow); ok {
					rows++
				}
			}
			d.tables = append(d.tables, rows)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	return d
}

func coins() []market.Coin {
	return []market.Coin{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 64000, MarketCap: 1.26e12, MarketCapRank: 1, TotalVolume: 3.1e10, PriceChangePercentage24h: 1.25},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 3100, MarketCap: 3.72e11, MarketCapRank: 2, TotalVolume: 1.5e10, PriceChangePercentage24h: -0.8},
		{ID: "pipe", Symbol: "p|p", Name: "Pipe|Coin", CurrentPrice: 1},
	}
}

func TestMarket_TableRows(t *testing.T) {
	md := Market(coins(), 3, "", market.DefaultSort, false)
	d := parse(t, md)

	if len(d.headings) != 1 || d.headings[0] != "Market" {
		t.Errorf("unexpected headings: %v", d.headings)
	}
	if len(d.tables) != 1 || d.tables[0] != 3 {
		t.Fatalf("expected one table with 3 rows, got %v", d.tables)
	}
	if !strings.Contains(md, "$64,000.00") || !strings.Contains(md, "$1.26T") {
		t.Errorf("expected formatted price and cap:\n%s", md)
	}
	if !strings.Contains(md, "Pipe\\|Coin") {
		t.Error("expected pipe in name to be escaped")
	}
	if !strings.Contains(md, "**Sorted by:** market_cap desc") {
		t.Error("expected sort line")
	}
}

func TestMarket_EmptyAndStale(t *testing.T) {
	md := Market(nil, 100, "zzz", market.DefaultSort, true)
	if !strings.Contains(md, "No coins found.") {
		t.Error("expected empty message")
	}
	if !strings.Contains(md, "could not be refreshed") {
		t.Error("expected stale note")
	}
	if !strings.Contains(md, "(0 of 100 coins)") {
		t.Errorf("expected search count line:\n%s", md)
	}
	if d := parse(t, md); len(d.tables) != 0 {
		t.Errorf("expected no table, got %v", d.tables)
	}
}

func TestHome_Sections(t *testing.T) {
	c := coins()
	md := Home(c[:2], c[:1], c[1:2], false)
	d := parse(t, md)

	want := []string{"Crypto Market Overview", "Top Coins", "Top Gainers", "Top Losers"}
	if strings.Join(d.headings, ",") != strings.Join(want, ",") {
		t.Errorf("headings = %v, want %v", d.headings, want)
	}
	if len(d.tables) != 1 || d.tables[0] != 2 {
		t.Errorf("expected top coins table with 2 rows, got %v", d.tables)
	}
	if !strings.Contains(md, "-0.80%") {
		t.Error("expected loser percentage")
	}
}

func TestHome_NoMovers(t *testing.T) {
	md := Home(nil, nil, nil, false)
	if strings.Count(md, "None in the current snapshot.") != 2 {
		t.Errorf("expected two empty mover sections:\n%s", md)
	}
}

func TestCoin_WithHistory(t *testing.T) {
	d := &market.CoinDetail{
		Coin:        coins()[0],
		ATH:         73738,
		ATHDate:     "2024-03-14T07:10:36.635Z",
		Description: "Bitcoin is the first cryptocurrency.\nMore text.",
		Homepage:    "http://www.bitcoin.org",
		MaxSupply:   21e6,
	}
	h := &market.PriceHistory{CoinID: "bitcoin", Days: 7, Interval: "daily", Prices: []market.PricePoint{
		{Timestamp: 1, Price: 100}, {Timestamp: 2, Price: 150}, {Timestamp: 3, Price: 90}, {Timestamp: 4, Price: 110},
	}}

	md := Coin(d, h, true)
	parsed := parse(t, md)

	want := []string{"Bitcoin (BTC)", "Market Data", "Price History (7 days)", "About"}
	if strings.Join(parsed.headings, ",") != strings.Join(want, ",") {
		t.Errorf("headings = %v, want %v", parsed.headings, want)
	}
	if !strings.Contains(md, "**In portfolio:** yes") {
		t.Error("expected membership line")
	}
	if !strings.Contains(md, "Mar 14, 2024") {
		t.Error("expected formatted ATH date")
	}
	if strings.Contains(md, "More text.") {
		t.Error("expected only the first paragraph of the description")
	}
	if !strings.Contains(md, "**Change:** +10.00%") {
		t.Errorf("expected range change:\n%s", md)
	}
	if !strings.Contains(md, "| Total Supply | ∞ |") {
		t.Error("expected unbounded total supply")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(&market.PriceHistory{Prices: []market.PricePoint{{Price: 200}, {Price: 300}, {Price: 100}}})
	if s.Open != 200 || s.Close != 100 || s.High != 300 || s.Low != 100 || s.Change != -50 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if (Summarize(nil) != HistorySummary{}) {
		t.Error("expected zero summary for nil history")
	}
	if got := Summarize(&market.PriceHistory{Prices: []market.PricePoint{{Price: 0}, {Price: 5}}}); got.Change != 0 {
		t.Errorf("zero open should give zero change, got %v", got.Change)
	}
}

func TestPortfolio_Valuation(t *testing.T) {
	holdings := []portfolio.Holding{
		{CoinID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Amount: 1, PurchasePrice: 20000},
		{CoinID: "gone", Symbol: "gone", Name: "Gone", Amount: 2, PurchasePrice: 10},
	}
	v := portfolio.Value(holdings, portfolio.NewPriceIndex([]market.Coin{{ID: "bitcoin", CurrentPrice: 25000}}), portfolio.UnpricedAsZero)

	md := Portfolio(v, false)
	d := parse(t, md)
	if len(d.tables) != 1 || d.tables[0] != 2 {
		t.Fatalf("expected holdings table with 2 rows, got %v", d.tables)
	}
	for _, s := range []string{"**Total Value:** $25,000.00", "**Total P&L:** $4,980.00", "valued at zero", "n/a"} {
		if !strings.Contains(md, s) {
			t.Errorf("expected %q in:\n%s", s, md)
		}
	}
}

func TestPortfolio_Empty(t *testing.T) {
	md := Portfolio(portfolio.Value(nil, nil, portfolio.UnpricedAsZero), false)
	if !strings.Contains(md, "Your portfolio is empty") {
		t.Errorf("expected empty message:\n%s", md)
	}
}

func TestSearch(t *testing.T) {
	md := Search("sol", []market.SearchResult{{ID: "solana", Name: "Solana", Symbol: "SOL", MarketCapRank: 5}})
	if d := parse(t, md); len(d.tables) != 1 || d.tables[0] != 1 {
		t.Errorf("expected one result row, got %v", d.tables)
	}
	if !strings.Contains(Search("zzz", nil), "No matching coins.") {
		t.Error("expected no-match message")
	}
}

func TestHoldingMessages(t *testing.T) {
	h := portfolio.Holding{CoinID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Amount: 0.5, PurchasePrice: 64000, PurchaseDate: "2025-07-18T09:30:00.000Z"}

	if got := HoldingAdded(h, portfolio.Added); got != "Added 0.5 BTC at $64,000.00 on Jul 18, 2025.\n" {
		t.Errorf("unexpected add message %q", got)
	}
	if got := HoldingAdded(h, portfolio.AlreadyExists); !strings.Contains(got, "already in the portfolio") {
		t.Errorf("unexpected exists message %q", got)
	}
	if got := HoldingRemoved("bitcoin", false); !strings.Contains(got, "not in the portfolio") {
		t.Errorf("unexpected remove message %q", got)
	}
	if got := HoldingUpdated(h); got != "BTC amount is now 0.5.\n" {
		t.Errorf("unexpected update message %q", got)
	}
}
