package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bobmcallan/coin-portal/internal/client"
	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/dashboard"
	"github.com/bobmcallan/coin-portal/internal/market"
	"github.com/bobmcallan/coin-portal/internal/portfolio"
	"github.com/bobmcallan/coin-portal/internal/storage/memory"
)

type stubSource struct {
	mu    sync.Mutex
	coins []market.Coin
	err   error
}

func (s *stubSource) FetchCoins(ctx context.Context, page, perPage int) ([]market.Coin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	n := min(perPage, len(s.coins))
	return append([]market.Coin(nil), s.coins[:n]...), nil
}

func (s *stubSource) FetchCoinDetail(ctx context.Context, id string) (*market.CoinDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, c := range s.coins {
		if c.ID == id {
			return &market.CoinDetail{Coin: c, Description: c.Name + " is a coin."}, nil
		}
	}
	return nil, client.ErrCoinNotFound
}

func (s *stubSource) FetchCoinHistory(ctx context.Context, id string, days int) (*market.PriceHistory, error) {
	return &market.PriceHistory{
		CoinID:   id,
		Days:     days,
		Interval: market.HistoryInterval(days),
		Prices:   []market.PricePoint{{Timestamp: 1752796800000, Price: 100}, {Timestamp: 1752883200000, Price: 110}},
	}, nil
}

func (s *stubSource) Search(ctx context.Context, query string) ([]market.SearchResult, error) {
	return []market.SearchResult{{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", MarketCapRank: 1}}, nil
}

func testCoins() []market.Coin {
	return []market.Coin{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 25000, MarketCap: 500e9, MarketCapRank: 1, TotalVolume: 20e9, PriceChangePercentage24h: 1.5},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 1500, MarketCap: 200e9, MarketCapRank: 2, TotalVolume: 10e9, PriceChangePercentage24h: -2.1},
		{ID: "solana", Symbol: "sol", Name: "Solana", CurrentPrice: 30, MarketCap: 15e9, MarketCapRank: 3, TotalVolume: 1e9, PriceChangePercentage24h: 4.2},
	}
}

func newTestService(t *testing.T, src *stubSource) *dashboard.Service {
	t.Helper()
	logger := common.NewSilentLogger()
	feed := market.NewFeed(src, market.FeedOptions{}, logger)
	charts := market.NewCharts(src, logger)
	ledger := portfolio.NewLedger(context.Background(), memory.NewKVStorage(), "", logger)
	return dashboard.NewService(src, feed, charts, ledger, dashboard.Options{}, logger)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal response: %v (body %s)", err, w.Body.String())
	}
}

func TestHealthHandler_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(nil)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var body map[string]string
	decodeBody(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %s", body["status"])
	}
}

func TestHealthHandler_RejectsNonGET(t *testing.T) {
	handler := NewHealthHandler(nil)

	req := httptest.NewRequest("POST", "/api/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestVersionHandler_ReturnsJSON(t *testing.T) {
	handler := NewVersionHandler(nil)

	req := httptest.NewRequest("GET", "/api/version", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var body map[string]string
	decodeBody(t, w, &body)
	for _, key := range []string{"version", "build", "git_commit"} {
		if _, ok := body[key]; !ok {
			t.Errorf("expected %s field in response", key)
		}
	}
}

func TestMarketHandler_Home(t *testing.T) {
	handler := NewMarketHandler(nil, newTestService(t, &stubSource{coins: testCoins()}))

	req := httptest.NewRequest("GET", "/api/home", nil)
	w := httptest.NewRecorder()
	handler.HandleHome(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var body dashboard.HomeView
	decodeBody(t, w, &body)
	if len(body.Top) != 3 {
		t.Errorf("expected 3 top coins, got %d", len(body.Top))
	}
	if len(body.Gainers) != 2 || body.Gainers[0].ID != "bitcoin" {
		t.Errorf("unexpected gainers: %+v", body.Gainers)
	}
	if len(body.Losers) != 1 || body.Losers[0].ID != "ethereum" {
		t.Errorf("unexpected losers: %+v", body.Losers)
	}
}

func TestMarketHandler_MarketSortAndToggle(t *testing.T) {
	handler := NewMarketHandler(nil, newTestService(t, &stubSource{coins: testCoins()}))

	req := httptest.NewRequest("GET", "/api/market?sort=change&dir=desc&toggle=change", nil)
	w := httptest.NewRecorder()
	handler.HandleMarket(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var body dashboard.MarketView
	decodeBody(t, w, &body)
	if body.Sort.Key != market.SortChange || body.Sort.Direction != market.Asc {
		t.Errorf("expected change/asc after toggle, got %+v", body.Sort)
	}
	if len(body.Coins) != 3 || body.Coins[0].ID != "ethereum" {
		t.Errorf("expected ethereum first, got %+v", body.Coins)
	}
}

func TestMarketHandler_MarketFilterAndUnknownSort(t *testing.T) {
	handler := NewMarketHandler(nil, newTestService(t, &stubSource{coins: testCoins()}))

	req := httptest.NewRequest("GET", "/api/market?q=SOL&sort=bogus", nil)
	w := httptest.NewRecorder()
	handler.HandleMarket(w, req)

	var body dashboard.MarketView
	decodeBody(t, w, &body)
	if body.Sort != market.DefaultSort {
		t.Errorf("expected default sort, got %+v", body.Sort)
	}
	if body.Total != 3 || body.Shown != 1 || body.Coins[0].ID != "solana" {
		t.Errorf("unexpected listing: total=%d shown=%d", body.Total, body.Shown)
	}
}

func TestMarketHandler_Coin(t *testing.T) {
	handler := NewMarketHandler(nil, newTestService(t, &stubSource{coins: testCoins()}))

	req := httptest.NewRequest("GET", "/api/coins/bitcoin?days=30", nil)
	w := httptest.NewRecorder()
	handler.HandleCoin(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var body dashboard.CoinView
	decodeBody(t, w, &body)
	if body.Coin == nil || body.Coin.ID != "bitcoin" {
		t.Fatalf("expected bitcoin detail, got %+v", body.Coin)
	}
	if body.History.Days != 30 || body.History.Interval != "daily" {
		t.Errorf("unexpected history range: %+v", body.History)
	}
	if body.InPortfolio {
		t.Error("expected coin not in portfolio")
	}
}

func TestMarketHandler_CoinErrors(t *testing.T) {
	handler := NewMarketHandler(nil, newTestService(t, &stubSource{coins: testCoins()}))

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"invalid days", "/api/coins/bitcoin?days=14", http.StatusBadRequest},
		{"non-numeric days", "/api/coins/bitcoin?days=week", http.StatusBadRequest},
		{"unknown coin", "/api/coins/not-a-coin", http.StatusNotFound},
		{"missing id", "/api/coins/", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()
			handler.HandleCoin(w, req)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			var body map[string]string
			decodeBody(t, w, &body)
			if body["status"] != "error" || body["error"] == "" {
				t.Errorf("expected error envelope, got %v", body)
			}
		})
	}
}

func TestMarketHandler_Search(t *testing.T) {
	handler := NewMarketHandler(nil, newTestService(t, &stubSource{}))

	req := httptest.NewRequest("GET", "/api/search?q=bit", nil)
	w := httptest.NewRecorder()
	handler.HandleSearch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"id":"bitcoin"`) {
		t.Errorf("expected bitcoin in results, got %s", w.Body.String())
	}
}

func TestPortfolioHandler_AddUpdateRemove(t *testing.T) {
	handler := NewPortfolioHandler(nil, newTestService(t, &stubSource{coins: testCoins()}))

	// Add
	req := httptest.NewRequest("POST", "/api/portfolio", strings.NewReader(`{"coinId":"bitcoin","amount":1}`))
	w := httptest.NewRecorder()
	handler.HandleAdd(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var added struct {
		Result  string            `json:"result"`
		Holding portfolio.Holding `json:"holding"`
	}
	decodeBody(t, w, &added)
	if added.Result != "added" || added.Holding.PurchasePrice != 25000 || added.Holding.Symbol != "btc" {
		t.Errorf("unexpected add response: %+v", added)
	}

	// Adding again is a conflict and leaves the holding unchanged
	req = httptest.NewRequest("POST", "/api/portfolio", strings.NewReader(`{"coinId":"bitcoin","amount":9}`))
	w = httptest.NewRecorder()
	handler.HandleAdd(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}

	// Update
	req = httptest.NewRequest("PATCH", "/api/portfolio/bitcoin", strings.NewReader(`{"amount":2.5}`))
	w = httptest.NewRecorder()
	handler.HandleItem(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated portfolio.Holding
	decodeBody(t, w, &updated)
	if updated.Amount != 2.5 {
		t.Errorf("expected amount 2.5, got %v", updated.Amount)
	}

	// Valuation
	req = httptest.NewRequest("GET", "/api/portfolio", nil)
	w = httptest.NewRecorder()
	handler.HandleList(w, req)
	var view dashboard.PortfolioView
	decodeBody(t, w, &view)
	if len(view.Holdings) != 1 || view.TotalValue != 62500 {
		t.Errorf("unexpected valuation: %+v", view.Valuation)
	}

	// Remove twice: second is a no-op, not an error
	for i, want := range []bool{true, false} {
		req = httptest.NewRequest("DELETE", "/api/portfolio/bitcoin", nil)
		w = httptest.NewRecorder()
		handler.HandleItem(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("remove %d: expected status 200, got %d", i, w.Code)
		}
		var body map[string]interface{}
		decodeBody(t, w, &body)
		if body["removed"] != want {
			t.Errorf("remove %d: expected removed=%v, got %v", i, want, body["removed"])
		}
	}
}

func TestPortfolioHandler_UpdateValidation(t *testing.T) {
	svc := newTestService(t, &stubSource{coins: testCoins()})
	handler := NewPortfolioHandler(nil, svc)
	if _, _, err := svc.AddHolding(context.Background(), "ethereum", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"negative amount", "/api/portfolio/ethereum", `{"amount":-1}`, http.StatusBadRequest},
		{"missing amount", "/api/portfolio/ethereum", `{}`, http.StatusBadRequest},
		{"malformed body", "/api/portfolio/ethereum", `{"amount":`, http.StatusBadRequest},
		{"unknown field", "/api/portfolio/ethereum", `{"purchasePrice":1}`, http.StatusBadRequest},
		{"absent holding", "/api/portfolio/solana", `{"amount":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("PATCH", tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.HandleItem(w, req)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}

	h, _ := svc.Ledger().Get("ethereum")
	if h.Amount != 1 {
		t.Errorf("expected amount unchanged at 1, got %v", h.Amount)
	}
}

func TestPortfolioHandler_AddValidation(t *testing.T) {
	handler := NewPortfolioHandler(nil, newTestService(t, &stubSource{coins: testCoins()}))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing coin id", `{"amount":1}`, http.StatusBadRequest},
		{"negative amount", `{"coinId":"bitcoin","amount":-2}`, http.StatusBadRequest},
		{"unknown coin", `{"coinId":"not-a-coin"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/portfolio", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.HandleAdd(w, req)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestPortfolioHandler_Toggle(t *testing.T) {
	svc := newTestService(t, &stubSource{coins: testCoins()})
	handler := NewPortfolioHandler(nil, svc)

	for _, want := range []bool{true, false} {
		req := httptest.NewRequest("POST", "/api/portfolio/solana/toggle", nil)
		w := httptest.NewRecorder()
		handler.HandleItem(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var body map[string]interface{}
		decodeBody(t, w, &body)
		if body["in_portfolio"] != want {
			t.Errorf("expected in_portfolio=%v, got %v", want, body["in_portfolio"])
		}
	}

	req := httptest.NewRequest("GET", "/api/portfolio/solana/toggle", nil)
	w := httptest.NewRecorder()
	handler.HandleItem(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405 for GET toggle, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{portfolio.ErrInvalidAmount, http.StatusBadRequest},
		{market.ErrInvalidDays, http.StatusBadRequest},
		{dashboard.ErrCoinIDRequired, http.StatusBadRequest},
		{portfolio.ErrNotInPortfolio, http.StatusNotFound},
		{client.ErrCoinNotFound, http.StatusNotFound},
		{client.ErrRateLimited, http.StatusServiceUnavailable},
		{dashboard.ErrUpstream, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.status {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}
