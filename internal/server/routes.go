package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	pages := s.app.PageHandler

	// UI page routes (HTML templates)
	mux.HandleFunc("/", pages.ServeHome)
	mux.HandleFunc("/market", pages.ServeMarket)
	mux.HandleFunc("/coins/", pages.ServeCoin)
	mux.HandleFunc("/portfolio", pages.ServePortfolio)

	// Static files (CSS, JS)
	mux.HandleFunc("/static/", pages.StaticFileHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)
	mux.HandleFunc("/api/home", s.app.MarketHandler.HandleHome)
	mux.HandleFunc("/api/market", s.app.MarketHandler.HandleMarket)
	mux.HandleFunc("/api/coins/", s.app.MarketHandler.HandleCoin)
	mux.HandleFunc("/api/search", s.app.MarketHandler.HandleSearch)

	portfolio := s.app.PortfolioHandler
	mux.HandleFunc("/api/portfolio", func(w http.ResponseWriter, r *http.Request) {
		RouteResourceCollection(w, r, portfolio.HandleList, portfolio.HandleAdd)
	})
	mux.HandleFunc("/api/portfolio/", portfolio.HandleItem)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"status":"error","error":"The requested endpoint does not exist"}`))
}
