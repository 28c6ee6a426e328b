package handlers

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/dashboard"
)

// MarketHandler serves the read-only market views as JSON.
type MarketHandler struct {
	logger  *common.Logger
	service *dashboard.Service
}

// NewMarketHandler creates a new market API handler.
func NewMarketHandler(logger *common.Logger, service *dashboard.Service) *MarketHandler {
	return &MarketHandler{logger: logger, service: service}
}

// HandleHome handles GET /api/home.
func (h *MarketHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.service.Home(r.Context()))
}

// HandleMarket handles GET /api/market?q=&sort=&dir=&toggle=.
func (h *MarketHandler) HandleMarket(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	view := h.service.Market(r.Context(), r.URL.Query().Get("q"), sortFromQuery(r))
	WriteJSON(w, http.StatusOK, view)
}

// HandleCoin handles GET /api/coins/{id}?days=.
func (h *MarketHandler) HandleCoin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id, rest := pathID(r.URL.Path, "/api/coins/")
	if id == "" || rest != "" {
		WriteError(w, http.StatusNotFound, "coin id is required")
		return
	}
	days, err := daysFromQuery(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.service.Coin(r.Context(), id, days)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// HandleSearch handles GET /api/search?q=.
func (h *MarketHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	results, err := h.service.Search(r.Context(), query)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
	})
}
