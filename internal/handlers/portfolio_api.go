package handlers

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/dashboard"
	"github.com/bobmcallan/coin-portal/internal/portfolio"
)

// PortfolioHandler serves the ledger and its valuation as JSON.
type PortfolioHandler struct {
	logger  *common.Logger
	service *dashboard.Service
}

// NewPortfolioHandler creates a new portfolio API handler.
func NewPortfolioHandler(logger *common.Logger, service *dashboard.Service) *PortfolioHandler {
	return &PortfolioHandler{logger: logger, service: service}
}

type addHoldingRequest struct {
	CoinID string   `json:"coinId"`
	Amount *float64 `json:"amount,omitempty"`
}

type updateHoldingRequest struct {
	Amount *float64 `json:"amount"`
}

// HandleList handles GET /api/portfolio.
func (h *PortfolioHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.service.Portfolio(r.Context()))
}

// HandleAdd handles POST /api/portfolio. A missing amount adds a zero
// holding. Answers 201 when added and 409 when the coin is already held.
func (h *PortfolioHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addHoldingRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var amount float64
	if req.Amount != nil {
		amount = *req.Amount
	}

	holding, result, err := h.service.AddHolding(r.Context(), req.CoinID, amount)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}

	status := http.StatusCreated
	if result == portfolio.AlreadyExists {
		status = http.StatusConflict
	}
	WriteJSON(w, status, map[string]interface{}{
		"result":  result.String(),
		"holding": holding,
	})
}

// HandleItem routes /api/portfolio/{id} and /api/portfolio/{id}/toggle.
func (h *PortfolioHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/api/portfolio/")
	if id == "" {
		WriteError(w, http.StatusNotFound, "coin id is required")
		return
	}

	switch rest {
	case "":
	case "toggle":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		h.handleToggle(w, r, id)
		return
	default:
		WriteError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.handleGet(w, r, id)
	case http.MethodPatch, http.MethodPut:
		h.handleUpdate(w, r, id)
	case http.MethodDelete:
		h.handleRemove(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PortfolioHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	holding, ok := h.service.Ledger().Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, portfolio.ErrNotInPortfolio.Error())
		return
	}
	WriteJSON(w, http.StatusOK, holding)
}

func (h *PortfolioHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req updateHoldingRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount == nil {
		WriteError(w, http.StatusBadRequest, "amount is required")
		return
	}

	holding, err := h.service.UpdateHolding(r.Context(), id, *req.Amount)
	if err != nil {
		if errors.Is(err, portfolio.ErrInvalidAmount) && h.logger != nil {
			h.logger.Info().Str("coin_id", id).Float64("amount", *req.Amount).Msg("Rejected holding amount")
		}
		writeServiceError(w, h.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, holding)
}

func (h *PortfolioHandler) handleRemove(w http.ResponseWriter, r *http.Request, id string) {
	removed, err := h.service.RemoveHolding(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"coinId":  id,
		"removed": removed,
	})
}

func (h *PortfolioHandler) handleToggle(w http.ResponseWriter, r *http.Request, id string) {
	held, err := h.service.Toggle(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"coinId":       id,
		"in_portfolio": held,
	})
}
