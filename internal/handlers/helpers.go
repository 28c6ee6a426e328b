package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/coin-portal/internal/client"
	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/dashboard"
	"github.com/bobmcallan/coin-portal/internal/market"
	"github.com/bobmcallan/coin-portal/internal/portfolio"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case dashboard.IsUserError(err):
		return http.StatusBadRequest
	case errors.Is(err, client.ErrCoinNotFound), errors.Is(err, portfolio.ErrNotInPortfolio):
		return http.StatusNotFound
	case errors.Is(err, client.ErrRateLimited):
		return http.StatusServiceUnavailable
	case errors.Is(err, dashboard.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err and writes it with the status from StatusFor.
// Internal failures are reported without detail.
func writeServiceError(w http.ResponseWriter, logger *common.Logger, r *http.Request, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	if logger != nil {
		evt := logger.Warn()
		if status == http.StatusInternalServerError {
			evt = logger.Error()
		}
		evt.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")
	}
	WriteError(w, status, message)
}

// decodeJSON decodes a request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// sortFromQuery reads sort, dir and toggle parameters. Unknown values fall
// back to the defaults; toggle applies SortState.Select to the result.
func sortFromQuery(r *http.Request) market.SortState {
	q := r.URL.Query()
	key, _ := market.ParseSortKey(q.Get("sort"))
	dir, _ := market.ParseDirection(q.Get("dir"))
	state := market.SortState{Key: key, Direction: dir}
	if t := q.Get("toggle"); t != "" {
		if k, ok := market.ParseSortKey(t); ok {
			state = state.Select(k)
		}
	}
	return state
}

// daysFromQuery reads the days parameter. Absent means zero (keep the
// current range).
func daysFromQuery(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("days"))
	if raw == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || !market.IsValidDays(days) {
		return 0, fmt.Errorf("%w: %q (valid: %v)", market.ErrInvalidDays, raw, market.ValidDays)
	}
	return days, nil
}

// pathID returns the first path segment after prefix.
func pathID(path, prefix string) (id, rest string) {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, rest, _ = strings.Cut(trimmed, "/")
	return id, rest
}
