package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/config"
	"github.com/bobmcallan/coin-portal/internal/dashboard"
	"github.com/bobmcallan/coin-portal/internal/market"
)

// PageHandler serves HTML pages rendered with Go templates.
type PageHandler struct {
	logger     *common.Logger
	templates  *template.Template
	service    *dashboard.Service
	vsCurrency string
	devMode    bool
}

// NewPageHandler creates a new page handler that loads templates from the pages directory.
func NewPageHandler(logger *common.Logger, service *dashboard.Service, vsCurrency string, devMode bool) *PageHandler {
	pagesDir := FindPagesDir()

	templates := template.New("").Funcs(templateFuncs(vsCurrency))
	template.Must(templates.ParseGlob(filepath.Join(pagesDir, "*.html")))
	template.Must(templates.ParseGlob(filepath.Join(pagesDir, "partials", "*.html")))

	return &PageHandler{
		logger:     logger,
		templates:  templates,
		service:    service,
		vsCurrency: vsCurrency,
		devMode:    devMode,
	}
}

func templateFuncs(vsCurrency string) template.FuncMap {
	return template.FuncMap{
		"money":   func(v float64) string { return common.FormatMoneyIn(v, vsCurrency) },
		"compact": func(v float64) string { return common.FormatCurrencyIn(v, vsCurrency) },
		"number":  common.FormatNumber,
		"percent": common.FormatPercentage,
		"date":    common.FormatDate,
		"change":  common.ChangeClass,
		"upper":   strings.ToUpper,
		"sortLink": func(state market.SortState, query string, key string) string {
			next := state.Select(market.SortKey(key))
			return "/market?q=" + template.URLQueryEscaper(query) + "&sort=" + string(next.Key) + "&dir=" + string(next.Direction)
		},
		"sortMark": func(state market.SortState, key string) string {
			if string(state.Key) != key {
				return ""
			}
			if state.Direction == market.Asc {
				return "↑"
			}
			return "↓"
		},
	}
}

// FindPagesDir locates the pages directory.
func FindPagesDir() string {
	dirs := []string{
		"./pages",
		"../pages",
		"../../pages",
		".",
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return "."
}

func (h *PageHandler) baseData(page, title string) map[string]interface{} {
	return map[string]interface{}{
		"Page":          page,
		"Title":         title,
		"DevMode":       h.devMode,
		"PortalVersion": config.GetVersion(),
		"Currency":      strings.ToUpper(h.vsCurrency),
	}
}

func (h *PageHandler) render(w http.ResponseWriter, templateName string, data map[string]interface{}) {
	h.renderStatus(w, http.StatusOK, templateName, data)
}

// renderStatus executes the template into a buffer so a failed render can
// still be answered with a 500.
func (h *PageHandler) renderStatus(w http.ResponseWriter, status int, templateName string, data map[string]interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		if h.logger != nil {
			h.logger.Error().Str("template", templateName).Err(err).Msg("Failed to render page")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// ServeHome renders GET /: headline coins and the day's movers.
func (h *PageHandler) ServeHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	data := h.baseData("home", "Home")
	data["Home"] = h.service.Home(r.Context())
	h.render(w, "home.html", data)
}

// ServeMarket renders GET /market?q=&sort=&dir=.
func (h *PageHandler) ServeMarket(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	view := h.service.Market(r.Context(), r.URL.Query().Get("q"), sortFromQuery(r))
	held := make(map[string]bool)
	for _, holding := range h.service.Ledger().Holdings() {
		held[holding.CoinID] = true
	}

	data := h.baseData("market", "Market")
	data["Market"] = view
	data["Held"] = held
	h.render(w, "market.html", data)
}

// ServeCoin renders GET /coins/{id}?days=.
func (h *PageHandler) ServeCoin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id, rest := pathID(r.URL.Path, "/coins/")
	if id == "" || rest != "" {
		http.NotFound(w, r)
		return
	}
	days, err := daysFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := h.service.Coin(r.Context(), id, days)
	if err != nil {
		status := StatusFor(err)
		if h.logger != nil {
			h.logger.Warn().Err(err).Str("coin_id", id).Int("status", status).Msg("Coin page unavailable")
		}
		data := h.baseData("coin", id)
		data["CoinID"] = id
		data["Error"] = err.Error()
		h.renderStatus(w, status, "coin.html", data)
		return
	}

	data := h.baseData("coin", view.Coin.Name)
	data["CoinID"] = id
	data["View"] = view
	data["Ranges"] = market.ValidDays
	h.render(w, "coin.html", data)
}

// ServePortfolio renders GET /portfolio.
func (h *PageHandler) ServePortfolio(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	data := h.baseData("portfolio", "Portfolio")
	data["Portfolio"] = h.service.Portfolio(r.Context())
	h.render(w, "portfolio.html", data)
}

// StaticFileHandler serves static files (CSS, JS, images).
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	pagesDir := FindPagesDir()
	staticDir := filepath.Join(pagesDir, "static")

	// Remove /static/ prefix from URL path
	path := r.URL.Path[len("/static/"):]
	fullPath := filepath.Join(staticDir, path)

	// Security: prevent directory traversal
	absStaticDir, _ := filepath.Abs(staticDir)
	absFullPath, _ := filepath.Abs(fullPath)
	if len(absFullPath) < len(absStaticDir) || absFullPath[:len(absStaticDir)] != absStaticDir {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, fullPath)
}
