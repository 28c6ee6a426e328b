package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/coin-portal/internal/client"
	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/config"
	"github.com/bobmcallan/coin-portal/internal/dashboard"
	"github.com/bobmcallan/coin-portal/internal/handlers"
	"github.com/bobmcallan/coin-portal/internal/interfaces"
	"github.com/bobmcallan/coin-portal/internal/market"
	"github.com/bobmcallan/coin-portal/internal/mcp"
	"github.com/bobmcallan/coin-portal/internal/portfolio"
	"github.com/bobmcallan/coin-portal/internal/storage"
)

// Core holds the components shared by the portal, the MCP binary and coinctl.
type Core struct {
	Config *config.Config
	Logger *common.Logger

	Storage interfaces.StorageManager
	Source  market.Source
	Feed    *market.Feed
	Charts  *market.Charts
	Ledger  *portfolio.Ledger
	Service *dashboard.Service
}

// Option configures NewCore.
type Option func(*options)

type options struct {
	source market.Source
}

// WithSource replaces the CoinGecko client, for tests.
func WithSource(src market.Source) Option {
	return func(o *options) { o.source = src }
}

// NewCore opens storage, loads the ledger and builds the market feed.
func NewCore(ctx context.Context, cfg *config.Config, logger *common.Logger, opts ...Option) (*Core, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	policy, err := portfolio.ParseUnpricedPolicy(cfg.Portfolio.Unpriced)
	if err != nil {
		return nil, err
	}

	source := o.source
	if source == nil {
		cg, err := client.NewCoinGeckoClient(&cfg.Market, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create market client: %w", err)
		}
		source = cg
	}

	store, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	feed := market.NewFeed(source, market.FeedOptions{
		RefreshInterval: cfg.Market.GetRefreshInterval(),
		ListingSize:     cfg.Market.ListingSize,
	}, logger)
	charts := market.NewCharts(source, logger)
	ledger := portfolio.NewLedger(ctx, store.KeyValueStorage(), cfg.Portfolio.StorageKey, logger)

	service := dashboard.NewService(source, feed, charts, ledger, dashboard.Options{
		HomeSize:      cfg.Market.HomeSize,
		ListingSize:   cfg.Market.ListingSize,
		PortfolioSize: cfg.Market.PortfolioSize,
		Policy:        policy,
	}, logger)

	logger.Debug().
		Str("vs_currency", cfg.Market.VsCurrency).
		Str("unpriced", policy.String()).
		Int("holdings", ledger.Len()).
		Msg("core initialized")

	return &Core{
		Config:  cfg,
		Logger:  logger,
		Storage: store,
		Source:  source,
		Feed:    feed,
		Charts:  charts,
		Ledger:  ledger,
		Service: service,
	}, nil
}

// Close closes storage.
func (c *Core) Close() error {
	if c.Storage == nil {
		return nil
	}
	return c.Storage.Close()
}

// App holds all application components and dependencies.
type App struct {
	*Core

	// HTTP handlers
	PageHandler      *handlers.PageHandler
	HealthHandler    *handlers.HealthHandler
	VersionHandler   *handlers.VersionHandler
	MarketHandler    *handlers.MarketHandler
	PortfolioHandler *handlers.PortfolioHandler
	MCPHandler       *mcp.Handler

	cancel context.CancelFunc
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger, opts ...Option) (*App, error) {
	// Validate environment setting
	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("running in dev mode")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	ctx, cancel := context.WithCancel(context.Background())
	core, err := NewCore(ctx, cfg, logger, opts...)
	if err != nil {
		cancel()
		return nil, err
	}

	a := &App{Core: core, cancel: cancel}
	a.initHandlers()

	a.Feed.Start(ctx)

	logger.Info().Msg("application initialization complete")

	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.PageHandler = handlers.NewPageHandler(a.Logger, a.Service, a.Config.Market.VsCurrency, a.Config.IsDevMode())
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.MarketHandler = handlers.NewMarketHandler(a.Logger, a.Service)
	a.PortfolioHandler = handlers.NewPortfolioHandler(a.Logger, a.Service)
	a.MCPHandler = mcp.NewHandler(a.Service, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close stops the background refresher and closes storage.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	return a.Core.Close()
}
