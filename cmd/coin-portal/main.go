package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobmcallan/coin-portal/internal/app"
	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/config"
	"github.com/bobmcallan/coin-portal/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP = flag.Int("p", 0, "Server port (shorthand)")
	serverHost  = flag.String("host", "", "Server host (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()
	config.LoadVersionFromFile()

	if *showVersion {
		fmt.Printf("coin-portal version %s\n", config.GetFullVersion())
		os.Exit(0)
	}

	// Merge port flags (shorthand takes precedence)
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	if len(configFiles) == 0 {
		configFiles = config.Discover()
	}

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Apply CLI flag overrides (highest priority)
	config.ApplyFlagOverrides(cfg, finalPort, *serverHost)

	if issues := cfg.Validate(); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Configuration error: mandatory fields are missing or invalid:")
		fmt.Fprintln(os.Stderr, "")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "See config/coin-portal.toml for the available settings.")
		fmt.Fprintln(os.Stderr, "Values can be set via TOML file, COIN_* environment variables, or CLI flags.")
		fmt.Fprintln(os.Stderr, "")
		os.Exit(1)
	}

	logger := common.NewLoggerFromConfig(cfg.LoggerConfig())

	logger.Info().
		Int("port", cfg.Server.Port).
		Str("host", cfg.Server.Host).
		Str("environment", cfg.Environment).
		Str("vs_currency", cfg.Market.VsCurrency).
		Str("config_files", fmt.Sprintf("%v", configFiles)).
		Msg("configuration loaded")

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		os.Exit(1)
	}

	srv := server.New(application)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("server failed to start")
			os.Exit(1)
		}
	}()

	// Give goroutine a moment to start
	time.Sleep(100 * time.Millisecond)

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("server ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("shutdown signal received")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	if err := application.Close(); err != nil {
		logger.Error().Err(err).Msg("application shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
