package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/coin-portal/internal/app"
	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/config"
	"github.com/bobmcallan/coin-portal/internal/mcp"
)

func main() {
	stdio := flag.Bool("stdio", false, "Use stdio transport (for desktop MCP clients)")
	configFile := flag.String("config", "", "Path to config file")
	addr := flag.String("addr", ":4252", "Listen address for the streamable HTTP transport")
	flag.Parse()

	config.LoadVersionFromFile()

	paths := config.Discover()
	if *configFile != "" {
		paths = []string{*configFile}
	}
	cfg, err := config.LoadFromFiles(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol in stdio mode
	logCfg := cfg.LoggerConfig()
	if *stdio {
		logCfg.Outputs = []string{"file"}
	}
	logger := common.NewLoggerFromConfig(logCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, err := app.NewCore(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer core.Close()
	core.Feed.Start(ctx)

	mcpServer := mcp.NewServer(core.Service, logger)

	if *stdio {
		if err := server.ServeStdio(mcpServer); err != nil {
			fmt.Fprintf(os.Stderr, "stdio server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	httpServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithStateLess(true),
	)

	logger.Info().Str("address", *addr).Msg("Starting MCP Streamable HTTP")
	fmt.Fprintf(os.Stderr, "Starting MCP Streamable HTTP on %s\n", *addr)

	if err := httpServer.Start(*addr); err != nil {
		fmt.Fprintf(os.Stderr, "http server error: %v\n", err)
		os.Exit(1)
	}
}
