package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/google/subcommands"

	"github.com/bobmcallan/coin-portal/internal/app"
	"github.com/bobmcallan/coin-portal/internal/cli"
	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/config"
	"github.com/bobmcallan/coin-portal/internal/dashboard"
)

var (
	configFile = flag.String("config", "", "Path to config file")
	raw        = flag.Bool("raw", false, "Print markdown without terminal rendering")
	verbose    = flag.Bool("v", false, "Log to stderr at debug level")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	var core *app.Core
	env := &cli.Env{
		Out: os.Stdout,
		Err: os.Stderr,
		Service: func(ctx context.Context) (*dashboard.Service, error) {
			c, err := openCore(ctx)
			if err != nil {
				return nil, err
			}
			core = c
			return c.Service, nil
		},
	}
	cli.Register(commander, env)

	flag.Parse()
	config.LoadVersionFromFile()
	env.Raw = *raw

	status := commander.Execute(context.Background())
	if core != nil {
		if err := core.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(int(status))
}

func openCore(ctx context.Context) (*app.Core, error) {
	paths := config.Discover()
	if *configFile != "" {
		paths = []string{*configFile}
	}
	cfg, err := config.LoadFromFiles(paths...)
	if err != nil {
		return nil, err
	}
	if issues := cfg.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(issues, "; "))
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := common.NewLoggerWithOutput(level, os.Stderr)

	return app.NewCore(ctx, cfg, logger)
}
