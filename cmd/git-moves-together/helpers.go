package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/PurpleBooth/git-moves-together/internal/logging"
	"github.com/PurpleBooth/git-moves-together/pkg/config"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

// getPaths returns repositories from positional args, then --repo (GIT_REPO),
// defaulting to ["."].
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	if repos := c.StringSlice("repo"); len(repos) > 0 {
		return repos
	}
	return []string{"."}
}

// buildConfig loads the config file, applies flag overrides and validates
// the result before any history is read.
func buildConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault()
	}
	if err != nil {
		return nil, err
	}

	if c.IsSet("from-days") {
		cfg.Analysis.MaxDaysAgo = config.Days(c.Int("from-days"))
	}
	if c.IsSet("time-window-minutes") {
		cfg.Analysis.Grouping = config.GroupingTimeWindow
		cfg.Analysis.TimeWindowMinutes = c.Int("time-window-minutes")
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.IsSet("top") {
		cfg.Output.Top = c.Int("top")
	}
	if c.Bool("no-color") {
		cfg.Output.Color = false
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Output.Color {
		color.NoColor = true
	}
	return cfg, nil
}

// buildLogger writes diagnostics to stderr so stdout stays clean for
// reports and the MCP protocol.
func buildLogger(cfg *config.Config, mode logging.Mode) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return logging.New(os.Stderr, level, mode), nil
}
