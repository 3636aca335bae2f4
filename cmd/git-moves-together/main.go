package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "git-moves-together",
		Usage:     "Find files that change together in git history",
		Version:   version,
		ArgsUsage: "[repo...]",
		Description: `Reads the history of one or more git repositories and reports pairs of
files that are changed in the same commit, with how often they move together.

With more than one repository, file names carry the repository name as a
prefix so files can be coupled across repositories.

Use --time-window-minutes to treat every commit made within the same window
as one change, which links work split across several commits or repositories.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "from-days",
				Aliases: []string{"d"},
				Usage:   "Only consider commits from the last N days (default all history)",
				EnvVars: []string{"MAX_DAYS_AGO"},
			},
			&cli.IntFlag{
				Name:    "time-window-minutes",
				Aliases: []string{"t"},
				Usage:   "Group commits into windows of N minutes instead of one change per commit",
				EnvVars: []string{"TIME_WINDOW_MINUTES"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown, toon, yaml, html",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Show only the top N pairs (0 for all)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"GIT_MOVES_TOGETHER_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Diagnostic log level on stderr: debug, info, warn, error",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output (same as --log-level debug)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Re-run the analysis whenever a repository gets new commits",
			},
			&cli.StringSliceFlag{
				Name:    "repo",
				Usage:   "Repository to analyze when none are given as arguments",
				EnvVars: []string{"GIT_REPO"},
				Hidden:  true,
			},
		},
		Action: runRootCmd,
		Commands: []*cli.Command{
			initCmd(),
			mcpCmd(),
		},
	}
}
