package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/PurpleBooth/git-moves-together/internal/logging"
	"github.com/PurpleBooth/git-moves-together/internal/output"
	"github.com/PurpleBooth/git-moves-together/internal/progress"
	"github.com/PurpleBooth/git-moves-together/internal/remote"
	"github.com/PurpleBooth/git-moves-together/internal/report"
	"github.com/PurpleBooth/git-moves-together/internal/service/analysis"
	"github.com/PurpleBooth/git-moves-together/pkg/config"
	"github.com/PurpleBooth/git-moves-together/pkg/watch"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

func runRootCmd(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}

	mode := logging.ModeCLI
	if c.Bool("watch") {
		mode = logging.ModeWatch
	}
	logger, err := buildLogger(cfg, mode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := getPaths(c)
	if c.Bool("watch") {
		return runWatch(ctx, cfg, logger, paths, c.String("output"))
	}
	return analyzeOnce(ctx, cfg, logger, paths, c.String("output"))
}

func analyzeOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger, paths []string, outPath string) error {
	svc := analysis.New(
		analysis.WithConfig(cfg),
		analysis.WithLogger(logger),
	)

	tracker := progress.NewSpinner("Reading history")
	result, err := svc.AnalyzeCoupling(ctx, paths, analysis.CouplingOptions{
		OnProgress: tracker.Update,
	})
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.FinishSuccess()

	formatter, err := output.NewFormatter(output.ParseFormat(cfg.Output.Format), outPath, cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(report.NewCoupling(result, cfg.Output.Top))
}

func runWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, paths []string, outPath string) error {
	repos := make([]string, 0, len(paths))
	for _, p := range paths {
		if src, _ := remote.Parse(p); src != nil {
			return fmt.Errorf("--watch needs local repositories, %s is remote", p)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		repos = append(repos, abs)
	}

	if err := analyzeOnce(ctx, cfg, logger, repos, outPath); err != nil {
		return err
	}

	w, err := watch.NewWatcher(repos, cfg.Debounce())
	if err != nil {
		return err
	}
	defer w.Stop()

	w.SetCallback(func(repo string) {
		logger.Debug("history moved", "source", repo)
		if err := analyzeOnce(ctx, cfg, logger, repos, outPath); err != nil {
			color.Red("Error: %v", err)
		}
	})

	err = w.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
