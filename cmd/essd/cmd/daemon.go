package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/embed"
	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/graphstore"
	"github.com/veracity-dev/ess/internal/vectorstore"
	"github.com/veracity-dev/ess/internal/watcher"
)

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the watcher daemon that keeps registered projects continuously indexed",
		Long: `The daemon watches every enabled registered project (spec §4.8) for
changes, debounces bursts of edits, and re-runs the write path so the
graph and vector stores stay fresh without a manual 'essd index'.

It runs in the foreground; stop it with Ctrl+C or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd)
		},
	}
	return cmd
}

func runDaemon(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return esserr.Config("failed to load config", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return esserr.Internal("failed to build logger", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	graph, err := graphstore.Open(ctx, cfg.Graph, log)
	if err != nil {
		return err
	}
	defer graph.Close(ctx) //nolint:errcheck

	vector, err := vectorstore.Open(cfg.Vector, log)
	if err != nil {
		return err
	}
	defer vector.Close() //nolint:errcheck

	embedder := embed.NewDeterministic(cfg.Embed.ModelVersion, cfg.Embed.Dimensions, cfg.Embed.Seed)
	breaker := esserr.NewCircuitBreaker("embed",
		esserr.WithFailureThreshold(cfg.Circuit.FailureThreshold),
		esserr.WithResetTimeout(cfg.Circuit.ResetTimeout),
		esserr.WithSuccessThreshold(cfg.Circuit.SuccessThreshold))
	embedSvc, err := embed.NewService(embedder, cfg.Embed, breaker, log)
	if err != nil {
		return esserr.Internal("failed to build embed service", err)
	}

	intentPath := filepath.Join(cfg.Server.StateDir, "watcher-intents.db")
	intents, err := watcher.OpenIntentLog(intentPath)
	if err != nil {
		return esserr.Internal("failed to open watcher intent log", err)
	}
	defer intents.Close() //nolint:errcheck

	d := watcher.NewDaemon(log, cfg, registryFilePath(), graph, vector, embedSvc, intents)

	fmt.Fprintln(cmd.OutOrStdout(), "essd daemon started, watching registered projects (Ctrl+C to stop)")
	log.Info("daemon starting", zap.String("registry", registryFilePath()))

	return d.Run(ctx)
}
