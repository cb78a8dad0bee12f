package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/discover"
	"github.com/veracity-dev/ess/internal/embed"
	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/graphstore"
	"github.com/veracity-dev/ess/internal/ingest"
	"github.com/veracity-dev/ess/internal/parse"
	"github.com/veracity-dev/ess/internal/registry"
	"github.com/veracity-dev/ess/internal/tui"
	"github.com/veracity-dev/ess/internal/vectorstore"
)

func newIndexCmd() *cobra.Command {
	var force bool
	var incremental bool
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "index <project>",
		Short: "Run the write path (discover, parse, chunk, embed, write) for a registered project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := args[0]
			if force && incremental && cmd.Flags().Changed("incremental") {
				return esserr.Validation("--force and --incremental are mutually exclusive", nil)
			}

			p, err := registry.Get(registryFilePath(), project)
			if err != nil {
				return err
			}
			if !p.Enabled {
				return esserr.Validation(fmt.Sprintf("project %q is registered but disabled", project), nil)
			}

			cfg, err := loadConfig()
			if err != nil {
				return esserr.Config("failed to load config", err)
			}
			log, err := newLogger(cfg)
			if err != nil {
				return esserr.Internal("failed to build logger", err)
			}
			defer log.Sync() //nolint:errcheck

			ctx := cmd.Context()

			gitignore, _ := os.ReadFile(filepath.Join(p.RootDir, ".gitignore"))
			policy := discover.NewIgnorePolicy(string(gitignore), p.FilePatterns)

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

			parser := parse.New()
			defer parser.Close()

			pipeline := ingest.NewPipeline(log, cfg, policy, parser, embedSvc, graph, vector)

			renderer := tui.NewRenderer(tui.Config{
				Output:     cmd.OutOrStdout(),
				ForcePlain: noTUI,
				Project:    project,
			})
			if err := renderer.Start(ctx); err != nil {
				return esserr.Internal("failed to start progress renderer", err)
			}
			pipeline.OnProgress = func(stage string, current, total int, file string) {
				s := tui.StageScan
				if stage == "index" {
					s = tui.StageIndex
				}
				renderer.UpdateProgress(tui.ProgressEvent{Stage: s, Current: current, Total: total, CurrentFile: file})
			}
			pipeline.OnError = func(file string, err error) {
				renderer.AddError(tui.ErrorEvent{File: file, Err: err})
			}

			cachePath := ingest.HashCachePath(cfg.Server.StateDir, project)
			cache := ingest.LoadHashCache(cachePath)

			summary, nextCache, err := pipeline.Run(ctx, p.RootDir, project, cache, force)
			if err != nil {
				_ = renderer.Stop()
				return err
			}
			if err := ingest.SaveHashCache(cachePath, nextCache); err != nil {
				log.Warn("failed to persist hash cache", zap.Error(err))
			}

			renderer.Complete(tui.CompletionStats{
				FilesScanned:   summary.FilesScanned,
				FilesUnchanged: summary.FilesUnchanged,
				FilesFailed:    summary.FilesFailed,
				FilesSkipped:   summary.FilesSkipped,
				Duration:       summary.Duration,
			})
			return renderer.Stop()
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-ingest every discovered file regardless of the hash cache")
	cmd.Flags().BoolVar(&incremental, "incremental", true, "only re-ingest files whose content hash changed (default)")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable the interactive progress view, use plain text output")

	return cmd
}
