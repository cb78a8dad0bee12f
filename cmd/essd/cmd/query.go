package cmd

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/veracity-dev/ess/internal/embed"
	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/graphstore"
	"github.com/veracity-dev/ess/internal/query"
	"github.com/veracity-dev/ess/internal/registry"
	"github.com/veracity-dev/ess/internal/vectorstore"
	"github.com/veracity-dev/ess/internal/veracity"
)

func newQueryCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "query <project> <question>",
		Short: "Run a question through the dual-backend query engine (C7)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, question := args[0], args[1]

			if _, err := registry.Get(registryFilePath(), project); err != nil {
				return err
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
			breakers := esserr.NewRegistry()
			embedSvc, err := embed.NewService(embedder, cfg.Embed, breakers.Get("embed"), log)
			if err != nil {
				return esserr.Internal("failed to build embed service", err)
			}

			validator := veracity.NewValidator(cfg.Veracity, graph)
			engine := query.NewEngine(log, cfg.Query, embedSvc, graph, vector, breakers, validator)

			resp, err := engine.Query(ctx, query.Request{
				Query:     question,
				RequestID: uuid.NewString(),
				Project:   project,
				Mode:      mode,
			})
			if err != nil {
				return esserr.Internal("query failed", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return err
			}

			if resp.Status == query.StatusUnavailable {
				return esserr.Backend("query", resp.FallbackMessage, nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", query.ModeOneShot, "one_shot|conversational")

	return cmd
}
