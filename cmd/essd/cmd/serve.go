package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veracity-dev/ess/internal/conversation"
	"github.com/veracity-dev/ess/internal/embed"
	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/graphstore"
	"github.com/veracity-dev/ess/internal/httpapi"
	"github.com/veracity-dev/ess/internal/mcpadapter"
	"github.com/veracity-dev/ess/internal/query"
	"github.com/veracity-dev/ess/internal/ratelimit"
	"github.com/veracity-dev/ess/internal/telemetry"
	"github.com/veracity-dev/ess/internal/vectorstore"
	"github.com/veracity-dev/ess/internal/veracity"
)

// newServeCmd builds the `essd serve` command: the long-running
// adapter surface over C7, one transport per invocation (spec §6
// describes the HTTP and MCP adapters as "the same core, different
// transport", never a single combined process).
func newServeCmd() *cobra.Command {
	var transport string
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP or MCP Agent-tool adapter over the query engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch transport {
			case "http", "mcp":
			default:
				return esserr.Validation(fmt.Sprintf("invalid --transport %q (want http|mcp)", transport), nil)
			}
			return runServe(cmd, transport, httpAddr)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "http", "http|mcp")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "address to bind the HTTP adapter (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, transport, httpAddr string) error {
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

	breakers := esserr.NewRegistry()
	embedder := embed.NewDeterministic(cfg.Embed.ModelVersion, cfg.Embed.Dimensions, cfg.Embed.Seed)
	embedSvc, err := embed.NewService(embedder, cfg.Embed, breakers.Get("embed"), log)
	if err != nil {
		return esserr.Internal("failed to build embed service", err)
	}

	validator := veracity.NewValidator(cfg.Veracity, graph)
	engine := query.NewEngine(log, cfg.Query, embedSvc, graph, vector, breakers, validator)

	var convMgr *conversation.Manager
	if cfg.Conversation.Enabled {
		convMgr = conversation.NewManager(cfg.Conversation, engine, log)
	}

	switch transport {
	case "mcp":
		srv, err := mcpadapter.NewServer(mcpadapter.Deps{
			Log:          log,
			Config:       cfg,
			RegistryPath: registryFilePath(),
			Engine:       engine,
			Conversation: convMgr,
			Graph:        graph,
			Vector:       vector,
			EmbedSvc:     embedSvc,
		})
		if err != nil {
			return esserr.Internal("failed to build MCP server", err)
		}
		return srv.Serve(ctx)
	default:
		limiter := ratelimit.New(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst)
		metrics := telemetry.NewMetrics()
		audit := telemetry.NewAuditLog(cfg.Server.StateDir)
		defer audit.Close() //nolint:errcheck

		addr := httpAddr
		if addr == "" {
			addr = cfg.Server.HTTPAddr
		}

		srv := httpapi.New(httpapi.Deps{
			Log:          log,
			APIToken:     cfg.Server.APIToken,
			Engine:       engine,
			Conversation: convMgr,
			Breakers:     breakers,
			Limiter:      limiter,
			Metrics:      metrics,
			Audit:        audit,
			RegistryPath: registryFilePath(),
		})

		fmt.Fprintf(cmd.OutOrStdout(), "essd serve: HTTP adapter listening on %s\n", addr)
		return srv.ListenAndServe(ctx, addr)
	}
}
