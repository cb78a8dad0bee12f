// Package mcpadapter implements the spec §6 Agent-tool adapter: the
// same core (C7 query engine, C9 registry, C1-C6 ingestion pipeline)
// exposed over github.com/modelcontextprotocol/go-sdk instead of HTTP.
// Every tool maps 1:1 to a core operation and every project-scoped
// tool validates against the registry before touching a backend, so
// no tool can bypass project scoping.
package mcpadapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/conversation"
	"github.com/veracity-dev/ess/internal/discover"
	"github.com/veracity-dev/ess/internal/embed"
	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/graphstore"
	"github.com/veracity-dev/ess/internal/ingest"
	"github.com/veracity-dev/ess/internal/parse"
	"github.com/veracity-dev/ess/internal/query"
	"github.com/veracity-dev/ess/internal/registry"
	"github.com/veracity-dev/ess/internal/vectorstore"
	"github.com/veracity-dev/ess/pkg/version"
)

// Server bridges agent clients (Claude Code, Cursor, any MCP-speaking
// host) to the core Engineering Support System. It owns no backend
// lifecycle; the caller opens graph/vector/embed handles, same as
// every other adapter (cmd/essd, internal/httpapi).
type Server struct {
	mcp          *mcp.Server
	log          *zap.Logger
	cfg          *config.Config
	registryPath string

	engine       *query.Engine
	conversation *conversation.Manager
	graph        *graphstore.Store
	vector       *vectorstore.Store
	embedSvc     *embed.Service
}

// Deps are Server's constructor dependencies, built from already-opened
// backend handles exactly as cmd/essd/cmd and internal/httpapi build
// theirs.
type Deps struct {
	Log          *zap.Logger
	Config       *config.Config
	RegistryPath string
	Engine       *query.Engine
	Conversation *conversation.Manager
	Graph        *graphstore.Store
	Vector       *vectorstore.Store
	EmbedSvc     *embed.Service
}

// NewServer builds a Server and registers its seven tools.
func NewServer(d Deps) (*Server, error) {
	if d.Engine == nil {
		return nil, fmt.Errorf("mcpadapter: query engine is required")
	}
	if d.RegistryPath == "" {
		return nil, fmt.Errorf("mcpadapter: registry path is required")
	}

	s := &Server{
		log:          d.Log,
		cfg:          d.Config,
		registryPath: d.RegistryPath,
		engine:       d.Engine,
		conversation: d.Conversation,
		graph:        d.Graph,
		vector:       d.Vector,
		embedSvc:     d.EmbedSvc,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "ess",
		Version: version.Version,
	}, nil)

	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server, for callers that need
// to compose it with other transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve runs the server over stdio until ctx is cancelled, the only
// transport spec §6 names for the Agent-tool adapter.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("starting MCP server", zap.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.log.Error("MCP server stopped with error", zap.Error(err))
		return err
	}
	s.log.Info("MCP server stopped gracefully")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_codebase",
		Description: "Ask a question about a registered codebase and get back an evidence packet: retrieved semantic matches, structural relationships, and a veracity score. Never a freeform LLM answer.",
	}, s.handleQueryCodebase)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_component_map",
		Description: "Return the structural relationship map (DEFINES/CALLS/IMPORTS edges) for a whole registered project.",
	}, s.handleGetComponentMap)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_projects",
		Description: "List every project currently in the registry, with its root directory and watch mode.",
	}, s.handleListProjects)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_file_relationships",
		Description: "Return every structural relationship touching a single file in a registered project.",
	}, s.handleGetFileRelationships)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "register_project",
		Description: "Register a new project root so it can be indexed and queried.",
	}, s.handleRegisterProject)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_project",
		Description: "Run a full (or incremental) index of a registered project's root directory.",
	}, s.handleIndexProject)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ingest_files",
		Description: "Re-index a specific, already-known set of files inside a registered project, without walking the whole tree.",
	}, s.handleIngestFiles)

	s.log.Debug("registered MCP tools", zap.Int("count", 7))
}

// InvokeTool dispatches by name against a loose argument map, decoded
// into the tool's typed request struct with mapstructure. This is the
// path non-SDK callers (tests, an eventual HTTP-to-MCP bridge) use
// instead of going through the stdio JSON-RPC transport.
func (s *Server) InvokeTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "query_codebase":
		var in QueryCodebaseInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleQueryCodebase(ctx, nil, in)
		return out, err
	case "get_component_map":
		var in GetComponentMapInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleGetComponentMap(ctx, nil, in)
		return out, err
	case "list_projects":
		_, out, err := s.handleListProjects(ctx, nil, ListProjectsInput{})
		return out, err
	case "get_file_relationships":
		var in GetFileRelationshipsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleGetFileRelationships(ctx, nil, in)
		return out, err
	case "register_project":
		var in RegisterProjectInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleRegisterProject(ctx, nil, in)
		return out, err
	case "index_project":
		var in IndexProjectInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleIndexProject(ctx, nil, in)
		return out, err
	case "ingest_files":
		var in IngestFilesInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleIngestFiles(ctx, nil, in)
		return out, err
	default:
		return nil, esserr.Validation(fmt.Sprintf("unknown tool %q", name), nil)
	}
}

func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return esserr.Internal("failed to build argument decoder", err)
	}
	if err := dec.Decode(args); err != nil {
		return esserr.Validation("invalid tool arguments", err)
	}
	return nil
}

// requireProject validates project scoping: every project-taking tool
// goes through this before touching a backend (spec §6: "no tool
// bypasses project scoping").
func (s *Server) requireProject(project string) (registry.Project, error) {
	if project == "" {
		return registry.Project{}, esserr.Validation("project is required", nil)
	}
	return registry.Get(s.registryPath, project)
}

func ignorePolicyFor(p registry.Project) *discover.IgnorePolicy {
	gitignore, _ := os.ReadFile(filepath.Join(p.RootDir, ".gitignore"))
	return discover.NewIgnorePolicy(string(gitignore), p.FilePatterns)
}

func (s *Server) pipelineFor(p registry.Project) (*ingest.Pipeline, *parse.Parser) {
	parser := parse.New()
	pipeline := ingest.NewPipeline(s.log, s.cfg, ignorePolicyFor(p), parser, s.embedSvc, s.graph, s.vector)
	return pipeline, parser
}

func durationSeconds(d time.Duration) float64 {
	return d.Seconds()
}

func toComponentEdges(matches []graphstore.StructuralMatch) []ComponentEdge {
	edges := make([]ComponentEdge, 0, len(matches))
	for _, m := range matches {
		edges = append(edges, ComponentEdge{
			Path:   m.Path,
			Source: m.Source,
			Target: m.Target,
			Type:   string(m.Type),
			Name:   m.Name,
			Kind:   m.Kind,
		})
	}
	return edges
}
