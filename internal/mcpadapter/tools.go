package mcpadapter

import (
	"context"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/ingest"
	"github.com/veracity-dev/ess/internal/query"
	"github.com/veracity-dev/ess/internal/registry"
)

// QueryCodebaseInput is the query_codebase tool's argument set,
// mirroring query.Request (spec §6: "each tool maps 1:1 to a core
// operation").
type QueryCodebaseInput struct {
	Project        string   `json:"project" jsonschema:"the registered project to query"`
	Query          string   `json:"query" jsonschema:"the natural-language question"`
	ConversationID string   `json:"conversation_id,omitempty" jsonschema:"carries a multi-round conversation across calls; omit for one-shot"`
	Context        []string `json:"context,omitempty" jsonschema:"prior turns of context to fold into the query"`
}

func (s *Server) handleQueryCodebase(ctx context.Context, _ *mcp.CallToolRequest, in QueryCodebaseInput) (*mcp.CallToolResult, *query.Response, error) {
	if in.Query == "" {
		return nil, nil, esserr.Validation("query is required", nil)
	}
	if _, err := s.requireProject(in.Project); err != nil {
		return nil, nil, err
	}

	req := query.Request{
		Query:     in.Query,
		RequestID: uuid.NewString(),
		Project:   in.Project,
		Context:   in.Context,
	}

	var (
		resp *query.Response
		err  error
	)
	if s.conversation != nil {
		resp, err = s.conversation.Handle(ctx, in.ConversationID, req)
	} else {
		req.Mode = query.ModeOneShot
		resp, err = s.engine.Query(ctx, req)
	}
	if err != nil {
		return nil, nil, err
	}
	return nil, resp, nil
}

// ComponentEdge is the MCP-facing shape of one graphstore.StructuralMatch.
type ComponentEdge struct {
	Path   string `json:"path,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// GetComponentMapInput is get_component_map's argument set.
type GetComponentMapInput struct {
	Project string `json:"project" jsonschema:"the registered project to map"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of relationships returned, default 500"`
}

// GetComponentMapOutput is get_component_map's result.
type GetComponentMapOutput struct {
	Project       string          `json:"project"`
	Relationships []ComponentEdge `json:"relationships"`
}

func (s *Server) handleGetComponentMap(ctx context.Context, _ *mcp.CallToolRequest, in GetComponentMapInput) (*mcp.CallToolResult, *GetComponentMapOutput, error) {
	if _, err := s.requireProject(in.Project); err != nil {
		return nil, nil, err
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 500
	}
	matches, err := s.graph.ComponentMap(ctx, in.Project, limit)
	if err != nil {
		return nil, nil, err
	}
	return nil, &GetComponentMapOutput{Project: in.Project, Relationships: toComponentEdges(matches)}, nil
}

// ListProjectsInput is list_projects's (empty) argument set.
type ListProjectsInput struct{}

// ProjectSummary is one registry entry in list_projects's output.
type ProjectSummary struct {
	Name      string `json:"name"`
	RootDir   string `json:"root_dir"`
	WatchMode string `json:"watch_mode"`
	Enabled   bool   `json:"enabled"`
}

// ListProjectsOutput is list_projects's result.
type ListProjectsOutput struct {
	Projects []ProjectSummary `json:"projects"`
}

func (s *Server) handleListProjects(ctx context.Context, _ *mcp.CallToolRequest, _ ListProjectsInput) (*mcp.CallToolResult, *ListProjectsOutput, error) {
	names, err := registry.Names(s.registryPath)
	if err != nil {
		return nil, nil, err
	}
	out := &ListProjectsOutput{Projects: make([]ProjectSummary, 0, len(names))}
	for _, name := range names {
		p, err := registry.Get(s.registryPath, name)
		if err != nil {
			continue
		}
		out.Projects = append(out.Projects, ProjectSummary{
			Name:      name,
			RootDir:   p.RootDir,
			WatchMode: string(p.WatchMode),
			Enabled:   p.Enabled,
		})
	}
	return nil, out, nil
}

// GetFileRelationshipsInput is get_file_relationships's argument set.
type GetFileRelationshipsInput struct {
	Project string `json:"project" jsonschema:"the registered project the file belongs to"`
	Path    string `json:"path" jsonschema:"project-relative file path"`
}

// GetFileRelationshipsOutput is get_file_relationships's result.
type GetFileRelationshipsOutput struct {
	Project       string          `json:"project"`
	Path          string          `json:"path"`
	Relationships []ComponentEdge `json:"relationships"`
}

func (s *Server) handleGetFileRelationships(ctx context.Context, _ *mcp.CallToolRequest, in GetFileRelationshipsInput) (*mcp.CallToolResult, *GetFileRelationshipsOutput, error) {
	if in.Path == "" {
		return nil, nil, esserr.Validation("path is required", nil)
	}
	if _, err := s.requireProject(in.Project); err != nil {
		return nil, nil, err
	}
	matches, err := s.graph.FileRelationships(ctx, in.Project, in.Path)
	if err != nil {
		return nil, nil, err
	}
	return nil, &GetFileRelationshipsOutput{Project: in.Project, Path: in.Path, Relationships: toComponentEdges(matches)}, nil
}

// RegisterProjectInput is register_project's argument set.
type RegisterProjectInput struct {
	Project         string   `json:"project" jsonschema:"the project name to register"`
	RootDir         string   `json:"root_dir" jsonschema:"absolute path to the project root"`
	TargetDirs      []string `json:"target_dirs,omitempty" jsonschema:"subdirectories to scope discovery to"`
	WatchMode       string   `json:"watch_mode,omitempty" jsonschema:"realtime|polling|git_only, default realtime"`
	DebounceSeconds float64  `json:"debounce_seconds,omitempty" jsonschema:"watcher debounce window in seconds, default 2"`
	Enabled         *bool    `json:"enabled,omitempty" jsonschema:"enable the watcher immediately, default true"`
}

// RegisterProjectOutput is register_project's result.
type RegisterProjectOutput struct {
	Project    string `json:"project"`
	Registered bool   `json:"registered"`
}

func (s *Server) handleRegisterProject(_ context.Context, _ *mcp.CallToolRequest, in RegisterProjectInput) (*mcp.CallToolResult, *RegisterProjectOutput, error) {
	if in.Project == "" || in.RootDir == "" {
		return nil, nil, esserr.Validation("project and root_dir are required", nil)
	}
	mode := registry.WatchMode(in.WatchMode)
	switch mode {
	case registry.WatchRealtime, registry.WatchPolling, registry.WatchGitOnly:
	case "":
		mode = registry.WatchRealtime
	default:
		return nil, nil, esserr.Validation("invalid watch_mode", nil)
	}
	debounce := in.DebounceSeconds
	if debounce <= 0 {
		debounce = 2
	}
	enabled := in.Enabled == nil || *in.Enabled

	err := registry.Put(s.registryPath, in.Project, registry.Project{
		RootDir:         in.RootDir,
		TargetDirs:      in.TargetDirs,
		WatchMode:       mode,
		DebounceSeconds: debounce,
		Enabled:         enabled,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, &RegisterProjectOutput{Project: in.Project, Registered: true}, nil
}

// IndexSummary is the MCP-facing shape of ingest.Summary.
type IndexSummary struct {
	Project         string  `json:"project"`
	FilesScanned    int     `json:"files_scanned"`
	FilesSkipped    int     `json:"files_skipped"`
	FilesFailed     int     `json:"files_failed"`
	FilesUnchanged  int     `json:"files_unchanged"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func toIndexSummary(s ingest.Summary) IndexSummary {
	return IndexSummary{
		Project:         s.Project,
		FilesScanned:    s.FilesScanned,
		FilesSkipped:    s.FilesSkipped,
		FilesFailed:     s.FilesFailed,
		FilesUnchanged:  s.FilesUnchanged,
		DurationSeconds: durationSeconds(s.Duration),
	}
}

// IndexProjectInput is index_project's argument set.
type IndexProjectInput struct {
	Project string `json:"project" jsonschema:"the registered project to index"`
	Force   bool   `json:"force,omitempty" jsonschema:"re-ingest every file regardless of the hash cache"`
}

func (s *Server) handleIndexProject(ctx context.Context, _ *mcp.CallToolRequest, in IndexProjectInput) (*mcp.CallToolResult, *IndexSummary, error) {
	p, err := s.requireProject(in.Project)
	if err != nil {
		return nil, nil, err
	}
	if !p.Enabled {
		return nil, nil, esserr.Validation("project is registered but disabled", nil)
	}

	pipeline, parser := s.pipelineFor(p)
	defer parser.Close()

	cachePath := ingest.HashCachePath(s.cfg.Server.StateDir, in.Project)
	cache := ingest.LoadHashCache(cachePath)

	summary, nextCache, err := pipeline.Run(ctx, p.RootDir, in.Project, cache, in.Force)
	if err != nil {
		return nil, nil, err
	}
	if err := ingest.SaveHashCache(cachePath, nextCache); err != nil {
		s.log.Warn("failed to persist hash cache", zap.Error(err))
	}

	out := toIndexSummary(summary)
	return nil, &out, nil
}

// IngestFilesInput is ingest_files's argument set.
type IngestFilesInput struct {
	Project string   `json:"project" jsonschema:"the registered project the files belong to"`
	Paths   []string `json:"paths" jsonschema:"project-relative file paths to re-index"`
}

func (s *Server) handleIngestFiles(ctx context.Context, _ *mcp.CallToolRequest, in IngestFilesInput) (*mcp.CallToolResult, *IndexSummary, error) {
	if len(in.Paths) == 0 {
		return nil, nil, esserr.Validation("paths is required and must be non-empty", nil)
	}
	p, err := s.requireProject(in.Project)
	if err != nil {
		return nil, nil, err
	}
	if !p.Enabled {
		return nil, nil, esserr.Validation("project is registered but disabled", nil)
	}

	pipeline, parser := s.pipelineFor(p)
	defer parser.Close()

	summary, err := pipeline.RunPaths(ctx, p.RootDir, in.Project, in.Paths)
	if err != nil {
		return nil, nil, err
	}
	out := toIndexSummary(summary)
	return nil, &out, nil
}
