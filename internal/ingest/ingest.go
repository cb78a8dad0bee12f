// Package ingest orchestrates C1 through C6 into the write path from
// spec §2: discover → parse → chunk → embed → (graph, vector)
// committed under the atomic-ish contract of §4.5.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/chunk"
	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/discover"
	"github.com/veracity-dev/ess/internal/embed"
	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/graphstore"
	"github.com/veracity-dev/ess/internal/model"
	"github.com/veracity-dev/ess/internal/parse"
	"github.com/veracity-dev/ess/internal/vectorstore"
)

// Summary is the ingestion-run report surfaced to the CLI, the MCP
// index tools and the watcher daemon's log (spec §6 supplemental
// reporting).
type Summary struct {
	Project        string
	FilesScanned   int
	FilesSkipped   int
	FilesFailed    int
	FilesUnchanged int
	BytesHashed    int64
	Duration       time.Duration
}

// HashCache is a per-project map of path -> last-seen prov_file_hash,
// used by the rechunk decision (spec §4.3) so an ingestion run never
// re-chunks or re-embeds unchanged files.
type HashCache map[string]string

// ProgressFunc receives a live update during Run/RunPaths. stage is
// "scan" once discovery completes, or "index" per file written.
type ProgressFunc func(stage string, current, total int, file string)

// ErrorFunc receives a per-file failure during Run/RunPaths, letting a
// CLI renderer surface it immediately instead of waiting for the
// final Summary.
type ErrorFunc func(file string, err error)

// Pipeline wires C1-C6 together for one project.
type Pipeline struct {
	log      *zap.Logger
	cfg      *config.Config
	policy   *discover.IgnorePolicy
	parser   *parse.Parser
	embedSvc *embed.Service
	graph    *graphstore.Store
	vector   *vectorstore.Store

	// OnProgress and OnError are optional and nil by default; set by
	// a caller (e.g. the `essd index` CLI) that wants live feedback.
	OnProgress ProgressFunc
	OnError    ErrorFunc
}

// NewPipeline builds a Pipeline from already-opened backend handles;
// the caller owns their lifecycle (Close).
func NewPipeline(log *zap.Logger, cfg *config.Config, policy *discover.IgnorePolicy, parser *parse.Parser, embedSvc *embed.Service, graph *graphstore.Store, vector *vectorstore.Store) *Pipeline {
	return &Pipeline{log: log, cfg: cfg, policy: policy, parser: parser, embedSvc: embedSvc, graph: graph, vector: vector}
}

func (p *Pipeline) reportProgress(stage string, current, total int, file string) {
	if p.OnProgress != nil {
		p.OnProgress(stage, current, total, file)
	}
}

func (p *Pipeline) reportError(file string, err error) {
	if p.OnError != nil {
		p.OnError(file, err)
	}
}

// Run executes an ingestion of root for project, returning an
// ingestion Summary and the updated hash cache. force re-ingests
// every discovered file regardless of the cache; otherwise (the
// default, --incremental) files whose prov_file_hash matches the
// cache are left untouched.
func (p *Pipeline) Run(ctx context.Context, root, project string, cache HashCache, force bool) (Summary, HashCache, error) {
	start := time.Now()
	if cache == nil {
		cache = HashCache{}
	}
	nextCache := HashCache{}

	results, discSummary, err := discover.Discover(ctx, p.log, root, project, p.cfg.Discovery, p.policy)
	if err != nil {
		return Summary{}, cache, esserr.Internal("discovery failed", err)
	}

	if err := p.graph.EnsureSchema(ctx); err != nil {
		return Summary{}, cache, err
	}
	if err := p.vector.EnsureCollection(ctx, project); err != nil {
		return Summary{}, cache, err
	}

	summary := Summary{
		Project:      project,
		FilesScanned: discSummary.FilesScanned,
		FilesSkipped: discSummary.FilesSkipped,
		FilesFailed:  discSummary.FilesFailed,
		BytesHashed:  discSummary.BytesHashed,
	}
	p.reportProgress("scan", len(results), len(results), "")

	for i, r := range results {
		nextCache[r.File.Path] = r.File.Provenance.FileHash
		p.reportProgress("index", i+1, len(results), r.File.Path)

		if !force {
			if prev, ok := cache[r.File.Path]; ok && prev == r.File.Provenance.FileHash {
				summary.FilesUnchanged++
				continue
			}
		}

		if err := p.ingestFile(ctx, project, r); err != nil {
			p.log.Warn("ingest failed for file", zap.String("path", r.File.Path), zap.Error(err))
			p.reportError(r.File.Path, err)
			summary.FilesFailed++
			continue
		}
	}

	summary.Duration = time.Since(start)
	return summary, nextCache, nil
}

// RunPaths re-ingests only the given project-relative paths, the
// `ingest_files` MCP tool's narrower alternative to a full Run when a
// caller already knows exactly which files changed.
func (p *Pipeline) RunPaths(ctx context.Context, root, project string, paths []string) (Summary, error) {
	start := time.Now()
	wanted := make(map[string]bool, len(paths))
	for _, pth := range paths {
		wanted[pth] = true
	}

	results, _, err := discover.Discover(ctx, p.log, root, project, p.cfg.Discovery, p.policy)
	if err != nil {
		return Summary{}, esserr.Internal("discovery failed", err)
	}

	if err := p.graph.EnsureSchema(ctx); err != nil {
		return Summary{}, err
	}
	if err := p.vector.EnsureCollection(ctx, project); err != nil {
		return Summary{}, err
	}

	summary := Summary{Project: project}
	for _, r := range results {
		if !wanted[r.File.Path] {
			continue
		}
		summary.FilesScanned++
		delete(wanted, r.File.Path)
		if err := p.ingestFile(ctx, project, r); err != nil {
			p.log.Warn("ingest failed for file", zap.String("path", r.File.Path), zap.Error(err))
			summary.FilesFailed++
			continue
		}
	}
	summary.FilesSkipped = len(wanted)
	summary.Duration = time.Since(start)
	return summary, nil
}

func (p *Pipeline) ingestFile(ctx context.Context, project string, r discover.Result) error {
	write := graphstore.FileWrite{File: r.File}

	if r.File.Category == model.CategoryBinary {
		return p.graph.WriteFile(ctx, write)
	}

	text := model.NormalizeText(r.Raw)

	if r.File.Category == model.CategoryCode && r.File.Language != "" {
		parsed, err := p.parser.Parse(ctx, project, r.File.Path, r.File.Language, []byte(text))
		if err != nil {
			return err
		}
		write.Entities = parsed.Entities
		write.Edges = append(write.Edges, parsed.Edges...)
		for _, ext := range parsed.External {
			write.External = append(write.External, ext.Name)
			write.Edges = append(write.Edges, model.Edge{
				Project: project, Type: model.EdgeCalls,
				Source: rootEntityUID(project, r.File.Path, parsed.Entities),
				Target: model.SymbolUID(project, "<external>", ext.Name),
			})
		}
	}

	chunks := chunk.Split(project, r.File.Path, text, r.File.Category, p.cfg.Chunk)
	write.Chunks = chunks

	if err := p.graph.WriteFile(ctx, write); err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embedResult, err := p.embedSvc.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}

	failedSet := make(map[int]bool, len(embedResult.Failed))
	for _, idx := range embedResult.Failed {
		failedSet[idx] = true
	}

	points := make([]vectorstore.Point, 0, len(chunks))
	for i, c := range chunks {
		if failedSet[i] {
			p.log.Warn("embedding missing for chunk", zap.String("chunk_id", c.ChunkID))
			continue
		}
		points = append(points, vectorstore.Point{
			ChunkID:      c.ChunkID,
			Vector:       embedResult.Vectors[i],
			GraphUID:     r.File.UID,
			Path:         r.File.Path,
			Type:         string(r.File.Category),
			Language:     r.File.Language,
			Project:      project,
			ModelVersion: p.cfg.Embed.ModelVersion,
			Content:      c.Text,
		})
	}

	if err := p.vector.Upsert(ctx, project, points); err != nil {
		// Step 5: vector commit failure does not roll back the graph.
		// Compensate by clearing embedding_ref on each of the file's
		// code entities (chunks carry no embedding_ref field
		// themselves).
		for _, e := range write.Entities {
			_ = p.graph.ClearEmbeddingRef(ctx, project, e.UID)
		}
		return esserr.Backend("vector", "vector commit failed, graph kept", err)
	}

	return nil
}

// rootEntityUID picks a stable anchor uid for file-level CALLS edges
// to unresolved externals when no enclosing symbol uid is available
// (e.g. top-level script code). Falls back to the file's own uid.
func rootEntityUID(project, path string, entities []model.CodeEntity) string {
	if len(entities) > 0 {
		return entities[0].UID
	}
	return model.FileUID(project, path)
}
