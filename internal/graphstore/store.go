// Package graphstore implements C5: the property-graph writer and
// reader backed by Neo4j, under the project-scoped atomic write
// contract from spec §4.5.
package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/model"
)

// nodeLabels is the closed set of node labels the schema constraints
// and indexes apply to.
var nodeLabels = []string{"File", "Function", "Class", "Method", "Module", "Chunk", "Document", "External"}

// Store wraps a neo4j.DriverWithContext with the schema bootstrap and
// the per-file write transaction the ingest pipeline drives.
type Store struct {
	driver neo4j.DriverWithContext
	log    *zap.Logger
}

// Open connects to Neo4j and verifies connectivity. Callers must call
// Close when done.
func Open(ctx context.Context, cfg config.GraphConfig, log *zap.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, esserr.Config("failed to build neo4j driver", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, esserr.Backend("graph", "neo4j connectivity check failed", err)
	}
	return &Store{driver: driver, log: log}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureSchema creates the composite uniqueness constraint on
// (project, uid) and the project/(project,path) indexes for every
// node label, per spec §4.5's "schema invariants enforced at
// startup". Idempotent: safe to call on every process start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, label := range nodeLabels {
		stmts := []string{
			fmt.Sprintf("CREATE CONSTRAINT %s_project_uid IF NOT EXISTS FOR (n:%s) REQUIRE (n.project, n.uid) IS UNIQUE", label, label),
			fmt.Sprintf("CREATE INDEX %s_project IF NOT EXISTS FOR (n:%s) ON (n.project)", label, label),
			fmt.Sprintf("CREATE INDEX %s_project_path IF NOT EXISTS FOR (n:%s) ON (n.project, n.path)", label, label),
		}
		for _, stmt := range stmts {
			if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				return tx.Run(ctx, stmt, nil)
			}); err != nil {
				return esserr.Backend("graph", "schema bootstrap failed: "+stmt, err)
			}
		}
	}
	return nil
}

// FileWrite is everything the ingest pipeline has produced for one
// file in one pass: the File node itself, its code entities, its
// chunks, and the edges among them (DEFINES/CALLS/IMPORTS/
// DEPENDS_ON/HAS_ASSET/HAS_CHUNK), plus any External placeholder
// targets encountered during parsing.
type FileWrite struct {
	File     model.File
	Entities []model.CodeEntity
	Chunks   []model.Chunk
	Edges    []model.Edge
	External []string // unresolved symbol names, written as External nodes
}

// WriteFile executes steps 1-3 of spec §4.5 in a single transaction
// scoped to (project, path): upsert the File node, delete stale
// children, upsert the new symbol/chunk set, and upsert relations.
// Vector writes are driven separately by the ingest orchestrator,
// which commits this graph transaction first (step 5).
func (s *Store) WriteFile(ctx context.Context, w FileWrite) error {
	if w.File.Project == "" {
		return esserr.Integrity("file write missing project", nil)
	}
	for _, e := range w.Edges {
		if !model.ValidEdgeTypes[e.Type] {
			return esserr.Integrity("rejected unknown edge type: "+string(e.Type), nil)
		}
		if e.Project != w.File.Project {
			return esserr.Integrity("rejected cross-project edge", nil)
		}
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := upsertFile(ctx, tx, w.File); err != nil {
			return nil, err
		}

		keepUIDs := make([]string, 0, len(w.Entities)+len(w.Chunks))
		for _, e := range w.Entities {
			keepUIDs = append(keepUIDs, e.UID)
		}
		for _, c := range w.Chunks {
			keepUIDs = append(keepUIDs, c.ChunkID)
		}
		if err := deleteStaleChildren(ctx, tx, w.File.Project, w.File.UID, keepUIDs); err != nil {
			return nil, err
		}

		for _, e := range w.Entities {
			if err := upsertEntity(ctx, tx, e); err != nil {
				return nil, err
			}
		}
		for _, c := range w.Chunks {
			if err := upsertChunk(ctx, tx, w.File.UID, c); err != nil {
				return nil, err
			}
		}
		for _, name := range w.External {
			if err := upsertExternal(ctx, tx, w.File.Project, name); err != nil {
				return nil, err
			}
		}
		for _, e := range w.Edges {
			if err := upsertEdge(ctx, tx, e); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return esserr.Backend("graph", "file write transaction failed", err)
	}
	return nil
}

func upsertFile(ctx context.Context, tx neo4j.ManagedTransaction, f model.File) error {
	_, err := tx.Run(ctx, `
		MERGE (n:File {project: $project, uid: $uid})
		SET n.path = $path, n.category = $category, n.language = $language,
		    n.size_bytes = $size_bytes, n.line_count = $line_count,
		    n.prov_file_hash = $prov_file_hash, n.prov_text_hash = $prov_text_hash,
		    n.prov_last_modified = $prov_last_modified, n.prov_extractor = $prov_extractor,
		    n.prov_extractor_version = $prov_extractor_version
	`, map[string]any{
		"project": f.Project, "uid": f.UID, "path": f.Path,
		"category": string(f.Category), "language": f.Language,
		"size_bytes": f.SizeBytes, "line_count": f.LineCount,
		"prov_file_hash": f.Provenance.FileHash, "prov_text_hash": f.Provenance.TextHash,
		"prov_last_modified": f.Provenance.LastModified.UTC().Format(neo4jTimeLayout),
		"prov_extractor": f.Provenance.Extractor, "prov_extractor_version": f.Provenance.ExtractorVersion,
	})
	return err
}

const neo4jTimeLayout = "2006-01-02T15:04:05Z07:00"

// deleteStaleChildren removes Function/Class/Method/Module/Chunk
// nodes attached to this File whose uid no longer appears in the
// latest extraction, cascading their own relationships (spec §4.5
// step 2).
func deleteStaleChildren(ctx context.Context, tx neo4j.ManagedTransaction, project, fileUID string, keep []string) error {
	_, err := tx.Run(ctx, `
		MATCH (f:File {project: $project, uid: $file_uid})-[:HAS_ASSET|HAS_CHUNK]->(child)
		WHERE NOT child.uid IN $keep
		DETACH DELETE child
	`, map[string]any{"project": project, "file_uid": fileUID, "keep": keep})
	return err
}

func upsertEntity(ctx context.Context, tx neo4j.ManagedTransaction, e model.CodeEntity) error {
	_, err := tx.Run(ctx, fmt.Sprintf(`
		MERGE (n:%s {project: $project, uid: $uid})
		SET n.name = $name, n.qualified_name = $qualified_name, n.path = $path,
		    n.start_line = $start_line, n.end_line = $end_line, n.is_async = $is_async,
		    n.signature = $signature, n.docstring = $docstring, n.embedding_ref = $embedding_ref
		WITH n
		MATCH (f:File {project: $project, path: $path})
		MERGE (f)-[:HAS_ASSET]->(n)
	`, string(e.Kind)), map[string]any{
		"project": e.Project, "uid": e.UID, "name": e.Name, "qualified_name": e.QualifiedName,
		"path": e.Path, "start_line": e.StartLine, "end_line": e.EndLine, "is_async": e.IsAsync,
		"signature": e.Signature, "docstring": e.Docstring, "embedding_ref": e.EmbeddingRef,
	})
	return err
}

func upsertChunk(ctx context.Context, tx neo4j.ManagedTransaction, fileUID string, c model.Chunk) error {
	_, err := tx.Run(ctx, `
		MERGE (n:Chunk {project: $project, uid: $uid})
		SET n.source_path = $source_path, n.chunk_index = $chunk_index,
		    n.content_hash = $content_hash, n.char_start = $char_start, n.char_end = $char_end,
		    n.strategy = $strategy
		WITH n
		MATCH (f:File {project: $project, uid: $file_uid})
		MERGE (f)-[:HAS_CHUNK]->(n)
	`, map[string]any{
		"project": c.Project, "uid": c.ChunkID, "source_path": c.SourcePath,
		"chunk_index": c.ChunkIndex, "content_hash": c.ContentHash,
		"char_start": c.CharStart, "char_end": c.CharEnd, "strategy": string(c.Strategy),
		"file_uid": fileUID,
	})
	return err
}

func upsertExternal(ctx context.Context, tx neo4j.ManagedTransaction, project, name string) error {
	uid := model.SymbolUID(project, "<external>", name)
	_, err := tx.Run(ctx, `
		MERGE (n:External {project: $project, uid: $uid})
		SET n.name = $name
	`, map[string]any{"project": project, "uid": uid, "name": name})
	return err
}

func upsertEdge(ctx context.Context, tx neo4j.ManagedTransaction, e model.Edge) error {
	_, err := tx.Run(ctx, fmt.Sprintf(`
		MATCH (a {project: $project, uid: $source})
		MATCH (b {project: $project, uid: $target})
		MERGE (a)-[r:%s]->(b)
		SET r.weight = $weight
	`, string(e.Type)), map[string]any{
		"project": e.Project, "source": e.Source, "target": e.Target, "weight": e.Weight,
	})
	return err
}

// DeleteFile cascades the removal of a File and everything it owns,
// for files that disappeared from discovery.
func (s *Store) DeleteFile(ctx context.Context, project, path string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH (f:File {project: $project, path: $path})
			OPTIONAL MATCH (f)-[:HAS_ASSET|HAS_CHUNK]->(child)
			DETACH DELETE f, child
		`, map[string]any{"project": project, "path": path})
	})
	if err != nil {
		return esserr.Backend("graph", "delete file failed", err)
	}
	return nil
}

// ClearEmbeddingRef implements the compensating mutation from spec
// §4.5 step 5: on a vector commit failure, the graph keeps its
// structural truth but forgets the dangling embedding reference.
func (s *Store) ClearEmbeddingRef(ctx context.Context, project, entityUID string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH (n {project: $project, uid: $uid})
			SET n.embedding_ref = null
		`, map[string]any{"project": project, "uid": entityUID})
	})
	if err != nil {
		return esserr.Backend("graph", "compensating embedding_ref clear failed", err)
	}
	return nil
}

// WriteCoChangeEdge upserts a CO_CHANGES_WITH edge between two File
// nodes, incrementing weight on repeat observations (spec §4.8
// optional co-change tracking).
func (s *Store) WriteCoChangeEdge(ctx context.Context, project, sourcePath, targetPath string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	source := model.FileUID(project, sourcePath)
	target := model.FileUID(project, targetPath)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH (a:File {project: $project, uid: $source})
			MATCH (b:File {project: $project, uid: $target})
			MERGE (a)-[r:CO_CHANGES_WITH]->(b)
			ON CREATE SET r.weight = 1
			ON MATCH SET r.weight = r.weight + 1
		`, map[string]any{"project": project, "source": source, "target": target})
	})
	if err != nil {
		return esserr.Backend("graph", "co-change edge write failed", err)
	}
	return nil
}
