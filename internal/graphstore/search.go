package graphstore

import (
	"context"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/model"
)

// StructuralMatch is one row of a structural (graph) search result.
type StructuralMatch struct {
	Path   string
	Source string
	Target string
	Type   model.EdgeType
	UID    string
	Name   string
	Kind   string
}

// SearchStructural finds code entities whose name or qualified name
// contains the query term, plus their immediate DEFINES/CALLS
// relations, sorted by (path ASC, source ASC, target ASC, type ASC)
// per spec §4.6 merge & rank rules.
func (s *Store) SearchStructural(ctx context.Context, project, term string, limit int) ([]StructuralMatch, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n)-[r]->(m)
			WHERE n.project = $project AND (n.name CONTAINS $term OR n.qualified_name CONTAINS $term)
			RETURN n.path AS path, n.uid AS source, m.uid AS target, type(r) AS type,
			       n.uid AS uid, n.name AS name, labels(n)[0] AS kind
			LIMIT $limit
		`, map[string]any{"project": project, "term": term, "limit": limit})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, esserr.Backend("graph", "structural search failed", err)
	}
	return collectStructuralMatches(records)
}

// FileRelationships returns every relationship touching a node defined
// in path, the graph half of the `get_file_relationships` MCP tool and
// the HTTP/CLI surfaces built on the same query.
func (s *Store) FileRelationships(ctx context.Context, project, path string) ([]StructuralMatch, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n {project: $project, path: $path})-[r]-(m)
			RETURN n.path AS path, n.uid AS source, m.uid AS target, type(r) AS type,
			       n.uid AS uid, n.name AS name, labels(n)[0] AS kind
		`, map[string]any{"project": project, "path": path})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, esserr.Backend("graph", "file relationships query failed", err)
	}
	return collectStructuralMatches(records)
}

// ComponentMap returns every DEFINES/CALLS/IMPORTS relationship in a
// project, up to limit, for the `get_component_map` MCP tool's
// whole-project structural overview.
func (s *Store) ComponentMap(ctx context.Context, project string, limit int) ([]StructuralMatch, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n {project: $project})-[r]->(m)
			WHERE type(r) IN ['DEFINES', 'CALLS', 'IMPORTS']
			RETURN n.path AS path, n.uid AS source, m.uid AS target, type(r) AS type,
			       n.uid AS uid, n.name AS name, labels(n)[0] AS kind
			LIMIT $limit
		`, map[string]any{"project": project, "limit": limit})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, esserr.Backend("graph", "component map query failed", err)
	}
	return collectStructuralMatches(records)
}

func collectStructuralMatches(records any) ([]StructuralMatch, error) {
	rows, _ := records.([]*neo4j.Record)
	matches := make([]StructuralMatch, 0, len(rows))
	for _, rec := range rows {
		m := StructuralMatch{}
		if v, ok := rec.Get("path"); ok {
			m.Path, _ = v.(string)
		}
		if v, ok := rec.Get("source"); ok {
			m.Source, _ = v.(string)
		}
		if v, ok := rec.Get("target"); ok {
			m.Target, _ = v.(string)
		}
		if v, ok := rec.Get("type"); ok {
			t, _ := v.(string)
			m.Type = model.EdgeType(t)
		}
		if v, ok := rec.Get("uid"); ok {
			m.UID, _ = v.(string)
		}
		if v, ok := rec.Get("name"); ok {
			m.Name, _ = v.(string)
		}
		if v, ok := rec.Get("kind"); ok {
			m.Kind, _ = v.(string)
		}
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Path != matches[j].Path {
			return matches[i].Path < matches[j].Path
		}
		if matches[i].Source != matches[j].Source {
			return matches[i].Source < matches[j].Source
		}
		if matches[i].Target != matches[j].Target {
			return matches[i].Target < matches[j].Target
		}
		return matches[i].Type < matches[j].Type
	})
	return matches, nil
}

// NeighborCount returns the number of distinct relationships touching
// a node, used by the veracity validator's ORPHANED_NODE rule.
func (s *Store) NeighborCount(ctx context.Context, project, uid string) (int, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	count, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n {project: $project, uid: $uid})-[r]-()
			RETURN count(r) AS c
		`, map[string]any{"project": project, "uid": uid})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return 0, nil
		}
		v, _ := rec.Get("c")
		n, _ := v.(int64)
		return int(n), nil
	})
	if err != nil {
		return 0, esserr.Backend("graph", "neighbor count query failed", err)
	}
	n, _ := count.(int)
	return n, nil
}
