package watcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/graphstore"
)

// coChangeTracker implements the optional CO_CHANGES_WITH signal from
// spec §4.8: files committed/written within window of each other get
// a weighted edge, a cheap proxy for "these tend to change together"
// that the query engine's structural search can surface.
type coChangeTracker struct {
	window time.Duration
	graph  *graphstore.Store
	log    *zap.Logger

	recent []timedPath // small ring of the most recent paths touched
}

type timedPath struct {
	path string
	at   time.Time
}

func newCoChangeTracker(window time.Duration, graph *graphstore.Store, log *zap.Logger) *coChangeTracker {
	return &coChangeTracker{window: window, graph: graph, log: log}
}

// Observe records that path just changed and writes CO_CHANGES_WITH
// edges to every other path still within the tracker's window.
func (t *coChangeTracker) Observe(ctx context.Context, project, path string, at time.Time) {
	cutoff := at.Add(-t.window)
	kept := t.recent[:0]
	for _, p := range t.recent {
		if p.at.Before(cutoff) {
			continue
		}
		kept = append(kept, p)
		if p.path == path {
			continue
		}
		if err := t.graph.WriteCoChangeEdge(ctx, project, p.path, path); err != nil {
			t.log.Warn("co-change edge write failed", zap.Error(err), zap.String("a", p.path), zap.String("b", path))
		}
	}
	t.recent = append(kept, timedPath{path: path, at: at})
}
