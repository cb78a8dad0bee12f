package tui

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// PlainRenderer writes one line per event, for CI logs and pipes.
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	errors int
	warns  int
}

func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

func (r *PlainRenderer) Start(ctx context.Context) error { return nil }

func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.Total > 0 {
		fmt.Fprintf(r.out, "[%s] %d/%d %s\n", event.Stage, event.Current, event.Total, event.CurrentFile)
	} else {
		fmt.Fprintf(r.out, "[%s] %s\n", event.Stage, event.CurrentFile)
	}
}

func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := "ERROR"
	if event.IsWarn {
		r.warns++
		prefix = "WARN"
	} else {
		r.errors++
	}
	fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
}

func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "complete: scanned=%d unchanged=%d failed=%d skipped=%d duration=%s\n",
		stats.FilesScanned, stats.FilesUnchanged, stats.FilesFailed, stats.FilesSkipped, stats.Duration.Round(1e8))
}

func (r *PlainRenderer) Stop() error { return nil }
