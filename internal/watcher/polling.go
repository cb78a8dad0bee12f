package watcher

import (
	"io/fs"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/discover"
)

type snapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// pollingSource implements watch_mode "polling": a periodic walk of
// root diffed against the previous walk's snapshot.
type pollingSource struct {
	project  string
	root     string
	interval time.Duration
	policy   *discover.IgnorePolicy
	log      *zap.Logger
	debounce *debouncer
}

func newPollingSource(project, root string, opts Options, policy *discover.IgnorePolicy, log *zap.Logger) *pollingSource {
	opts = opts.withDefaults()
	return &pollingSource{
		project:  project,
		root:     root,
		interval: opts.PollInterval,
		policy:   policy,
		log:      log,
		debounce: newDebouncer(opts.DebounceWindow, log),
	}
}

func (p *pollingSource) Run(stop <-chan struct{}) (<-chan []FileEvent, <-chan error) {
	errs := make(chan error, 4)

	go func() {
		state := p.scan(errs)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				p.debounce.stop()
				return
			case <-ticker.C:
				state = p.detectChanges(state, errs)
			}
		}
	}()

	return p.debounce.output(), errs
}

func (p *pollingSource) scan(errs chan<- error) map[string]snapshot {
	state := make(map[string]snapshot)
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(p.root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if p.policy.Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		state[rel] = snapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		return nil
	})
	if err != nil {
		select {
		case errs <- err:
		default:
		}
	}
	return state
}

func (p *pollingSource) detectChanges(prev map[string]snapshot, errs chan<- error) map[string]snapshot {
	current := p.scan(errs)
	now := time.Now()

	for path, snap := range current {
		old, existed := prev[path]
		switch {
		case !existed:
			p.debounce.add(FileEvent{Project: p.project, Path: path, Operation: OpCreate, IsDir: snap.isDir, Timestamp: now})
		case old.modTime != snap.modTime || old.size != snap.size:
			p.debounce.add(FileEvent{Project: p.project, Path: path, Operation: OpModify, IsDir: snap.isDir, Timestamp: now})
		}
	}
	for path, snap := range prev {
		if _, still := current[path]; !still {
			p.debounce.add(FileEvent{Project: p.project, Path: path, Operation: OpDelete, IsDir: snap.isDir, Timestamp: now})
		}
	}
	return current
}
