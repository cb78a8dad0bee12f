package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/discover"
)

// fsnotifySource implements watch_mode "realtime" over native
// file-system events.
type fsnotifySource struct {
	project  string
	root     string
	policy   *discover.IgnorePolicy
	log      *zap.Logger
	debounce *debouncer
	fsw      *fsnotify.Watcher
}

// newRealtimeSource builds a realtime Source, falling back to a
// pollingSource if fsnotify can't be initialized (e.g. the host's
// inotify instance limit is exhausted).
func newRealtimeSource(project, root string, opts Options, policy *discover.IgnorePolicy, log *zap.Logger) Source {
	opts = opts.withDefaults()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("fsnotify unavailable, falling back to polling", zap.Error(err), zap.String("project", project))
		return newPollingSource(project, root, opts, policy, log)
	}
	return &fsnotifySource{
		project:  project,
		root:     root,
		policy:   policy,
		log:      log,
		debounce: newDebouncer(opts.DebounceWindow, log),
		fsw:      w,
	}
}

func (f *fsnotifySource) Run(stop <-chan struct{}) (<-chan []FileEvent, <-chan error) {
	errs := make(chan error, 4)

	if err := f.addRecursive(f.root); err != nil {
		select {
		case errs <- err:
		default:
		}
	}

	go func() {
		defer f.fsw.Close()
		defer f.debounce.stop()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-f.fsw.Events:
				if !ok {
					return
				}
				f.handle(ev)
			case err, ok := <-f.fsw.Errors:
				if !ok {
					return
				}
				select {
				case errs <- err:
				default:
				}
			}
		}
	}()

	return f.debounce.output(), errs
}

func (f *fsnotifySource) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && f.policy.Ignored(rel) {
			return filepath.SkipDir
		}
		return f.fsw.Add(path)
	})
}

func (f *fsnotifySource) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(f.root, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	isDir := false
	if info, statErr := os.Stat(ev.Name); statErr == nil {
		isDir = info.IsDir()
	}
	if f.policy.Ignored(rel) {
		return
	}

	var op Operation
	switch {
	case ev.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			_ = f.fsw.Add(ev.Name)
		}
	case ev.Op&fsnotify.Write != 0:
		op = OpModify
	case ev.Op&fsnotify.Remove != 0:
		op = OpDelete
	case ev.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	f.debounce.add(FileEvent{Project: f.project, Path: rel, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}
