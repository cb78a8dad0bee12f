package watcher

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// debouncer coalesces rapid events for the same path within window
// into a single net effect, per spec §4.8 ("all modes coalesce events
// within the debounce_seconds window"):
//
//	create + modify  -> create
//	create + delete  -> dropped entirely
//	modify + delete  -> delete
//	delete + create  -> modify (replaced in place)
type debouncer struct {
	window time.Duration
	log    *zap.Logger

	mu      sync.Mutex
	pending map[string]FileEvent
	timer   *time.Timer
	out     chan []FileEvent
	stopped bool
}

func newDebouncer(window time.Duration, log *zap.Logger) *debouncer {
	return &debouncer{
		window:  window,
		log:     log,
		pending: make(map[string]FileEvent),
		out:     make(chan []FileEvent, 16),
	}
}

func (d *debouncer) add(ev FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if prior, ok := d.pending[ev.Path]; ok {
		merged, keep := coalesce(prior, ev)
		if !keep {
			delete(d.pending, ev.Path)
		} else {
			d.pending[ev.Path] = merged
		}
	} else {
		d.pending[ev.Path] = ev
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func coalesce(prior, next FileEvent) (FileEvent, bool) {
	switch {
	case prior.Operation == OpCreate && next.Operation == OpModify:
		return prior, true
	case prior.Operation == OpCreate && next.Operation == OpDelete:
		return FileEvent{}, false
	case prior.Operation == OpDelete && next.Operation == OpCreate:
		next.Operation = OpModify
		return next, true
	default:
		return next, true
	}
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		batch = append(batch, ev)
	}
	d.pending = make(map[string]FileEvent)

	select {
	case d.out <- batch:
	default:
		d.log.Warn("debouncer output full, dropping batch", zap.Int("batch_size", len(batch)))
	}
}

func (d *debouncer) output() <-chan []FileEvent {
	return d.out
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.out)
}
