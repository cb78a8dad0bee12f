package watcher

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// gitOnlySource implements watch_mode "git_only": rather than reacting
// to every file write, it polls .git/HEAD for a new commit and diffs
// against the previously observed commit, so only a completed commit
// triggers re-ingestion (spec §4.8: "triggered by post-commit only").
//
// No git library is wired for this (none of the example repos carry
// one); shelling out to the system git binary for a name-only diff is
// the standard approach and keeps this source dependency-free.
type gitOnlySource struct {
	project      string
	root         string
	pollInterval time.Duration
	log          *zap.Logger
	debounce     *debouncer
}

func newGitOnlySource(project, root string, opts Options, log *zap.Logger) *gitOnlySource {
	opts = opts.withDefaults()
	return &gitOnlySource{
		project:      project,
		root:         root,
		pollInterval: opts.PollInterval,
		log:          log,
		debounce:     newDebouncer(opts.DebounceWindow, log),
	}
}

func (g *gitOnlySource) Run(stop <-chan struct{}) (<-chan []FileEvent, <-chan error) {
	errs := make(chan error, 4)

	go func() {
		defer g.debounce.stop()
		lastHead := g.headSHA()
		ticker := time.NewTicker(g.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				head := g.headSHA()
				if head == "" || head == lastHead {
					continue
				}
				files, err := g.changedFiles(lastHead, head)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
				}
				now := time.Now()
				for _, path := range files {
					g.debounce.add(FileEvent{Project: g.project, Path: path, Operation: OpModify, Timestamp: now})
				}
				lastHead = head
			}
		}
	}()

	return g.debounce.output(), errs
}

func (g *gitOnlySource) headSHA() string {
	out, err := g.git("rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func (g *gitOnlySource) changedFiles(fromSHA, toSHA string) ([]string, error) {
	out, err := g.git("diff", "--name-only", fromSHA, toSHA)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, filepath.FromSlash(line))
		}
	}
	return files, nil
}

func (g *gitOnlySource) git(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", g.root}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}
