// Package tui renders `essd index`/`essd status` progress and state
// to a terminal, choosing a rich bubbletea view for an interactive TTY
// and a plain line-oriented view everywhere else (CI, pipes, --no-tui).
package tui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage is one phase of an ingestion run (spec §2 discover → ... →
// write). Pipeline.Run only reports two of these live (Scan happens
// as one bulk discovery call, Index covers the per-file embed+write
// loop); Complete is the terminal stage.
type Stage int

const (
	StageScan Stage = iota
	StageIndex
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageScan:
		return "Scan"
	case StageIndex:
		return "Index"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// ProgressEvent is one update from a running ingestion.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
}

// ErrorEvent reports a per-file failure or warning surfaced mid-run.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// CompletionStats is the final report handed to Renderer.Complete.
type CompletionStats struct {
	FilesScanned   int
	FilesUnchanged int
	FilesFailed    int
	FilesSkipped   int
	Duration       time.Duration
}

// Renderer displays ingestion progress. TUIRenderer and PlainRenderer
// both implement it; NewRenderer picks one based on the environment.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	Complete(stats CompletionStats)
	Stop() error
}

// Config configures a Renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Project    string
}

// NewRenderer picks a TUI renderer for an interactive terminal and a
// plain renderer for CI, pipes, or --no-tui; it never fails a caller
// by falling back to plain on any TUI construction error.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	r, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return r
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor reports whether NO_COLOR is set.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// DetectCI reports whether a well-known CI environment variable is set.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}
