package tui

import (
	"fmt"
	"io"
)

// ProjectStatus is the data `essd status` renders.
type ProjectStatus struct {
	Project         string
	RootDir         string
	TargetDirs      []string
	WatchMode       string
	DebounceSeconds float64
	Enabled         bool
}

// StatusRenderer prints a registered project's configuration.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

func (r *StatusRenderer) Render(s ProjectStatus) {
	fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("project: "+s.Project))
	fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("root:"), s.RootDir)
	fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("watch_mode:"), s.WatchMode)
	fmt.Fprintf(r.out, "  %s %.1fs\n", r.styles.Label.Render("debounce:"), s.DebounceSeconds)
	fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("enabled:"), r.renderBool(s.Enabled))
	if len(s.TargetDirs) > 0 {
		fmt.Fprintf(r.out, "  %s %v\n", r.styles.Label.Render("targets:"), s.TargetDirs)
	}
}

func (r *StatusRenderer) renderBool(b bool) string {
	if b {
		return r.styles.Success.Render("true")
	}
	return r.styles.Warning.Render("false")
}
