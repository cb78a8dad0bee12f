package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer is a bubbletea-backed Renderer for interactive terminals.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *ingestModel
	done    chan struct{}
	started bool
}

// NewTUIRenderer builds a TUIRenderer. It fails if Output is not a TTY
// so NewRenderer can fall back to PlainRenderer.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("tui: output is not a terminal")
	}
	model := newIngestModel(cfg.Project)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}
	return &TUIRenderer{cfg: cfg, model: model, done: make(chan struct{})}, nil
}

func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)
	r.started = true
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(progressMsg(event))
	}
}

func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program == nil {
		return nil
	}
	r.program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

type progressMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats

type ingestModel struct {
	project     string
	width       int
	quitting    bool
	complete    bool
	stats       CompletionStats
	errCount    int
	warnCount   int
	stage       Stage
	current     int
	total       int
	currentFile string
	spinner     spinner.Model
	bar         progress.Model
	styles      Styles
}

func newIngestModel(project string) *ingestModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(colorTeal))
	bar := progress.New(progress.WithSolidFill(colorTeal), progress.WithWidth(40), progress.WithoutPercentage())
	return &ingestModel{project: project, spinner: s, bar: bar, styles: DefaultStyles(), width: 80}
}

func (m *ingestModel) Init() tea.Cmd { return m.spinner.Tick }

func (m *ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case progressMsg:
		m.stage = msg.Stage
		m.current = msg.Current
		m.total = msg.Total
		m.currentFile = msg.CurrentFile
	case errorMsg:
		if msg.IsWarn {
			m.warnCount++
		} else {
			m.errCount++
		}
	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *ingestModel) View() string {
	if m.quitting {
		return "cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	width := m.width - 4
	if width < 40 {
		width = 40
	}

	stages := m.renderStages()
	progressLine := m.renderProgress()
	status := m.renderStatus()

	title := "essd index"
	if m.project != "" {
		title = fmt.Sprintf("essd index • %s", m.project)
	}
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorDarkGray)).
		Padding(0, 1).
		Width(width)

	content := strings.Join([]string{stages, progressLine}, "\n")
	return m.styles.Header.Render(title) + "\n" + panel.Render(content) + "\n" + status
}

func (m *ingestModel) renderStages() string {
	order := []Stage{StageScan, StageIndex}
	var parts []string
	for _, s := range order {
		icon, style := "○", m.styles.Dim
		switch {
		case s < m.stage:
			icon, style = "●", m.styles.Success
		case s == m.stage:
			icon, style = m.spinner.View(), m.styles.Active
		}
		parts = append(parts, style.Render(icon+" "+s.String()))
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *ingestModel) renderProgress() string {
	if m.total == 0 {
		return fmt.Sprintf("%s %s...", m.spinner.View(), m.stage)
	}
	percent := float64(m.current) / float64(m.total)
	bar := m.bar.ViewAs(percent)
	count := m.styles.Label.Render(fmt.Sprintf("%d/%d", m.current, m.total))
	line := fmt.Sprintf("%s %s", bar, count)
	if m.currentFile != "" {
		line += "\n" + m.styles.Dim.Render(m.currentFile)
	}
	return line
}

func (m *ingestModel) renderStatus() string {
	if m.errCount == 0 && m.warnCount == 0 {
		return m.styles.Dim.Render("q to quit")
	}
	var parts []string
	if m.warnCount > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("%d warnings", m.warnCount)))
	}
	if m.errCount > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("%d errors", m.errCount)))
	}
	return strings.Join(parts, "  ") + m.styles.Dim.Render("  │  q to quit")
}

func (m *ingestModel) renderComplete() string {
	lines := []string{m.styles.Success.Render("✓ indexing complete"), ""}
	lines = append(lines,
		fmt.Sprintf("%s %d", m.styles.Label.Render("scanned:"), m.stats.FilesScanned),
		fmt.Sprintf("%s %d", m.styles.Label.Render("unchanged:"), m.stats.FilesUnchanged),
		fmt.Sprintf("%s %s", m.styles.Label.Render("duration:"), m.stats.Duration.Round(1e8)),
	)
	if m.stats.FilesFailed > 0 {
		lines = append(lines, m.styles.Error.Render(fmt.Sprintf("%d failed", m.stats.FilesFailed)))
	}
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorTeal)).
		Padding(1, 2)
	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

var _ Renderer = (*TUIRenderer)(nil)
