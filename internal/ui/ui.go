package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/tasks"
)

const recentLines = 6

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InstallingView ViewState = iota
	ResultView
)

// InstallFunc runs an install, reporting on progress. [tasks.Installer.Install] bound to its tracks fits.
type InstallFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.InstallResult, error)

// InstallModel shows a running install and its outcome.
type InstallModel struct {
	ctx      context.Context
	cancel   context.CancelFunc
	run      InstallFunc
	title    string
	view     ViewState
	quitting bool

	updates  chan tasks.ProgressUpdate
	finished chan installFinishedMsg

	step    int
	total   int
	phase   string
	counts  map[models.DownloadStatus]int
	recent  []string
	result  *tasks.InstallResult
	err     error
	width   int
	height  int
	bar     progress.Model
	spinner spinner.Model
	results list.Model
	help    help.Model
	keys    keyMap
}

// NewInstallModel creates the view. total is the number of tracks, used until the installer reports its own.
func NewInstallModel(ctx context.Context, title string, total int, run InstallFunc) *InstallModel {
	ctx, cancel := context.WithCancel(ctx)
	return &InstallModel{
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
		title:   title,
		view:    InstallingView,
		total:   total,
		phase:   "Starting...",
		counts:  map[models.DownloadStatus]int{},
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(48)),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.warn)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// RunInstall runs the view to completion and returns the installer's result.
func RunInstall(ctx context.Context, title string, total int, run InstallFunc, opts ...tea.ProgramOption) (*tasks.InstallResult, error) {
	m := NewInstallModel(ctx, title, total, run)
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		m.cancel()
		return nil, fmt.Errorf("tui failed: %w", err)
	}
	return m.Result()
}

// Result returns what the installer returned. Nil until it finishes.
func (m *InstallModel) Result() (*tasks.InstallResult, error) {
	return m.result, m.err
}

func (m *InstallModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

func (m *InstallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.bar.Width = max(10, min(msg.Width-4, 80))
		if m.view == ResultView {
			m.results.SetSize(msg.Width-4, max(5, msg.Height-10))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.view != InstallingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.apply(tasks.ProgressUpdate(msg))
		return m, m.waitForProgress()

	case installFinishedMsg:
		m.finish(msg)
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.view == ResultView {
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *InstallModel) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == InstallingView {
		if key.Matches(msg, m.keys.quit) {
			m.quitting = true
			m.phase = "Cancelling..."
			m.cancel()
		}
		return m, nil
	}

	if m.results.FilterState() != list.Filtering && key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

// apply folds one update into the counters and the recent lines.
func (m *InstallModel) apply(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.ScanLibrary:
		m.phase = u.Message
	case tasks.InstallTracks:
		m.phase = u.Message
		m.total = u.Total
	case tasks.TrackDone:
		m.step, m.total = u.Step, u.Total
		if res, ok := u.Data.(tasks.TrackResult); ok {
			m.counts[res.Status]++
			m.recent = append(m.recent, styles.Status(res.Status, u.Message))
		} else {
			m.recent = append(m.recent, u.Message)
		}
		if len(m.recent) > recentLines {
			m.recent = m.recent[len(m.recent)-recentLines:]
		}
	case tasks.InstallDone:
		m.phase = u.Message
	}
}

func (m *InstallModel) finish(msg installFinishedMsg) {
	m.result, m.err = msg.result, msg.err
	m.view = ResultView
	m.cancel()

	width, height := max(20, m.width-4), max(5, m.height-10)
	m.results = list.New(problemItems(msg.result), list.NewDefaultDelegate(), width, height)
	m.results.Title = "Not downloaded"
	m.results.SetShowHelp(false)
}

// start launches the installer. The updates channel is buffered well past the track count so
// the installer's non-blocking sends are not dropped while the view is rendering.
func (m *InstallModel) start() tea.Cmd {
	m.updates = make(chan tasks.ProgressUpdate, m.total+8)
	m.finished = make(chan installFinishedMsg, 1)

	go func() {
		result, err := m.run(m.ctx, m.updates)
		m.finished <- installFinishedMsg{result: result, err: err}
		close(m.updates)
	}()

	return m.waitForProgress()
}

func (m *InstallModel) waitForProgress() tea.Cmd {
	updates, finished := m.updates, m.finished
	return func() tea.Msg {
		if u, ok := <-updates; ok {
			return progressMsg(u)
		}
		return <-finished
	}
}

func (m *InstallModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.step) / float64(m.total)
}

func (m *InstallModel) countsLine() string {
	return fmt.Sprintf("%s  %s  %s  %s",
		styles.Status(models.StatusDownloaded, fmt.Sprintf("%d downloaded", m.counts[models.StatusDownloaded])),
		styles.Status(models.StatusSkipped, fmt.Sprintf("%d skipped", m.counts[models.StatusSkipped])),
		styles.Status(models.StatusNoResults, fmt.Sprintf("%d no results", m.counts[models.StatusNoResults])),
		styles.Status(models.StatusFailed, fmt.Sprintf("%d failed", m.counts[models.StatusFailed])),
	)
}

func (m *InstallModel) View() string {
	if m.view == ResultView {
		return m.renderResult()
	}
	return m.renderInstalling()
}

func (m *InstallModel) renderInstalling() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(m.title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), m.phase)
	fmt.Fprintf(&b, "%s  %d/%d\n\n", m.bar.ViewAs(m.percent()), m.step, m.total)
	b.WriteString(m.countsLine())
	b.WriteString("\n\n")
	for _, line := range m.recent {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *InstallModel) renderResult() string {
	if m.result == nil {
		return styles.err.Render(fmt.Sprintf("Install failed: %v\n\nPress q to quit", m.err))
	}

	var b strings.Builder
	if m.err != nil {
		b.WriteString(styles.warn.Render(fmt.Sprintf("Install interrupted: %v", m.err)))
	} else {
		b.WriteString(styles.ok.Render("✓ Install complete"))
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s\nOutput: %s\n\n", m.result.Summary(), m.result.OutputDir)

	if len(m.results.Items()) > 0 {
		b.WriteString(m.results.View())
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.filter, m.keys.quit}))
	} else {
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	}
	return b.String()
}
