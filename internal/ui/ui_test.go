package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/tasks"
)

func sampleResult() *tasks.InstallResult {
	return &tasks.InstallResult{
		OutputDir: "Youtube",
		Results: []tasks.TrackResult{
			{Key: "A - X", Status: models.StatusDownloaded},
			{Key: "B - Y", Status: models.StatusSkipped},
			{Key: "C - Z", Status: models.StatusFailed, Err: errors.New("boom")},
		},
		Total:      3,
		Downloaded: 1,
		Skipped:    1,
		Failed:     1,
	}
}

// drain runs the model's wait command until the installer finishes, feeding every message back through Update.
func drain(t *testing.T, m *InstallModel, cmd tea.Cmd) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		msgs := make(chan tea.Msg, 1)
		go func() { msgs <- cmd() }()

		select {
		case msg := <-msgs:
			_, next := m.Update(msg)
			if _, done := msg.(installFinishedMsg); done {
				return
			}
			cmd = next
		case <-deadline:
			t.Fatal("installer never finished")
		}
	}
}

func TestInstallModelApply(t *testing.T) {
	m := NewInstallModel(context.Background(), "Installing", 3, nil)

	m.Update(progressMsg{Phase: tasks.InstallTracks, Total: 3, Message: "Installing 3 tracks with 2 workers..."})
	m.Update(progressMsg{Phase: tasks.TrackDone, Step: 1, Total: 3, Message: "[1/3] ✓ A - X",
		Data: tasks.TrackResult{Key: "A - X", Status: models.StatusDownloaded}})
	m.Update(progressMsg{Phase: tasks.TrackDone, Step: 2, Total: 3, Message: "[2/3] ✗ C - Z",
		Data: tasks.TrackResult{Key: "C - Z", Status: models.StatusFailed}})

	if m.step != 2 || m.total != 3 {
		t.Errorf("step/total = %d/%d, want 2/3", m.step, m.total)
	}
	if m.counts[models.StatusDownloaded] != 1 || m.counts[models.StatusFailed] != 1 {
		t.Errorf("unexpected counts %v", m.counts)
	}
	if len(m.recent) != 2 {
		t.Errorf("expected 2 recent lines, got %d", len(m.recent))
	}
	if got := m.percent(); got < 0.66 || got > 0.67 {
		t.Errorf("percent = %v", got)
	}

	view := m.View()
	for _, want := range []string{"Installing", "2/3", "1 downloaded", "1 failed", "A - X"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestInstallModelRecentWindow(t *testing.T) {
	m := NewInstallModel(context.Background(), "t", 20, nil)
	for i := range 20 {
		m.Update(progressMsg{Phase: tasks.TrackDone, Step: i + 1, Total: 20, Message: "line"})
	}
	if len(m.recent) != recentLines {
		t.Errorf("expected %d recent lines, got %d", recentLines, len(m.recent))
	}
}

func TestInstallModelRun(t *testing.T) {
	want := sampleResult()
	run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.InstallResult, error) {
		for i, r := range want.Results {
			progress <- tasks.ProgressUpdate{Phase: tasks.TrackDone, Step: i + 1, Total: 3, Data: r}
		}
		return want, nil
	}

	m := NewInstallModel(context.Background(), "Installing", 3, run)
	drain(t, m, m.start())

	if m.view != ResultView {
		t.Fatalf("expected result view, got %v", m.view)
	}
	got, err := m.Result()
	if err != nil || got != want {
		t.Fatalf("Result() = %v, %v", got, err)
	}
	if m.step != 3 {
		t.Errorf("expected step 3, got %d", m.step)
	}
	if n := len(m.results.Items()); n != 2 {
		t.Errorf("expected 2 problem tracks, got %d", n)
	}

	view := m.View()
	if !strings.Contains(view, "Install complete") || !strings.Contains(view, want.Summary()) {
		t.Errorf("unexpected result view:\n%s", view)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q in result view should quit")
	}
}

func TestInstallModelCancel(t *testing.T) {
	started := make(chan struct{})
	run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.InstallResult, error) {
		close(started)
		<-ctx.Done()
		return &tasks.InstallResult{}, ctx.Err()
	}

	m := NewInstallModel(context.Background(), "Installing", 1, run)
	cmd := m.start()
	<-started

	_, quitCmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if quitCmd != nil {
		t.Error("q while installing should wait for the installer")
	}
	if !m.quitting {
		t.Error("expected quitting state")
	}

	drain(t, m, cmd)

	if _, err := m.Result(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !strings.Contains(m.View(), "interrupted") {
		t.Errorf("expected interrupted view:\n%s", m.View())
	}
}

func TestProblemItems(t *testing.T) {
	items := problemItems(sampleResult())
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0].(resultItem)
	if first.Title() != "B - Y" || first.FilterValue() != "B - Y" {
		t.Errorf("unexpected item %+v", first)
	}
	if !strings.Contains(items[1].(resultItem).Description(), "boom") {
		t.Error("failed item should show its error")
	}
	if problemItems(nil) != nil {
		t.Error("nil result should have no items")
	}
}
