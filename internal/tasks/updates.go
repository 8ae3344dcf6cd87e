package tasks

import (
	"fmt"

	"github.com/desertthunder/tapedeck/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ScanLibrary Phase = iota
	InstallTracks
	TrackDone
	InstallDone
)

func (p Phase) String() string {
	switch p {
	case ScanLibrary:
		return "scan_library"
	case InstallTracks:
		return "install_tracks"
	case TrackDone:
		return "track_done"
	case InstallDone:
		return "install_done"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func scanLibraryUpdate(dir string, existing int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d downloaded tracks in %s", existing, dir),
	}
}

func installStartUpdate(total, workers int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   InstallTracks,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Installing %d tracks with %d workers...", total, workers),
	}
}

func trackDoneUpdate(step, total int, res TrackResult) ProgressUpdate {
	var mark string
	switch res.Status {
	case models.StatusDownloaded:
		mark = "✓"
	case models.StatusSkipped:
		mark = "="
	case models.StatusNoResults:
		mark = "?"
	default:
		mark = "✗"
	}

	msg := fmt.Sprintf("[%d/%d] %s %s", step, total, mark, res.Key)
	if res.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, res.Err)
	}

	return ProgressUpdate{
		Phase:   TrackDone,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func installDoneUpdate(res *InstallResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   InstallDone,
		Step:    res.Total,
		Total:   res.Total,
		Message: res.Summary(),
		Data:    res,
	}
}
