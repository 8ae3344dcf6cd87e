package ui

import (
	"github.com/desertthunder/tapedeck/internal/tasks"
)

// progressMsg carries one installer update into Update.
type progressMsg tasks.ProgressUpdate

// installFinishedMsg is sent once the installer returns.
type installFinishedMsg struct {
	result *tasks.InstallResult
	err    error
}
