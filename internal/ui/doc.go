// Package ui implements the terminal progress view for `tapedeck install --tui` using bubbletea's Elm architecture.
//
// [InstallModel] starts the installer in the background and consumes its [tasks.ProgressUpdate] channel:
//  1. [InstallingView] : spinner, progress bar, running outcome counts and the latest track lines
//  2. [ResultView] : summary plus a filterable list of tracks that were skipped, not found or failed
//
// Pressing q while installing cancels the run; the view waits for the installer to return before exiting.
package ui
