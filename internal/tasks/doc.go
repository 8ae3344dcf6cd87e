// Package tasks implements the playlist installer.
//
// [Installer.Install] takes the enriched track records of a playlist and downloads the audio of each one into the
// output directory. Tracks run on an errgroup limited to the configured pool size; each task searches for a video,
// reserves the track key in a shared [TitleSet] and downloads when the key was not already present.
//
// # Failure isolation
//
// A track never fails its siblings. Every outcome comes back as a [TrackResult] with a [models.DownloadStatus]:
//   - downloaded: the file was written
//   - skipped: the key was already on disk or reserved by another task
//   - no_results: the search returned nothing
//   - failed: search or download returned an error
//
// A failed key stays reserved, so a run never attempts the same key twice.
//
// # Progress
//
// Operations emit [ProgressUpdate] values on an optional channel. Sends never block; a full channel drops the update.
package tasks
