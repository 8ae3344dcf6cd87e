// Package repositories implements SQLite persistence for enriched tracks and installer outcomes.
//
// Key Implementations:
//   - [TrackRepository] : Track records with nullable audio features, keyed by track ID
//   - [DownloadRepository] : One row per processed track per install run, implements tasks.DownloadRecorder
//
// Unknown features are stored as NULL and read back as unknown. Lookups that match nothing return
// [shared.ErrRecordNotFound].
package repositories
