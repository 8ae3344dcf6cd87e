// Package models defines the records that flow through tapedeck.
//
// The package contains three groups of types:
//
//  1. Metadata: [TrackRecord] combines a track's identity, its primary artist's genre and its [Features].
//     Every audio feature is a [Feature], a number that may be unknown.
//  2. Listings: [Playlist] summarizes a playlist owned or followed by the user.
//  3. Outcomes: [Download] records what the installer did with one track, using a [DownloadStatus].
//
// All records implement [Model] so repositories can validate them before writing.
package models
