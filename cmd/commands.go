package main

import (
	"github.com/urfave/cli/v3"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize tapedeck configuration, database and tools",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file with the default settings",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the SQLite database and run migrations",
				Action: r.SetupDatabase,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "status", Usage: "Only print migration status"},
					&cli.BoolFlag{Name: "rollback", Usage: "Roll back the most recent migration"},
				},
			},
			{
				Name:   "ytdlp",
				Usage:  "Resolve a yt-dlp executable, downloading one when none is on PATH",
				Action: r.SetupYTDLP,
			},
		},
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authenticate with Spotify in the browser and save the tokens to the config",
		Action: r.Auth,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-browser", Usage: "Print the login URL instead of opening it"},
		},
	}
}

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Read Spotify playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your playlists",
				Action: r.PlaylistList,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
			},
			{
				Name:   "tracks",
				Usage:  "Fetch the tracks of a playlist with audio features and genres",
				Action: r.PlaylistTracks,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Spotify playlist ID", Required: true},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: json or csv"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to file instead of stdout"},
					&cli.BoolFlag{Name: "save", Usage: "Store the tracks in the database"},
				},
			},
		},
	}
}

func installCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "install",
		Usage:  "Download the audio of every track in a playlist from YouTube",
		Action: r.Install,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Spotify playlist ID"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Track file (json or csv) written by `playlist tracks`"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory (default from config)"},
			&cli.IntFlag{Name: "pool", Aliases: []string{"p"}, Usage: "Maximum concurrent downloads (default from config)"},
			&cli.BoolFlag{Name: "tui", Usage: "Show interactive progress"},
			&cli.BoolFlag{Name: "no-record", Usage: "Do not record outcomes in the database"},
		},
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "history",
		Usage:  "Show recorded download outcomes",
		Action: r.History,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "Filter by status: downloaded, skipped, no_results or failed"},
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
	}
}

func audioCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "audio",
		Usage: "Transform downloaded audio",
		Commands: []*cli.Command{
			{
				Name:      "convert",
				Usage:     "Convert audio files to WAV next to the originals",
				ArgsUsage: "FILES...",
				Action:    r.AudioConvert,
			},
			{
				Name:      "trim",
				Usage:     "Cut a random window of the given duration",
				ArgsUsage: "IN OUT",
				Action:    r.AudioTrim,
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "in"},
					&cli.StringArg{Name: "out"},
				},
				Flags: []cli.Flag{
					&cli.FloatFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Window length in seconds (default from config)"},
				},
			},
			{
				Name:      "spectrogram",
				Usage:     "Save the STFT magnitude, phase and dB spectrogram as an npz archive",
				ArgsUsage: "IN OUT.npz",
				Action:    r.AudioSpectrogram,
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "in"},
					&cli.StringArg{Name: "out"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "phase-only", Usage: "Only save the phase and sample rate"},
				},
			},
			{
				Name:      "reconstruct",
				Usage:     "Rebuild a WAV file from a magnitude and phase archive",
				ArgsUsage: "IN.npz OUT.wav",
				Action:    r.AudioReconstruct,
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "in"},
					&cli.StringArg{Name: "out"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "phase", Usage: "Archive holding the phase when it is not in IN.npz"},
				},
			},
		},
	}
}
