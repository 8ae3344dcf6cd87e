package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/tapedeck/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF4672", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		muted: NewStyle(h),
		help:  NewEm(h),
	}
}

// Status renders text in the color of a download outcome.
func (p *Palette) Status(status models.DownloadStatus, text string) string {
	switch status {
	case models.StatusDownloaded:
		return p.ok.Render(text)
	case models.StatusSkipped:
		return p.muted.Render(text)
	case models.StatusNoResults:
		return p.warn.Render(text)
	default:
		return p.err.Render(text)
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
