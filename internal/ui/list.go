package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/tasks"
)

var _ list.Item = resultItem{}

// resultItem wraps [tasks.TrackResult] to implement [list.Item].
type resultItem struct {
	result tasks.TrackResult
}

func (i resultItem) FilterValue() string { return i.result.Key }
func (i resultItem) Title() string       { return i.result.Key }
func (i resultItem) Description() string {
	desc := string(i.result.Status)
	if i.result.Err != nil && i.result.Status == models.StatusFailed {
		desc += " • " + i.result.Err.Error()
	}
	return styles.Status(i.result.Status, desc)
}

// problemItems lists every result that did not download, in input order.
func problemItems(res *tasks.InstallResult) []list.Item {
	if res == nil {
		return nil
	}
	var items []list.Item
	for _, r := range res.Results {
		if r.Status != models.StatusDownloaded {
			items = append(items, resultItem{result: r})
		}
	}
	return items
}
