package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ggsolution/autotok/internal/domain"
)

var videoHeaders = []string{"FILENAME", "SIZE", "AGE", "PATH"}

// createVideosPanel creates the stored videos table.
func (a *App) createVideosPanel() {
	a.videosTable = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.videosTable.SetBorder(true).SetTitle(" Stored Videos ")
	a.videosTable.SetSelectedStyle(tcell.StyleDefault.
		Foreground(tcell.ColorWhite).
		Background(tcell.ColorDarkCyan))

	setHeaderRow(a.videosTable, videoHeaders)
}

// fillVideos replaces the table body with videos, newest first.
func (a *App) fillVideos(videos []*domain.StoredVideo) {
	clearBody(a.videosTable)

	now := a.now()
	var total int64
	for i, v := range videos {
		row := i + 1
		total += v.Size
		a.videosTable.SetCell(row, 0, tview.NewTableCell(v.Filename).SetExpansion(2))
		a.videosTable.SetCell(row, 1, tview.NewTableCell(formatSize(v.Size)).SetAlign(tview.AlignRight).SetExpansion(1))
		a.videosTable.SetCell(row, 2, tview.NewTableCell(formatAge(v.CreatedAt, now)).SetExpansion(1))
		a.videosTable.SetCell(row, 3, tview.NewTableCell(v.PublicPath()).SetTextColor(tcell.ColorGray).SetExpansion(2))
	}

	if len(videos) == 0 {
		a.videosTable.SetCell(1, 0, tview.NewTableCell("No stored videos").
			SetTextColor(tcell.ColorGray).
			SetSelectable(false))
		a.videosTable.SetTitle(" Stored Videos ")
		return
	}
	a.videosTable.SetTitle(" Stored Videos (" + formatSize(total) + ") ")
}
