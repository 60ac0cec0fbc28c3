package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ggsolution/autotok/internal/domain"
)

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatAge renders the time since t the way kubectl does.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < 0:
		return "0s"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func displayName(acc domain.Account) string {
	if acc.Nickname != "" {
		return acc.Nickname
	}
	return "(unnamed)"
}

// tokenStatus never shows token material.
func tokenStatus(acc domain.Account) (string, tcell.Color) {
	switch {
	case !acc.Connected():
		return "missing", tcell.ColorRed
	case acc.RefreshToken == "":
		return "no refresh", tcell.ColorYellow
	default:
		return "ok", tcell.ColorGreen
	}
}
