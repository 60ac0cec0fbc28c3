package ui

import (
	"github.com/rivo/tview"
)

// createHelpPanel creates the help panel.
func (a *App) createHelpPanel() {
	a.helpView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	a.helpView.SetBorder(true).SetTitle(" Help ")

	helpText := `[yellow::b]AutoTok - Terminal Account Manager[white]

Reads the same account store and upload directory as the AutoTok
server, using the server's config file and environment.

[yellow::b]GLOBAL NAVIGATION[white]
[cyan]1[white] or [cyan]F1[white]     Accounts       - Connected TikTok accounts
[cyan]2[white] or [cyan]F2[white]     Videos         - Files in the upload directory
[cyan]?[white]            Help           - This help screen
[cyan]r[white]            Refresh        - Reload accounts and videos
[cyan]q[white]            Quit           - Exit the application
[cyan]Escape[white]       Accounts       - Return to accounts

[yellow::b]ACCOUNTS PANEL[white]
[cyan]d[white]            Remove the selected account

The TOKEN column reports whether an access and refresh token are
stored. Token values are never shown. A removed account has to be
connected again from the dashboard before it can publish.

[yellow::b]VIDEOS PANEL[white]
Stored videos, newest first, with the path the server serves them at.
Files are never deleted automatically.

[yellow::b]ENVIRONMENT[white]
[cyan]AUTOTOK_CONFIG[white]         Server config file (YAML)
[cyan]AUTOTOK_TUI_REFRESH[white]    Refresh interval (default 5s)
[cyan]AUTOTOK_TUI_CONFIRM[white]    Set to false to remove without asking
[cyan]ACCOUNTS_PASSPHRASE[white]    Passphrase of a sealed account file;
                       prompted for when unset
`

	a.helpView.SetText(helpText)
}
