// Package ui provides the terminal user interface for AutoTok.
package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ggsolution/autotok/cmd/autotok-tui/internal/config"
	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/internal/repository"
)

// Panel represents a UI panel type.
type Panel int

const (
	PanelAccounts Panel = iota
	PanelVideos
	PanelHelp
)

// App is the main TUI application.
type App struct {
	app          *tview.Application
	pages        *tview.Pages
	cfg          *config.Config
	accounts     repository.AccountRepository
	videos       repository.VideoStore
	snap         snapshot
	snapMu       sync.RWMutex
	currentPanel Panel
	ctx          context.Context
	cancel       context.CancelFunc

	// UI components
	mainFlex      *tview.Flex
	header        *tview.TextView
	footer        *tview.TextView
	statusBar     *tview.TextView
	accountsTable *tview.Table
	videosTable   *tview.Table
	helpView      *tview.TextView

	refreshTicker *time.Ticker
	now           func() time.Time
}

// snapshot is one read of both stores.
type snapshot struct {
	accounts []domain.Account
	videos   []*domain.StoredVideo
}

// NewApp creates a new TUI application over the server's stores.
func NewApp(cfg *config.Config, accounts repository.AccountRepository, videos repository.VideoStore) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:      tview.NewApplication(),
		pages:    tview.NewPages(),
		cfg:      cfg,
		accounts: accounts,
		videos:   videos,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}

	a.setupUI()
	return a
}

// setupUI initializes all UI components.
func (a *App) setupUI() {
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.header.SetBackgroundColor(tcell.ColorDarkBlue)

	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]1[white]:Accounts [yellow]2[white]:Videos [yellow]r[white]:Refresh [yellow]?[white]:Help [yellow]q[white]:Quit")
	a.footer.SetBackgroundColor(tcell.ColorDarkBlue)

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true)
	a.statusBar.SetBackgroundColor(tcell.ColorDarkGreen)

	a.createAccountsPanel()
	a.createVideosPanel()
	a.createHelpPanel()

	a.pages.AddPage("accounts", a.accountsTable, true, true)
	a.pages.AddPage("videos", a.videosTable, true, false)
	a.pages.AddPage("help", a.helpView, true, false)

	a.mainFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 3, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.footer, 1, 0, false)

	a.app.SetInputCapture(a.handleGlobalKeys)
	a.app.SetRoot(a.mainFlex, true)
	a.updateHeader()
}

// handleGlobalKeys handles global keyboard shortcuts.
func (a *App) handleGlobalKeys(event *tcell.EventKey) *tcell.EventKey {
	// Modals own the keyboard while open.
	if name, _ := a.pages.GetFrontPage(); name == confirmPage {
		return event
	}

	switch event.Key() {
	case tcell.KeyRune:
		switch event.Rune() {
		case '1':
			a.switchPanel(PanelAccounts)
			return nil
		case '2':
			a.switchPanel(PanelVideos)
			return nil
		case '?':
			a.switchPanel(PanelHelp)
			return nil
		case 'q', 'Q':
			a.Stop()
			return nil
		case 'r', 'R':
			go a.refresh()
			return nil
		}
	case tcell.KeyF1:
		a.switchPanel(PanelAccounts)
		return nil
	case tcell.KeyF2:
		a.switchPanel(PanelVideos)
		return nil
	case tcell.KeyEscape:
		a.switchPanel(PanelAccounts)
		return nil
	}

	return event
}

// switchPanel switches to the specified panel.
func (a *App) switchPanel(panel Panel) {
	a.currentPanel = panel

	switch panel {
	case PanelAccounts:
		a.pages.SwitchToPage("accounts")
		a.app.SetFocus(a.accountsTable)
	case PanelVideos:
		a.pages.SwitchToPage("videos")
		a.app.SetFocus(a.videosTable)
	case PanelHelp:
		a.pages.SwitchToPage("help")
	}

	a.updateHeader()
}

// updateHeader updates the header with the current panel name and totals.
func (a *App) updateHeader() {
	var panelName string
	switch a.currentPanel {
	case PanelAccounts:
		panelName = "Accounts"
	case PanelVideos:
		panelName = "Videos"
	case PanelHelp:
		panelName = "Help"
	}

	a.snapMu.RLock()
	accounts, videos := len(a.snap.accounts), len(a.snap.videos)
	a.snapMu.RUnlock()

	a.header.SetText(fmt.Sprintf("\n[white::b]AutoTok[white] - [yellow]%s[white] | Accounts: [green]%d[white] | Videos: [green]%d",
		panelName, accounts, videos))
}

// updateStatusBar updates the status bar from a background goroutine.
func (a *App) updateStatusBar(msg string) {
	a.app.QueueUpdateDraw(func() {
		a.statusBar.SetText(fmt.Sprintf(" %s | Last refresh: %s", msg, a.now().Format("15:04:05")))
	})
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.refreshTicker = time.NewTicker(a.cfg.Refresh)
	go a.startBackgroundRefresh(a.refreshTicker)
	go a.refresh()

	return a.app.Run()
}

// Stop stops the TUI application.
func (a *App) Stop() {
	a.cancel()
	if a.refreshTicker != nil {
		a.refreshTicker.Stop()
	}
	a.app.Stop()
}

// startBackgroundRefresh reloads both stores on every tick until Stop.
func (a *App) startBackgroundRefresh(ticker *time.Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

// refresh reloads both stores and redraws the tables.
func (a *App) refresh() {
	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()

	snap, err := a.load(ctx)
	if err != nil {
		a.updateStatusBar(fmt.Sprintf("[red]Error: %v", err))
		return
	}

	a.app.QueueUpdateDraw(func() {
		a.apply(snap)
	})
	a.updateStatusBar(fmt.Sprintf("[green]%d account(s), %d video(s)", len(snap.accounts), len(snap.videos)))
}

// load reads accounts and stored videos.
func (a *App) load(ctx context.Context) (snapshot, error) {
	accounts, err := a.accounts.List(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("list accounts: %w", err)
	}
	videos, err := a.videos.List(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("list videos: %w", err)
	}
	return snapshot{accounts: accounts, videos: videos}, nil
}

// apply stores snap and fills the tables. Must run on the UI goroutine
// once the application is running.
func (a *App) apply(snap snapshot) {
	a.snapMu.Lock()
	a.snap = snap
	a.snapMu.Unlock()

	a.fillAccounts(snap.accounts)
	a.fillVideos(snap.videos)
	a.updateHeader()
}
