package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ggsolution/autotok/cmd/autotok-tui/internal/config"
	appconfig "github.com/ggsolution/autotok/internal/config"
	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/internal/downloader"
	"github.com/ggsolution/autotok/internal/repository"
)

func newTestApp(t *testing.T) (*App, *repository.FileAccountRepository, *repository.FilesystemVideoStore) {
	t.Helper()
	dir := t.TempDir()
	accounts := repository.NewFileAccountRepository(filepath.Join(dir, "accounts.json"), "")
	store := repository.NewFilesystemVideoStore(
		appconfig.StorageConfig{UploadDir: filepath.Join(dir, "upload")},
		downloader.NewHTTPDownloader(appconfig.DownloadConfig{}),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	a := NewApp(&config.Config{Refresh: time.Second, ConfirmDelete: true}, accounts, store)
	t.Cleanup(a.cancel)
	return a, accounts, store
}

func TestApp_LoadAndApply(t *testing.T) {
	a, accounts, store := newTestApp(t)
	ctx := context.Background()

	if err := accounts.Upsert(ctx, domain.Account{ID: "oid-1", Nickname: "Creator", AccessToken: "at", RefreshToken: "rt"}); err != nil {
		t.Fatal(err)
	}
	if err := accounts.Upsert(ctx, domain.Account{ID: "oid-2", AccessToken: "at"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.StoreUpload(ctx, strings.NewReader("0123456789")); err != nil {
		t.Fatal(err)
	}

	snap, err := a.load(ctx)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	a.apply(snap)

	if got := a.accountsTable.GetRowCount(); got != 3 {
		t.Errorf("account rows = %d, want 3", got)
	}
	if got := a.accountsTable.GetCell(1, 0).Text; got != "oid-1" {
		t.Errorf("first account = %q", got)
	}
	if got := a.accountsTable.GetCell(2, 1).Text; got != "(unnamed)" {
		t.Errorf("unnamed account shown as %q", got)
	}
	if got := a.accountsTable.GetCell(2, 2).Text; got != "no refresh" {
		t.Errorf("token status = %q", got)
	}
	if got := a.videosTable.GetRowCount(); got != 2 {
		t.Errorf("video rows = %d, want 2", got)
	}
	if got := a.videosTable.GetCell(1, 1).Text; got != "10 B" {
		t.Errorf("video size = %q", got)
	}
	if !strings.Contains(a.header.GetText(true), "Accounts: 2") {
		t.Errorf("header = %q", a.header.GetText(true))
	}
}

func TestApp_ApplyEmpty(t *testing.T) {
	a, _, _ := newTestApp(t)

	a.apply(snapshot{accounts: []domain.Account{{ID: "x", AccessToken: "at"}}})
	a.apply(snapshot{})

	if got := a.accountsTable.GetCell(1, 0).Text; got != "No connected accounts" {
		t.Errorf("placeholder = %q", got)
	}
	if got := a.accountsTable.GetRowCount(); got != 2 {
		t.Errorf("rows = %d, want header and placeholder", got)
	}
	if got := a.videosTable.GetCell(1, 0).Text; got != "No stored videos" {
		t.Errorf("placeholder = %q", got)
	}
}

func TestApp_RemoveAccount(t *testing.T) {
	a, accounts, _ := newTestApp(t)
	ctx := context.Background()
	accounts.Upsert(ctx, domain.Account{ID: "oid", AccessToken: "at"})

	if err := a.removeAccount(ctx, "oid"); err != nil {
		t.Fatalf("removeAccount() error = %v", err)
	}
	if _, err := accounts.Get(ctx, "oid"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("Get() after remove error = %v", err)
	}

	err := a.removeAccount(ctx, "oid")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("second remove error = %v, want ErrAccountNotFound", err)
	}
}

func TestApp_ConfirmRemoveOpensModal(t *testing.T) {
	a, _, _ := newTestApp(t)

	a.confirmRemove("oid")

	if name, _ := a.pages.GetFrontPage(); name != confirmPage {
		t.Errorf("front page = %q, want %q", name, confirmPage)
	}
	// Global keys pass through while the modal is open.
	ev := tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)
	if got := a.handleGlobalKeys(ev); got != ev {
		t.Error("global keys should not be handled while confirming")
	}
}

func TestApp_SwitchPanel(t *testing.T) {
	a, _, _ := newTestApp(t)

	tests := []struct {
		key   rune
		page  string
		title string
	}{
		{'2', "videos", "Videos"},
		{'?', "help", "Help"},
		{'1', "accounts", "Accounts"},
	}

	for _, tt := range tests {
		t.Run(tt.page, func(t *testing.T) {
			ev := tcell.NewEventKey(tcell.KeyRune, tt.key, tcell.ModNone)
			if got := a.handleGlobalKeys(ev); got != nil {
				t.Fatal("key should be consumed")
			}
			if name, _ := a.pages.GetFrontPage(); name != tt.page {
				t.Errorf("front page = %q, want %q", name, tt.page)
			}
			if !strings.Contains(a.header.GetText(true), tt.title) {
				t.Errorf("header = %q", a.header.GetText(true))
			}
		})
	}
}

func TestApp_StopEndsBackgroundRefresh(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.refreshTicker = time.NewTicker(time.Hour)

	done := make(chan struct{})
	go func() {
		a.startBackgroundRefresh(a.refreshTicker)
		close(done)
	}()

	a.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh did not stop")
	}
}
