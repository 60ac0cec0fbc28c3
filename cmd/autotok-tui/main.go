// AutoTok TUI - terminal manager for connected TikTok accounts and stored
// videos. It opens the same stores the server uses.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/ggsolution/autotok/cmd/autotok-tui/internal/config"
	"github.com/ggsolution/autotok/cmd/autotok-tui/internal/ui"
	appconfig "github.com/ggsolution/autotok/internal/config"
	"github.com/ggsolution/autotok/internal/downloader"
	"github.com/ggsolution/autotok/internal/repository"
	"github.com/ggsolution/autotok/pkg/crypto"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	srvCfg, err := appconfig.Load(cfg.ServerConfigPath)
	if err != nil {
		return fmt.Errorf("load server config: %w", err)
	}

	sealed, err := needsPassphrase(srvCfg.Accounts)
	if err != nil {
		return fmt.Errorf("inspect account file: %w", err)
	}
	if sealed {
		passphrase, err := promptPassphrase()
		if err != nil {
			return fmt.Errorf("read passphrase: %w", err)
		}
		srvCfg.Accounts.Passphrase = passphrase
	}

	accounts, closeAccounts, err := repository.OpenAccountRepository(srvCfg.Accounts)
	if err != nil {
		return fmt.Errorf("open account store: %w", err)
	}
	defer closeAccounts()

	// The terminal belongs to tview.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	videos := repository.NewFilesystemVideoStore(srvCfg.Storage, downloader.NewHTTPDownloader(srvCfg.Download), logger)

	if err := ui.NewApp(cfg, accounts, videos).Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

// needsPassphrase reports whether the file backend holds a sealed file and
// no passphrase is configured.
func needsPassphrase(cfg appconfig.AccountsConfig) (bool, error) {
	if cfg.Backend == appconfig.AccountsBackendSQLite || cfg.Passphrase != "" {
		return false, nil
	}
	data, err := os.ReadFile(cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return crypto.IsSealed(data), nil
}

func promptPassphrase() (string, error) {
	fmt.Print("Account file passphrase: ")

	if term.IsTerminal(int(syscall.Stdin)) {
		passphrase, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		fmt.Println()
		return string(passphrase), nil
	}

	// Piped input
	reader := bufio.NewReader(os.Stdin)
	passphrase, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(passphrase), nil
}
