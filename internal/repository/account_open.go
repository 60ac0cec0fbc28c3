package repository

import (
	"fmt"

	"github.com/ggsolution/autotok/internal/config"
)

// OpenAccountRepository opens the account backend selected by cfg. The
// returned close func is always safe to call.
func OpenAccountRepository(cfg config.AccountsConfig) (AccountRepository, func() error, error) {
	switch cfg.Backend {
	case config.AccountsBackendSQLite:
		repo, err := NewSQLiteAccountRepository(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.AccountsBackendFile, "":
		return NewFileAccountRepository(cfg.Path, cfg.Passphrase), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown accounts backend %q", cfg.Backend)
	}
}
