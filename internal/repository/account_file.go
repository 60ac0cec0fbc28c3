package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/pkg/crypto"
)

// FileAccountRepository keeps the account list in a single JSON file.
// When a passphrase is set the file is sealed at rest; a plain file is still
// read and is sealed on the next write.
type FileAccountRepository struct {
	path       string
	passphrase string
	mu         sync.Mutex
	now        func() time.Time
}

// NewFileAccountRepository creates a file-backed account repository.
func NewFileAccountRepository(path, passphrase string) *FileAccountRepository {
	return &FileAccountRepository{
		path:       path,
		passphrase: passphrase,
		now:        time.Now,
	}
}

// List returns all accounts in connection order.
func (r *FileAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

// Get returns the account with the given id.
func (r *FileAccountRepository) Get(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.loadLocked()
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].ID == id {
			return &accounts[i], nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

// Upsert inserts the account or replaces the entry with the same id in place.
func (r *FileAccountRepository) Upsert(ctx context.Context, account domain.Account) error {
	if account.ID == "" {
		return domain.NewInvalidInputError("id", "is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.loadLocked()
	if err != nil {
		return err
	}

	account.UpdatedAt = r.now().UTC()
	replaced := false
	for i := range accounts {
		if accounts[i].ID == account.ID {
			accounts[i] = account
			replaced = true
			break
		}
	}
	if !replaced {
		accounts = append(accounts, account)
	}
	return r.saveLocked(accounts)
}

// Remove deletes the account with the given id.
func (r *FileAccountRepository) Remove(ctx context.Context, id domain.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.loadLocked()
	if err != nil {
		return err
	}
	for i := range accounts {
		if accounts[i].ID == id {
			accounts = append(accounts[:i], accounts[i+1:]...)
			return r.saveLocked(accounts)
		}
	}
	return domain.ErrAccountNotFound
}

func (r *FileAccountRepository) loadLocked() ([]domain.Account, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Account{}, nil
		}
		return nil, domain.NewStorageError("read accounts", r.path, err)
	}
	if len(data) == 0 {
		return []domain.Account{}, nil
	}

	if crypto.IsSealed(data) {
		if r.passphrase == "" {
			return nil, domain.NewStorageError("read accounts", r.path, fmt.Errorf("file is sealed and no passphrase is configured"))
		}
		data, err = crypto.Open(data, r.passphrase)
		if err != nil {
			return nil, domain.NewStorageError("open accounts", r.path, err)
		}
	}

	var accounts []domain.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, domain.NewStorageError("parse accounts", r.path, err)
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	return accounts, nil
}

func (r *FileAccountRepository) saveLocked(accounts []domain.Account) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}
	if r.passphrase != "" {
		data, err = crypto.Seal(data, r.passphrase)
		if err != nil {
			return fmt.Errorf("seal accounts: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return domain.NewStorageError("create accounts dir", filepath.Dir(r.path), err)
	}

	// Write then rename so a crash never leaves a truncated list.
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return domain.NewStorageError("write accounts", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return domain.NewStorageError("replace accounts", r.path, err)
	}
	return nil
}
