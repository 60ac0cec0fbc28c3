package repository

import (
	"context"
	"io"

	"github.com/ggsolution/autotok/internal/domain"
)

// VideoStore persists source videos under generated names.
type VideoStore interface {
	// StoreUpload writes r to a new file.
	StoreUpload(ctx context.Context, r io.Reader) (*domain.StoredVideo, error)

	// StoreRemote fetches sourceURL and streams it into a new file.
	// No file is created when the fetch fails.
	StoreRemote(ctx context.Context, sourceURL string) (*domain.StoredVideo, error)

	// Get returns the stored video with the given filename.
	Get(ctx context.Context, filename string) (*domain.StoredVideo, error)

	// List returns all stored videos, newest first.
	List(ctx context.Context) ([]*domain.StoredVideo, error)

	// Dir returns the root directory files are written to.
	Dir() string
}

// AccountRepository persists connected accounts keyed by external id.
type AccountRepository interface {
	// List returns all accounts in connection order.
	List(ctx context.Context) ([]domain.Account, error)

	// Get returns the account with the given id or domain.ErrAccountNotFound.
	Get(ctx context.Context, id domain.AccountID) (*domain.Account, error)

	// Upsert inserts the account or replaces the one with the same id in place.
	Upsert(ctx context.Context, account domain.Account) error

	// Remove deletes the account or returns domain.ErrAccountNotFound.
	Remove(ctx context.Context, id domain.AccountID) error
}
