package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/pkg/tiktok"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memVideoStore is an in-memory VideoStore.
type memVideoStore struct {
	mu        sync.Mutex
	videos    map[string]*domain.StoredVideo
	seq       int
	remoteErr error
	uploads   int
	remotes   []string
}

func newMemVideoStore() *memVideoStore {
	return &memVideoStore{videos: make(map[string]*domain.StoredVideo)}
}

func (m *memVideoStore) add(data []byte) *domain.StoredVideo {
	m.seq++
	name := "video-" + strings.Repeat("1", m.seq) + ".mp4"
	v := &domain.StoredVideo{Filename: name, Path: "/tmp/" + name, Size: int64(len(data)), CreatedAt: time.Now()}
	m.videos[name] = v
	return v
}

func (m *memVideoStore) StoreUpload(ctx context.Context, r io.Reader) (*domain.StoredVideo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.NewStorageError("write video", "", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	return m.add(data), nil
}

func (m *memVideoStore) StoreRemote(ctx context.Context, sourceURL string) (*domain.StoredVideo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remotes = append(m.remotes, sourceURL)
	if m.remoteErr != nil {
		return nil, m.remoteErr
	}
	return m.add([]byte("remote")), nil
}

func (m *memVideoStore) Get(ctx context.Context, filename string) (*domain.StoredVideo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[filename]
	if !ok {
		return nil, domain.ErrVideoNotFound
	}
	return v, nil
}

func (m *memVideoStore) List(ctx context.Context) ([]*domain.StoredVideo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.StoredVideo, 0, len(m.videos))
	for _, v := range m.videos {
		out = append(out, v)
	}
	return out, nil
}

func (m *memVideoStore) Dir() string { return "/tmp" }

// memAccounts is an in-memory AccountRepository.
type memAccounts struct {
	mu        sync.Mutex
	accounts  []domain.Account
	upserts   int
	upsertErr error
}

func (m *memAccounts) List(ctx context.Context) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Account(nil), m.accounts...), nil
}

func (m *memAccounts) Get(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *memAccounts) Upsert(ctx context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for i := range m.accounts {
		if m.accounts[i].ID == account.ID {
			m.accounts[i] = account
			return nil
		}
	}
	m.accounts = append(m.accounts, account)
	return nil
}

func (m *memAccounts) Remove(ctx context.Context, id domain.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.accounts {
		if m.accounts[i].ID == id {
			m.accounts = append(m.accounts[:i], m.accounts[i+1:]...)
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

// publishCall records one InitiatePublish invocation.
type publishCall struct {
	token string
	url   string
}

// scriptedPublisher returns the queued publish results in order.
type scriptedPublisher struct {
	publishResults []error
	publishCalls   []publishCall
	refreshPair    *tiktok.TokenPair
	refreshErr     error
	refreshCalls   []string
}

func (p *scriptedPublisher) InitiatePublish(ctx context.Context, accessToken, videoURL string) (json.RawMessage, error) {
	p.publishCalls = append(p.publishCalls, publishCall{token: accessToken, url: videoURL})
	i := len(p.publishCalls) - 1
	if i < len(p.publishResults) && p.publishResults[i] != nil {
		return nil, p.publishResults[i]
	}
	return json.RawMessage(`{"data":{"publish_id":"p1"}}`), nil
}

func (p *scriptedPublisher) Refresh(ctx context.Context, refreshToken string) (*tiktok.TokenPair, error) {
	p.refreshCalls = append(p.refreshCalls, refreshToken)
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	return p.refreshPair, nil
}
