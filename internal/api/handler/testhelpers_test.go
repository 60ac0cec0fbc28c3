package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ggsolution/autotok/internal/config"
	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/internal/downloader"
	"github.com/ggsolution/autotok/internal/repository"
	"github.com/ggsolution/autotok/internal/service"
	"github.com/ggsolution/autotok/pkg/tiktok"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTikTok is a test implementation of every TikTok client slice the
// handlers and services use.
type fakeTikTok struct {
	mu sync.Mutex

	publishErrs   []error
	publishBody   json.RawMessage
	publishTokens []string
	publishURLs   []string

	refreshPair  *tiktok.TokenPair
	refreshErr   error
	refreshCalls int

	infoStatus int
	infoBody   []byte
	infoErr    error
	infoToken  string

	pair        *tiktok.TokenPair
	exchangeErr error
	user        *tiktok.UserInfo
}

func (f *fakeTikTok) InitiatePublish(ctx context.Context, accessToken, videoURL string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishTokens = append(f.publishTokens, accessToken)
	f.publishURLs = append(f.publishURLs, videoURL)
	if len(f.publishErrs) > 0 {
		err := f.publishErrs[0]
		f.publishErrs = f.publishErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.publishBody != nil {
		return f.publishBody, nil
	}
	return json.RawMessage(`{"data":{"publish_id":"p-1"}}`), nil
}

func (f *fakeTikTok) Refresh(ctx context.Context, refreshToken string) (*tiktok.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshPair, nil
}

func (f *fakeTikTok) UserInfoRaw(ctx context.Context, accessToken string) (int, []byte, error) {
	f.infoToken = accessToken
	if f.infoErr != nil {
		return 0, nil, f.infoErr
	}
	return f.infoStatus, f.infoBody, nil
}

func (f *fakeTikTok) AuthorizeURL(state, verifier, redirectURI string) string {
	return "https://auth.example.com/authorize?state=" + state + "&code_challenge=" + tiktok.CodeChallenge(verifier)
}

func (f *fakeTikTok) ExchangeAuthorizationCodeWithRedirect(ctx context.Context, code, verifier, redirectURI string) (*tiktok.TokenPair, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.pair, nil
}

func (f *fakeTikTok) UserInfo(ctx context.Context, accessToken string) (*tiktok.UserInfo, error) {
	return f.user, nil
}

// fakeGemini is a test implementation of TextGenerator.
type fakeGemini struct {
	status    int
	body      []byte
	err       error
	prompt    string
	script    *domain.VideoScript
	scriptErr error
}

func (f *fakeGemini) Generate(ctx context.Context, prompt string) (int, []byte, error) {
	f.prompt = prompt
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.status, f.body, nil
}

func (f *fakeGemini) GenerateScript(ctx context.Context, topic string) (*domain.VideoScript, error) {
	if f.scriptErr != nil {
		return nil, f.scriptErr
	}
	return f.script, nil
}

// testEnv wires real storage in a temp dir with fake providers.
type testEnv struct {
	dir      string
	store    *repository.FilesystemVideoStore
	accounts *repository.FileAccountRepository
	tiktok   *fakeTikTok
	ingest   *service.IngestService
	account  *service.AccountService
	publish  *service.PublishService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := testLogger()

	store := repository.NewFilesystemVideoStore(
		config.StorageConfig{UploadDir: filepath.Join(dir, "upload")},
		downloader.NewHTTPDownloader(config.DownloadConfig{UserAgent: "autotok-test"}),
		logger,
	)
	accounts := repository.NewFileAccountRepository(filepath.Join(dir, "accounts.json"), "")
	tt := &fakeTikTok{}
	ingest := service.NewIngestService(store, "", logger)

	return &testEnv{
		dir:      dir,
		store:    store,
		accounts: accounts,
		tiktok:   tt,
		ingest:   ingest,
		account:  service.NewAccountService(tt, accounts, logger),
		publish:  service.NewPublishService(ingest, accounts, tt, logger),
	}
}

func (e *testEnv) addAccount(t *testing.T, acc domain.Account) {
	t.Helper()
	if err := e.accounts.Upsert(context.Background(), acc); err != nil {
		t.Fatalf("seed account: %v", err)
	}
}
