package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/pkg/tiktok"
)

func newPublishFixture(pub *scriptedPublisher) (*PublishService, *memAccounts, *memVideoStore) {
	store := newMemVideoStore()
	accounts := &memAccounts{accounts: []domain.Account{
		{ID: "oid", Nickname: "Creator", AccessToken: "at-old", RefreshToken: "rt-old"},
	}}
	svc := NewPublishService(NewIngestService(store, "", testLogger()), accounts, pub, testLogger())
	return svc, accounts, store
}

func expiredErr() error {
	return &tiktok.PublishError{Status: http.StatusUnauthorized, Body: `{"error":{"code":"access_token_invalid"}}`}
}

func TestPublishService_Success(t *testing.T) {
	pub := &scriptedPublisher{}
	svc, accounts, _ := newPublishFixture(pub)

	res, err := svc.Publish(context.Background(), PublishRequest{
		AccountID: "oid",
		File:      strings.NewReader("0123456789"),
		Host:      "localhost:3001",
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if res.State != domain.PublishDone || res.Refreshed {
		t.Errorf("state = %s refreshed = %v, want done without refresh", res.State, res.Refreshed)
	}
	if !strings.HasPrefix(res.URL, "http://localhost:3001/upload/video-") {
		t.Errorf("URL = %q", res.URL)
	}
	if len(pub.publishCalls) != 1 || pub.publishCalls[0].token != "at-old" || pub.publishCalls[0].url != res.URL {
		t.Errorf("publish calls = %+v", pub.publishCalls)
	}
	if len(pub.refreshCalls) != 0 || accounts.upserts != 0 {
		t.Errorf("unexpected refresh: calls=%v upserts=%d", pub.refreshCalls, accounts.upserts)
	}
	if res.AttemptID == "" || len(res.Payload) == 0 {
		t.Errorf("missing attempt id or payload: %+v", res)
	}
}

func TestPublishService_ExpiredTokenRefreshesOnceAndRetries(t *testing.T) {
	pub := &scriptedPublisher{
		publishResults: []error{expiredErr(), nil},
		refreshPair:    &tiktok.TokenPair{AccessToken: "at-new", RefreshToken: "rt-new"},
	}
	svc, accounts, _ := newPublishFixture(pub)

	res, err := svc.Publish(context.Background(), PublishRequest{
		AccountID: "oid",
		VideoURL:  "https://cdn.example.com/v.mp4",
		Host:      "autotok.example.com",
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if res.State != domain.PublishDone || !res.Refreshed {
		t.Errorf("state = %s refreshed = %v, want done after refresh", res.State, res.Refreshed)
	}
	if len(pub.refreshCalls) != 1 || pub.refreshCalls[0] != "rt-old" {
		t.Errorf("refresh calls = %v, want exactly [rt-old]", pub.refreshCalls)
	}
	if len(pub.publishCalls) != 2 {
		t.Fatalf("publish calls = %d, want 2", len(pub.publishCalls))
	}
	if pub.publishCalls[1].token != "at-new" {
		t.Errorf("retry used token %q, want at-new", pub.publishCalls[1].token)
	}
	if pub.publishCalls[0].url != pub.publishCalls[1].url {
		t.Errorf("retry used a different url")
	}

	acc, _ := accounts.Get(context.Background(), "oid")
	if acc.AccessToken != "at-new" || acc.RefreshToken != "rt-new" {
		t.Errorf("account tokens = %q/%q, want at-new/rt-new", acc.AccessToken, acc.RefreshToken)
	}
	if acc.Nickname != "Creator" {
		t.Errorf("refresh lost profile fields: %+v", acc)
	}
}

func TestPublishService_RefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	pub := &scriptedPublisher{
		publishResults: []error{expiredErr(), nil},
		refreshPair:    &tiktok.TokenPair{AccessToken: "at-new"},
	}
	svc, accounts, _ := newPublishFixture(pub)

	if _, err := svc.Publish(context.Background(), PublishRequest{AccountID: "oid", VideoURL: "https://cdn.example.com/v.mp4"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	acc, _ := accounts.Get(context.Background(), "oid")
	if acc.RefreshToken != "rt-old" {
		t.Errorf("RefreshToken = %q, want rt-old kept", acc.RefreshToken)
	}
}

func TestPublishService_NonExpiryErrorNeverRefreshes(t *testing.T) {
	original := &tiktok.PublishError{Status: http.StatusForbidden, Body: `{"error":{"code":"spam_risk_too_many_posts"}}`}
	pub := &scriptedPublisher{publishResults: []error{original}}
	svc, accounts, _ := newPublishFixture(pub)

	res, err := svc.Publish(context.Background(), PublishRequest{AccountID: "oid", VideoURL: "https://cdn.example.com/v.mp4"})
	if err != original {
		t.Fatalf("error = %v, want the provider publish error unchanged", err)
	}
	if res.State != domain.PublishFailed {
		t.Errorf("state = %s, want failed", res.State)
	}
	if len(pub.refreshCalls) != 0 || accounts.upserts != 0 {
		t.Errorf("refresh attempted: calls=%v upserts=%d", pub.refreshCalls, accounts.upserts)
	}
}

func TestPublishService_RefreshFailureIsSessionExpired(t *testing.T) {
	refreshErr := &tiktok.AuthRefreshError{Status: http.StatusBadRequest, Body: `{"error":"invalid_grant"}`}
	pub := &scriptedPublisher{
		publishResults: []error{expiredErr()},
		refreshErr:     refreshErr,
	}
	svc, accounts, _ := newPublishFixture(pub)

	res, err := svc.Publish(context.Background(), PublishRequest{AccountID: "oid", VideoURL: "https://cdn.example.com/v.mp4"})
	var expired *domain.SessionExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("expected SessionExpiredError, got %v", err)
	}
	if !errors.Is(err, refreshErr) {
		t.Error("SessionExpiredError should wrap the refresh error")
	}
	if res.State != domain.PublishFailed {
		t.Errorf("state = %s, want failed", res.State)
	}
	if len(pub.publishCalls) != 1 {
		t.Errorf("publish calls = %d, want 1 (no retry)", len(pub.publishCalls))
	}
	if accounts.upserts != 0 {
		t.Errorf("account written %d times, want untouched", accounts.upserts)
	}
	acc, _ := accounts.Get(context.Background(), "oid")
	if acc.AccessToken != "at-old" || acc.RefreshToken != "rt-old" {
		t.Errorf("account tokens changed: %+v", acc)
	}
}

func TestPublishService_RetryFailureIsTerminal(t *testing.T) {
	pub := &scriptedPublisher{
		publishResults: []error{expiredErr(), expiredErr()},
		refreshPair:    &tiktok.TokenPair{AccessToken: "at-new", RefreshToken: "rt-new"},
	}
	svc, _, _ := newPublishFixture(pub)

	res, err := svc.Publish(context.Background(), PublishRequest{AccountID: "oid", VideoURL: "https://cdn.example.com/v.mp4"})
	var pubErr *tiktok.PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if res.State != domain.PublishFailed || !res.Refreshed {
		t.Errorf("state = %s refreshed = %v", res.State, res.Refreshed)
	}
	if len(pub.refreshCalls) != 1 || len(pub.publishCalls) != 2 {
		t.Errorf("refresh=%d publish=%d, want 1 and 2", len(pub.refreshCalls), len(pub.publishCalls))
	}
}

func TestPublishService_NoAccount(t *testing.T) {
	tests := []struct {
		name string
		id   domain.AccountID
	}{
		{"no id", ""},
		{"unknown id", "ghost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &scriptedPublisher{}
			svc, _, store := newPublishFixture(pub)

			res, err := svc.Publish(context.Background(), PublishRequest{AccountID: tt.id, VideoURL: "https://cdn.example.com/v.mp4"})
			var noAcc *domain.NoAccountError
			if !errors.As(err, &noAcc) {
				t.Fatalf("expected NoAccountError, got %v", err)
			}
			if res.State != domain.PublishFailed {
				t.Errorf("state = %s, want failed", res.State)
			}
			if len(pub.publishCalls) != 0 || len(store.remotes) != 0 {
				t.Error("network or storage used before the account check")
			}
		})
	}
}

func TestPublishService_AccountWithoutToken(t *testing.T) {
	pub := &scriptedPublisher{}
	svc, accounts, _ := newPublishFixture(pub)
	accounts.accounts = append(accounts.accounts, domain.Account{ID: "bare"})

	_, err := svc.Publish(context.Background(), PublishRequest{AccountID: "bare", VideoURL: "https://cdn.example.com/v.mp4"})
	var noAcc *domain.NoAccountError
	if !errors.As(err, &noAcc) {
		t.Fatalf("expected NoAccountError, got %v", err)
	}
}

func TestPublishService_StoredPath(t *testing.T) {
	pub := &scriptedPublisher{}
	svc, _, store := newPublishFixture(pub)
	v := store.add([]byte("x"))

	res, err := svc.Publish(context.Background(), PublishRequest{AccountID: "oid", VideoURL: v.PublicPath(), Host: "localhost:3001"})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if res.URL != "http://localhost:3001"+v.PublicPath() {
		t.Errorf("URL = %q", res.URL)
	}
	if len(store.remotes) != 0 || store.uploads != 0 {
		t.Error("stored path should not create a new file")
	}

	_, err = svc.Publish(context.Background(), PublishRequest{AccountID: "oid", VideoURL: "/upload/video-404.mp4"})
	if !errors.Is(err, domain.ErrVideoNotFound) {
		t.Errorf("missing stored path error = %v, want ErrVideoNotFound", err)
	}
}

func TestPublishService_ResolveFailure(t *testing.T) {
	pub := &scriptedPublisher{}
	svc, _, store := newPublishFixture(pub)
	store.remoteErr = &domain.RemoteFetchError{URL: "u", Status: http.StatusNotFound}

	res, err := svc.Publish(context.Background(), PublishRequest{AccountID: "oid", VideoURL: "https://cdn.example.com/missing.mp4"})
	var fetchErr *domain.RemoteFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected RemoteFetchError, got %v", err)
	}
	if res.State != domain.PublishFailed || len(pub.publishCalls) != 0 {
		t.Errorf("state = %s publish calls = %d", res.State, len(pub.publishCalls))
	}
}

func TestTokenExpired(t *testing.T) {
	if !tokenExpired(expiredErr()) {
		t.Error("401 publish error should be expired")
	}
	if tokenExpired(errors.New("access_token_invalid")) {
		t.Error("plain errors carry no expiry signal")
	}
	wrapped := &domain.StorageError{Op: "x", Err: expiredErr()}
	if !tokenExpired(wrapped) {
		t.Error("expiry should be found through wrapping")
	}
}
