package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/internal/repository"
	"github.com/ggsolution/autotok/pkg/tiktok"
)

// Publisher is the slice of the TikTok client the publish flow needs.
type Publisher interface {
	InitiatePublish(ctx context.Context, accessToken, videoURL string) (json.RawMessage, error)
	Refresh(ctx context.Context, refreshToken string) (*tiktok.TokenPair, error)
}

// tokenExpirer is implemented by provider errors that can tell an expired
// access token apart from other failures.
type tokenExpirer interface {
	TokenExpired() bool
}

// errNoRefreshToken is wrapped into SessionExpiredError when the account has
// nothing to refresh with.
var errNoRefreshToken = errors.New("account has no refresh token")

// PublishRequest asks for one video to be posted to one account. Exactly one
// of File or VideoURL is used; VideoURL may be a remote URL or the public path
// of an already stored video.
type PublishRequest struct {
	AccountID domain.AccountID
	File      io.Reader
	VideoURL  string
	// Host is the request host used to build the public video URL.
	Host string
}

// PublishResult reports how a publish attempt ended.
type PublishResult struct {
	AttemptID string
	State     domain.PublishState
	Refreshed bool
	Video     *domain.StoredVideo
	URL       string
	Payload   json.RawMessage
}

// PublishService drives a video from submission to TikTok publish init,
// refreshing the access token once when it has expired.
type PublishService struct {
	ingest    *IngestService
	accounts  repository.AccountRepository
	publisher Publisher
	logger    *slog.Logger
}

// NewPublishService creates a new publish service.
func NewPublishService(ingest *IngestService, accounts repository.AccountRepository, publisher Publisher, logger *slog.Logger) *PublishService {
	return &PublishService{
		ingest:    ingest,
		accounts:  accounts,
		publisher: publisher,
		logger:    logger,
	}
}

// Publish runs the flow. The returned result is never nil and carries the
// final state even when err is set.
func (s *PublishService) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	res := &PublishResult{
		AttemptID: uuid.New().String(),
		State:     domain.PublishIdle,
	}
	logger := s.logger.With("attempt_id", res.AttemptID, "account_id", req.AccountID)

	account, err := s.account(ctx, req.AccountID)
	if err != nil {
		return s.fail(logger, res, err)
	}

	s.transition(logger, res, domain.PublishResolving)
	video, err := s.resolve(ctx, req)
	if err != nil {
		return s.fail(logger, res, err)
	}
	res.Video = video
	res.URL = s.ingest.PublicURL(req.Host, video)

	s.transition(logger, res, domain.PublishPublishing)
	payload, err := s.publisher.InitiatePublish(ctx, account.AccessToken, res.URL)
	if err == nil {
		res.Payload = payload
		return s.done(logger, res)
	}
	if !tokenExpired(err) {
		return s.fail(logger, res, err)
	}

	s.transition(logger, res, domain.PublishRefreshing)
	refreshed, err := s.refresh(ctx, account)
	if err != nil {
		return s.fail(logger, res, err)
	}
	res.Refreshed = true

	s.transition(logger, res, domain.PublishRetrying)
	payload, err = s.publisher.InitiatePublish(ctx, refreshed.AccessToken, res.URL)
	if err != nil {
		return s.fail(logger, res, err)
	}
	res.Payload = payload
	return s.done(logger, res)
}

func (s *PublishService) account(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	if id == "" {
		return nil, &domain.NoAccountError{}
	}
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, &domain.NoAccountError{AccountID: id}
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !account.Connected() {
		return nil, &domain.NoAccountError{AccountID: id}
	}
	return account, nil
}

func (s *PublishService) resolve(ctx context.Context, req PublishRequest) (*domain.StoredVideo, error) {
	if req.File == nil && strings.HasPrefix(req.VideoURL, domain.UploadPathPrefix) {
		return s.ingest.Lookup(ctx, req.VideoURL)
	}
	return s.ingest.Ingest(ctx, IngestInput{File: req.File, URL: req.VideoURL})
}

// refresh exchanges the refresh token and persists the new pair. On failure
// the stored account is left as it was.
func (s *PublishService) refresh(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if account.RefreshToken == "" {
		return nil, &domain.SessionExpiredError{AccountID: account.ID, Err: errNoRefreshToken}
	}
	pair, err := s.publisher.Refresh(ctx, account.RefreshToken)
	if err != nil {
		return nil, &domain.SessionExpiredError{AccountID: account.ID, Err: err}
	}

	updated := account.WithTokens(pair.AccessToken, pair.RefreshToken)
	if err := s.accounts.Upsert(ctx, updated); err != nil {
		return nil, fmt.Errorf("save refreshed tokens: %w", err)
	}
	return &updated, nil
}

func (s *PublishService) transition(logger *slog.Logger, res *PublishResult, state domain.PublishState) {
	logger.Debug("publish state", "from", res.State, "to", state)
	res.State = state
}

func (s *PublishService) done(logger *slog.Logger, res *PublishResult) (*PublishResult, error) {
	s.transition(logger, res, domain.PublishDone)
	logger.Info("video published", "url", res.URL, "refreshed", res.Refreshed)
	return res, nil
}

func (s *PublishService) fail(logger *slog.Logger, res *PublishResult, err error) (*PublishResult, error) {
	from := res.State
	s.transition(logger, res, domain.PublishFailed)
	logger.Warn("publish failed", "at", from, "error", err)
	return res, err
}

func tokenExpired(err error) bool {
	var te tokenExpirer
	return errors.As(err, &te) && te.TokenExpired()
}
