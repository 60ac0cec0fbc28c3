package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/internal/repository"
	"github.com/ggsolution/autotok/pkg/tiktok"
)

// OAuthProvider is the slice of the TikTok client the connect flow needs.
type OAuthProvider interface {
	AuthorizeURL(state, verifier, redirectURI string) string
	ExchangeAuthorizationCodeWithRedirect(ctx context.Context, code, verifier, redirectURI string) (*tiktok.TokenPair, error)
	UserInfo(ctx context.Context, accessToken string) (*tiktok.UserInfo, error)
}

// ConnectStart is what the caller must remember between the authorize
// redirect and the callback.
type ConnectStart struct {
	State       string
	Verifier    string
	RedirectURI string
	URL         string
}

// AccountService connects TikTok accounts and manages the stored list.
type AccountService struct {
	provider OAuthProvider
	accounts repository.AccountRepository
	logger   *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(provider OAuthProvider, accounts repository.AccountRepository, logger *slog.Logger) *AccountService {
	return &AccountService{
		provider: provider,
		accounts: accounts,
		logger:   logger,
	}
}

// StartConnect creates a state and PKCE verifier and the authorize URL for them.
func (s *AccountService) StartConnect(redirectURI string) (*ConnectStart, error) {
	verifier, err := tiktok.GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}
	state := uuid.New().String()
	return &ConnectStart{
		State:       state,
		Verifier:    verifier,
		RedirectURI: redirectURI,
		URL:         s.provider.AuthorizeURL(state, verifier, redirectURI),
	}, nil
}

// CompleteConnect exchanges the code, looks up the user and stores the account.
// Reconnecting an existing account replaces its tokens.
func (s *AccountService) CompleteConnect(ctx context.Context, code, verifier, redirectURI string) (*domain.Account, error) {
	if code == "" {
		return nil, domain.NewInvalidInputError("code", "is required")
	}
	if verifier == "" {
		return nil, domain.NewInvalidInputError("code_verifier", "is required")
	}

	pair, err := s.provider.ExchangeAuthorizationCodeWithRedirect(ctx, code, verifier, redirectURI)
	if err != nil {
		return nil, err
	}

	user, err := s.provider.UserInfo(ctx, pair.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}

	id := user.OpenID
	if id == "" {
		id = pair.OpenID
	}
	account := domain.Account{
		ID:           domain.AccountID(id),
		Nickname:     user.DisplayName,
		Avatar:       user.AvatarURL,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	s.logger.Info("account connected", "account_id", account.ID, "nickname", account.Nickname)
	return &account, nil
}

// Exchange trades a code and verifier for a token pair without storing it.
func (s *AccountService) Exchange(ctx context.Context, code, verifier, redirectURI string) (*tiktok.TokenPair, error) {
	if code == "" {
		return nil, domain.NewInvalidInputError("code", "is required")
	}
	if verifier == "" {
		return nil, domain.NewInvalidInputError("codeVerifier", "is required")
	}
	return s.provider.ExchangeAuthorizationCodeWithRedirect(ctx, code, verifier, redirectURI)
}

// List returns all accounts with tokens blanked.
func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Account, len(accounts))
	for i, a := range accounts {
		out[i] = a.Redacted()
	}
	return out, nil
}

// Remove disconnects an account.
func (s *AccountService) Remove(ctx context.Context, id domain.AccountID) error {
	if err := s.accounts.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info("account removed", "account_id", id)
	return nil
}
