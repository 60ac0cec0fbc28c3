package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ggsolution/autotok/internal/config"
)

const (
	tokenPath       = "/v2/oauth/token/"
	userInfoPath    = "/v2/user/info/"
	publishInitPath = "/v2/post/publish/video/init/"

	userInfoFields = "open_id,union_id,avatar_url,display_name"

	sourcePullFromURL = "PULL_FROM_URL"
)

// Client talks to the TikTok open API: OAuth token grants, user info and
// direct-post publish init. It holds no tokens of its own.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	authURL      string
	clientKey    string
	clientSecret string
	redirectURI  string
	scopes       []string
	postTitle    string
	privacyLevel string
}

// NewClient creates a new TikTok API client.
func NewClient(cfg config.TikTokConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://open.tiktokapis.com"
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = "https://www.tiktok.com/v2/auth/authorize/"
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		authURL:      authURL,
		clientKey:    cfg.ClientKey,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		scopes:       cfg.Scopes,
		postTitle:    cfg.PostTitle,
		privacyLevel: cfg.PrivacyLevel,
	}
}

// TokenPair is the result of a successful token grant.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	OpenID           string `json:"open_id"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`
}

// ExchangeAuthorizationCode trades an authorization code and its PKCE verifier
// for a token pair, using the configured redirect URI.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code, verifier string) (*TokenPair, error) {
	return c.ExchangeAuthorizationCodeWithRedirect(ctx, code, verifier, c.redirectURI)
}

// ExchangeAuthorizationCodeWithRedirect is ExchangeAuthorizationCode with an
// explicit redirect URI, which must match the one sent to the authorize endpoint.
// An empty redirectURI falls back to the configured one.
func (c *Client) ExchangeAuthorizationCodeWithRedirect(ctx context.Context, code, verifier, redirectURI string) (*TokenPair, error) {
	if redirectURI == "" {
		redirectURI = c.redirectURI
	}
	form := url.Values{}
	form.Set("client_key", c.clientKey)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", verifier)

	status, body, err := c.postForm(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	pair, ok := parseTokenPair(status, body)
	if !ok {
		return nil, &AuthExchangeError{Status: status, Body: string(body)}
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	form := url.Values{}
	form.Set("client_key", c.clientKey)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	status, body, err := c.postForm(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	pair, ok := parseTokenPair(status, body)
	if !ok {
		return nil, &AuthRefreshError{Status: status, Body: string(body)}
	}
	return pair, nil
}

// parseTokenPair accepts only 2xx responses that carry an access token.
func parseTokenPair(status int, body []byte) (*TokenPair, bool) {
	if status < 200 || status >= 300 {
		return nil, false
	}
	var pair TokenPair
	if err := json.Unmarshal(body, &pair); err != nil || pair.AccessToken == "" {
		return nil, false
	}
	return &pair, true
}

func (c *Client) postForm(ctx context.Context, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")
	return c.do(req)
}

type postInfo struct {
	Title          string `json:"title"`
	PrivacyLevel   string `json:"privacy_level"`
	DisableDuet    bool   `json:"disable_duet"`
	DisableComment bool   `json:"disable_comment"`
	DisableStitch  bool   `json:"disable_stitch"`
}

type sourceInfo struct {
	Source   string `json:"source"`
	VideoURL string `json:"video_url"`
}

type publishInitRequest struct {
	PostInfo   postInfo   `json:"post_info"`
	SourceInfo sourceInfo `json:"source_info"`
}

// InitiatePublish asks TikTok to pull the video at videoURL and post it to the
// account owning accessToken. The provider response is returned verbatim.
func (c *Client) InitiatePublish(ctx context.Context, accessToken, videoURL string) (json.RawMessage, error) {
	payload := publishInitRequest{
		PostInfo: postInfo{
			Title:        c.postTitle,
			PrivacyLevel: c.privacyLevel,
		},
		SourceInfo: sourceInfo{
			Source:   sourcePullFromURL,
			VideoURL: videoURL,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+publishInitPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	status, body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("publish init: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, &PublishError{Status: status, Body: string(body)}
	}
	return json.RawMessage(body), nil
}

// UserInfo is the subset of the user info response the dashboard uses.
type UserInfo struct {
	OpenID      string `json:"open_id"`
	UnionID     string `json:"union_id"`
	AvatarURL   string `json:"avatar_url"`
	DisplayName string `json:"display_name"`
}

// UserInfoRaw fetches the user info for accessToken and returns the provider
// status and body untouched, for passthrough proxies.
func (c *Client) UserInfoRaw(ctx context.Context, accessToken string) (int, []byte, error) {
	u := c.baseURL + userInfoPath + "?fields=" + userInfoFields
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	status, body, err := c.do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("user info: %w", err)
	}
	return status, body, nil
}

// UserInfo fetches and decodes the user info for accessToken.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	status, body, err := c.UserInfoRaw(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{Op: "user info", Status: status, Body: string(body)}
	}

	var parsed struct {
		Data struct {
			User UserInfo `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse user info: %w", err)
	}
	if parsed.Data.User.OpenID == "" {
		return nil, &APIError{Op: "user info", Status: status, Body: string(body)}
	}
	return &parsed.Data.User, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
