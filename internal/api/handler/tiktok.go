package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ggsolution/autotok/internal/service"
	"github.com/ggsolution/autotok/pkg/tiktok"
)

// TikTokAPI is the slice of the TikTok client the proxy endpoints use.
type TikTokAPI interface {
	InitiatePublish(ctx context.Context, accessToken, videoURL string) (json.RawMessage, error)
	UserInfoRaw(ctx context.Context, accessToken string) (int, []byte, error)
}

// TikTokHandler proxies the browser-driven TikTok calls.
type TikTokHandler struct {
	api      TikTokAPI
	accounts *service.AccountService
	ingest   *service.IngestService
	logger   *slog.Logger
}

// NewTikTokHandler creates a new TikTok proxy handler.
func NewTikTokHandler(api TikTokAPI, accounts *service.AccountService, ingest *service.IngestService, logger *slog.Logger) *TikTokHandler {
	return &TikTokHandler{
		api:      api,
		accounts: accounts,
		ingest:   ingest,
		logger:   logger,
	}
}

// InitRequest is the JSON body of POST /api/tiktok/init.
type InitRequest struct {
	AccessToken string `json:"accessToken"`
	VideoURL    string `json:"videoUrl"`
}

// Init handles POST /api/tiktok/init. The provider status and body are passed
// through unchanged.
func (h *TikTokHandler) Init(w http.ResponseWriter, r *http.Request) {
	var req InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "No accessToken provided.")
		return
	}
	if req.VideoURL == "" {
		writeError(w, http.StatusBadRequest, "No videoUrl provided.")
		return
	}

	videoURL := service.ResolvePublicURL(h.ingest.Host(r.Host), req.VideoURL)
	h.logger.Info("initiating tiktok publish", "video_url", videoURL)

	payload, err := h.api.InitiatePublish(r.Context(), req.AccessToken, videoURL)
	if err != nil {
		var pubErr *tiktok.PublishError
		if errors.As(err, &pubErr) {
			h.logger.Warn("tiktok publish init rejected", "status", pubErr.Status)
			writeRaw(w, pubErr.Status, []byte(pubErr.Body))
			return
		}
		h.logger.Error("tiktok publish init failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

// Info handles GET /api/tiktok/info.
func (h *TikTokHandler) Info(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	status, body, err := h.api.UserInfoRaw(r.Context(), token)
	if err != nil {
		h.logger.Error("tiktok user info failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeRaw(w, status, body)
}

// TokenRequest is the JSON body of POST /api/tiktok/token.
type TokenRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
	RedirectURI  string `json:"redirectUri,omitempty"`
}

// Token handles POST /api/tiktok/token for clients that keep their own verifier.
func (h *TikTokHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	pair, err := h.accounts.Exchange(r.Context(), req.Code, req.CodeVerifier, req.RedirectURI)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
