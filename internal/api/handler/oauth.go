package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/ggsolution/autotok/internal/config"
	"github.com/ggsolution/autotok/internal/service"
)

const (
	oauthSessionName  = "autotok_oauth"
	oauthCallbackPath = "/api/tiktok/oauth/callback"
	dashboardPath     = "/dashboard"

	sessionKeyState    = "state"
	sessionKeyVerifier = "verifier"
	sessionKeyRedirect = "redirect_uri"
)

// NewSessionStore creates the cookie store holding the connect flow state.
// An empty secret gets a random key, so pending flows do not survive a restart.
func NewSessionStore(cfg config.SessionConfig, secure bool) *sessions.CookieStore {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/api/tiktok/oauth",
		MaxAge:   int(cfg.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		// Lax so the cookie comes back on the top-level redirect from TikTok.
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// OAuthHandler runs the server-side TikTok connect flow.
type OAuthHandler struct {
	accounts    *service.AccountService
	store       sessions.Store
	redirectURI string
	logger      *slog.Logger
}

// NewOAuthHandler creates a new OAuth handler. An empty redirectURI derives the
// callback URL from each request.
func NewOAuthHandler(accounts *service.AccountService, store sessions.Store, redirectURI string, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		accounts:    accounts,
		store:       store,
		redirectURI: redirectURI,
		logger:      logger,
	}
}

// Start handles GET /api/tiktok/oauth/start.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	redirectURI := h.redirectURI
	if redirectURI == "" {
		redirectURI = callbackURLFromRequest(r)
	}

	start, err := h.accounts.StartConnect(redirectURI)
	if err != nil {
		h.logger.Error("start connect failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	// A decode failure on a stale cookie still yields a fresh session.
	session, _ := h.store.Get(r, oauthSessionName)
	session.Values[sessionKeyState] = start.State
	session.Values[sessionKeyVerifier] = start.Verifier
	session.Values[sessionKeyRedirect] = start.RedirectURI
	if err := session.Save(r, w); err != nil {
		h.logger.Error("save oauth session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	http.Redirect(w, r, start.URL, http.StatusFound)
}

// Callback handles GET /api/tiktok/oauth/callback.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		h.logger.Warn("tiktok authorization denied", "error", providerErr, "description", q.Get("error_description"))
		h.redirectDashboard(w, r, "error", providerErr)
		return
	}

	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "missing code or state")
		return
	}

	session, err := h.store.Get(r, oauthSessionName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or expired state")
		return
	}
	wantState, _ := session.Values[sessionKeyState].(string)
	verifier, _ := session.Values[sessionKeyVerifier].(string)
	redirectURI, _ := session.Values[sessionKeyRedirect].(string)
	if wantState == "" || wantState != state {
		writeError(w, http.StatusBadRequest, "invalid or expired state")
		return
	}

	// The state is single use.
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("clear oauth session failed", "error", err)
	}

	account, err := h.accounts.CompleteConnect(r.Context(), code, verifier, redirectURI)
	if err != nil {
		h.logger.Error("complete connect failed", "error", err)
		h.redirectDashboard(w, r, "error", "connect_failed")
		return
	}

	h.redirectDashboard(w, r, "connected", account.ID.String())
}

func (h *OAuthHandler) redirectDashboard(w http.ResponseWriter, r *http.Request, key, value string) {
	q := url.Values{}
	q.Set(key, value)
	http.Redirect(w, r, dashboardPath+"?"+q.Encode(), http.StatusFound)
}

func callbackURLFromRequest(r *http.Request) string {
	// Respect reverse proxies
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		if r.TLS != nil {
			proto = "https"
		} else {
			proto = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", proto, host, oauthCallbackPath)
}
