package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ggsolution/autotok/internal/config"
	"github.com/ggsolution/autotok/pkg/tiktok"
)

func newOAuthHandler(env *testEnv, redirectURI string) *OAuthHandler {
	store := NewSessionStore(config.SessionConfig{Secret: "test-secret-test-secret-test-sec", MaxAge: 10 * time.Minute}, false)
	return NewOAuthHandler(env.account, store, redirectURI, testLogger())
}

// startFlow runs Start and returns the state from the authorize URL and the
// session cookie.
func startFlow(t *testing.T, h *OAuthHandler) (string, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/tiktok/oauth/start", nil)
	req.Host = "localhost:3001"
	w := httptest.NewRecorder()
	h.Start(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatalf("no state in %s", loc)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != oauthSessionName {
		t.Fatalf("cookies = %v", cookies)
	}
	return state, cookies[0]
}

func TestOAuthHandler_StartAndCallback(t *testing.T) {
	env := newTestEnv(t)
	env.tiktok.pair = &tiktok.TokenPair{AccessToken: "at", RefreshToken: "rt", OpenID: "oid"}
	env.tiktok.user = &tiktok.UserInfo{OpenID: "oid", DisplayName: "Creator"}
	h := newOAuthHandler(env, "")

	state, cookie := startFlow(t, h)
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tiktok/oauth/callback?code=c&state="+state, nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.Callback(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("callback status = %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard?connected=oid" {
		t.Errorf("redirect = %q", loc)
	}

	acc, err := env.accounts.Get(t.Context(), "oid")
	if err != nil {
		t.Fatalf("account not stored: %v", err)
	}
	if acc.Nickname != "Creator" || acc.AccessToken != "at" {
		t.Errorf("account = %+v", acc)
	}

	// The session is cleared so the state cannot be replayed.
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == oauthSessionName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie should be cleared after callback")
	}
}

func TestOAuthHandler_Callback_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		withCookie bool
		wantStatus int
		wantLoc    string
	}{
		{"provider error", "error=access_denied&error_description=user+cancelled", false, http.StatusFound, "/dashboard?error=access_denied"},
		{"missing code", "state=s", true, http.StatusBadRequest, ""},
		{"missing state", "code=c", true, http.StatusBadRequest, ""},
		{"state mismatch", "code=c&state=other", true, http.StatusBadRequest, ""},
		{"no session", "code=c&state=s", false, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			h := newOAuthHandler(env, "")
			_, cookie := startFlow(t, h)

			req := httptest.NewRequest(http.MethodGet, "/api/tiktok/oauth/callback?"+tt.query, nil)
			if tt.withCookie {
				req.AddCookie(cookie)
			}
			w := httptest.NewRecorder()
			h.Callback(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantLoc != "" && w.Header().Get("Location") != tt.wantLoc {
				t.Errorf("redirect = %q, want %q", w.Header().Get("Location"), tt.wantLoc)
			}
			list, _ := env.accounts.List(t.Context())
			if len(list) != 0 {
				t.Error("no account should be stored")
			}
		})
	}
}

func TestOAuthHandler_Callback_ExchangeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.tiktok.exchangeErr = &tiktok.AuthExchangeError{Status: 400, Body: "bad"}
	h := newOAuthHandler(env, "")
	state, cookie := startFlow(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/tiktok/oauth/callback?code=c&state="+state, nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.Callback(w, req)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard?error=connect_failed" {
		t.Errorf("got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestCallbackURLFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		headers map[string]string
		want    string
	}{
		{"plain", "localhost:3001", nil, "http://localhost:3001/api/tiktok/oauth/callback"},
		{"behind proxy", "internal:3001", map[string]string{"X-Forwarded-Proto": "https", "X-Forwarded-Host": "autotok.example.com"}, "https://autotok.example.com/api/tiktok/oauth/callback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tiktok/oauth/start", nil)
			req.Host = tt.host
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := callbackURLFromRequest(req); got != tt.want {
				t.Errorf("callbackURLFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOAuthHandler_Start_ConfiguredRedirect(t *testing.T) {
	env := newTestEnv(t)
	h := newOAuthHandler(env, "https://autotok.example.com/api/tiktok/oauth/callback")

	req := httptest.NewRequest(http.MethodGet, "/api/tiktok/oauth/start", nil)
	w := httptest.NewRecorder()
	h.Start(w, req)

	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "https://auth.example.com/authorize?") {
		t.Errorf("redirect = %q", loc)
	}
}
