package tiktok

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// errCodeTokenInvalid is the provider error code for an expired or revoked token.
const errCodeTokenInvalid = "access_token_invalid"

// AuthExchangeError is returned when the authorization code exchange fails.
// Body is the raw provider response.
type AuthExchangeError struct {
	Status int
	Body   string
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("tiktok auth failed: %d - %s", e.Status, e.Body)
}

// AuthRefreshError is returned when the refresh_token grant fails.
type AuthRefreshError struct {
	Status int
	Body   string
}

func (e *AuthRefreshError) Error() string {
	return fmt.Sprintf("tiktok refresh failed: %d - %s", e.Status, e.Body)
}

// PublishError is returned when publish init fails.
type PublishError struct {
	Status int
	Body   string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("tiktok publish init failed: %d - %s", e.Status, e.Body)
}

// TokenExpired reports whether the failure means the access token is no longer
// valid. The HTTP status and the structured error code are checked first; a
// substring match on the raw body covers responses that are not JSON.
func (e *PublishError) TokenExpired() bool {
	return tokenExpired(e.Status, e.Body)
}

// APIError is returned by the other proxied endpoints (user info).
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tiktok %s: %d - %s", e.Op, e.Status, e.Body)
}

// TokenExpired reports whether the failure means the access token is no longer valid.
func (e *APIError) TokenExpired() bool {
	return tokenExpired(e.Status, e.Body)
}

func tokenExpired(status int, body string) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	if code, ok := errorCode(body); ok {
		return code == errCodeTokenInvalid
	}
	return strings.Contains(body, errCodeTokenInvalid)
}

// errorCode extracts error.code from a v2 API response body.
func errorCode(body string) (string, bool) {
	var parsed struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil || parsed.Error == nil {
		return "", false
	}
	return parsed.Error.Code, true
}
