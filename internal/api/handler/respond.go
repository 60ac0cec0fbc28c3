package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/pkg/gemini"
	"github.com/ggsolution/autotok/pkg/tiktok"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Code    string          `json:"code,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeRaw passes a provider response through unchanged.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeServiceError maps a service error to a status, code and message.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, resp := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Warn("request rejected", "error", err)
	}
	writeJSON(w, status, resp)
}

func errorResponse(err error) (int, ErrorResponse) {
	var (
		invalid     *domain.InvalidInputError
		noAccount   *domain.NoAccountError
		expired     *domain.SessionExpiredError
		fetchErr    *domain.RemoteFetchError
		uploadErr   *domain.UploadError
		storageErr  *domain.StorageError
		publishErr  *tiktok.PublishError
		exchangeErr *tiktok.AuthExchangeError
		refreshErr  *tiktok.AuthRefreshError
		apiErr      *tiktok.APIError
		geminiErr   *gemini.APIError
	)

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, ErrorResponse{Error: invalid.Error(), Code: "invalid_input"}
	case errors.As(err, &noAccount):
		return http.StatusBadRequest, ErrorResponse{Error: noAccount.Error(), Code: "no_account"}
	case errors.As(err, &expired):
		return http.StatusUnauthorized, ErrorResponse{Error: "TikTok session expired, reconnect the account", Code: "session_expired"}
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "account_not_found"}
	case errors.Is(err, domain.ErrVideoNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "video_not_found"}
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, ErrorResponse{Error: fetchErr.Error(), Code: "remote_fetch_failed"}
	case errors.As(err, &uploadErr):
		return uploadStatus(uploadErr)
	case errors.As(err, &storageErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "failed to store video", Code: "storage_error"}
	case errors.As(err, &publishErr):
		return providerStatus(publishErr.Status), ErrorResponse{Error: "TikTok publish failed", Code: "publish_failed", Details: rawJSON(publishErr.Body)}
	case errors.As(err, &exchangeErr):
		return http.StatusBadGateway, ErrorResponse{Error: "TikTok authorization failed", Code: "auth_exchange_failed", Details: rawJSON(exchangeErr.Body)}
	case errors.As(err, &refreshErr):
		return http.StatusBadGateway, ErrorResponse{Error: "TikTok token refresh failed", Code: "auth_refresh_failed", Details: rawJSON(refreshErr.Body)}
	case errors.As(err, &apiErr):
		return providerStatus(apiErr.Status), ErrorResponse{Error: apiErr.Error(), Code: "provider_error", Details: rawJSON(apiErr.Body)}
	case errors.Is(err, gemini.ErrNoAPIKey):
		return http.StatusInternalServerError, ErrorResponse{Error: "Server Error: Gemini API Key not found.", Code: "gemini_not_configured"}
	case errors.As(err, &geminiErr):
		return providerStatus(geminiErr.Status), ErrorResponse{Error: "Gemini request failed", Code: "gemini_failed", Details: rawJSON(geminiErr.Body)}
	case errors.Is(err, domain.ErrInvalidScript):
		return http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "invalid_script"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal_error"}
	}
}

// uploadStatus classifies a failed read of the request body.
func uploadStatus(err *domain.UploadError) (int, ErrorResponse) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: "upload exceeds the size limit", Code: "payload_too_large"}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return http.StatusRequestTimeout, ErrorResponse{Error: "upload timed out", Code: "request_timeout"}
	}
	return http.StatusBadRequest, ErrorResponse{Error: "upload was interrupted", Code: "upload_failed"}
}

// streamBody lifts the server deadlines for a streamed upload, leaving the
// body bounded by the size limit and the request context.
func streamBody(w http.ResponseWriter) {
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})
}

// providerStatus keeps provider 4xx/5xx codes and maps anything else to 502.
func providerStatus(status int) int {
	if status >= 400 && status <= 599 {
		return status
	}
	return http.StatusBadGateway
}

// rawJSON returns body as embeddable JSON, or a JSON string when it is not JSON.
func rawJSON(body string) json.RawMessage {
	if json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(body)
	return quoted
}
