package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/pkg/gemini"
)

// TextGenerator is the slice of the Gemini client the handler uses.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (int, []byte, error)
	GenerateScript(ctx context.Context, topic string) (*domain.VideoScript, error)
}

// GeminiHandler proxies text generation.
type GeminiHandler struct {
	client TextGenerator
	logger *slog.Logger
}

// NewGeminiHandler creates a new Gemini handler.
func NewGeminiHandler(client TextGenerator, logger *slog.Logger) *GeminiHandler {
	return &GeminiHandler{
		client: client,
		logger: logger,
	}
}

// GenerateRequest is the JSON body of POST /api/gemini/generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// Generate handles POST /api/gemini/generate. The provider status and body
// are passed through.
func (h *GeminiHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	status, body, err := h.client.Generate(r.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, gemini.ErrNoAPIKey) {
			h.logger.Error("gemini api key not configured")
			writeError(w, http.StatusInternalServerError, "Server Error: Gemini API Key not found.")
			return
		}
		h.logger.Error("gemini request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Gemini request failed")
		return
	}
	writeRaw(w, status, body)
}

// ScriptRequest is the JSON body of POST /api/gemini/script.
type ScriptRequest struct {
	Topic string `json:"topic"`
}

// Script handles POST /api/gemini/script and returns a validated video script.
func (h *GeminiHandler) Script(w http.ResponseWriter, r *http.Request) {
	var req ScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	script, err := h.client.GenerateScript(r.Context(), strings.TrimSpace(req.Topic))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, script)
}
