package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ggsolution/autotok/internal/config"
	"github.com/ggsolution/autotok/internal/domain"
)

func newTestClient(baseURL, key string) *Client {
	return NewClient(config.GeminiConfig{
		APIKey:  key,
		BaseURL: baseURL,
		Model:   "gemini-1.5-flash",
		Timeout: 2 * time.Second,
	})
}

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(b)
}

func TestGenerate_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-1.5-flash:generateContent" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "k1" {
			t.Fatalf("unexpected key header: %q", got)
		}
		if r.URL.RawQuery != "" {
			t.Fatalf("key must not travel in the query: %q", r.URL.RawQuery)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Fatalf("unexpected request: %+v", req)
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"passthrough":true}`))
	}))
	defer srv.Close()

	status, body, err := newTestClient(srv.URL, "k1").Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusTeapot || string(body) != `{"passthrough":true}` {
		t.Errorf("Generate() = %d %s, want provider status and body", status, body)
	}
}

func TestGenerate_NoKey(t *testing.T) {
	_, _, err := newTestClient("http://unused", "").Generate(context.Background(), "x")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestGenerateScript(t *testing.T) {
	scriptJSON := "```json\n" + `{"topic":"coffee","scenes":[
		{"text":"Wake up","backgroundColor":"#000","textColor":"#fff","duration":3,"animation":"pop"},
		{"text":"Brew","backgroundColor":"#FF0050","textColor":"#fff","duration":4,"animation":"fade"},
		{"text":"Sip","backgroundColor":"#00F2EA","textColor":"#000","duration":4,"animation":"slide-up"},
		{"text":"Repeat","backgroundColor":"#fff","textColor":"#000","duration":4,"animation":"pop"}
	]}` + "\n```"

	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Contents[0].Parts[0].Text
		_, _ = w.Write([]byte(candidateBody(scriptJSON)))
	}))
	defer srv.Close()

	script, err := newTestClient(srv.URL, "k").GenerateScript(context.Background(), "coffee")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(script.Scenes) != 4 {
		t.Errorf("scenes = %d, want 4", len(script.Scenes))
	}
	if script.TotalDuration() != 15 {
		t.Errorf("TotalDuration() = %v, want 15", script.TotalDuration())
	}
	if !strings.Contains(gotPrompt, `"coffee"`) || !strings.Contains(gotPrompt, "15-second") {
		t.Errorf("prompt missing topic or duration: %s", gotPrompt)
	}
}

func TestGenerateScript_EmptyTopic(t *testing.T) {
	_, err := newTestClient("http://unused", "k").GenerateScript(context.Background(), "  ")
	var inv *domain.InvalidInputError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestGenerateText_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "bad").GenerateText(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403 APIError, got %v", err)
	}
}

func TestParseScript(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "raw json",
			input: `{"topic":"t","scenes":[{"text":"a","duration":2,"animation":"fade"}]}`,
		},
		{
			name:  "fenced",
			input: "```json\n{\"topic\":\"t\",\"scenes\":[{\"text\":\"a\",\"duration\":2,\"animation\":\"pop\"}]}\n```",
		},
		{
			name:    "not json",
			input:   "Sure! Here is your script.",
			wantErr: true,
		},
		{
			name:    "unknown animation",
			input:   `{"topic":"t","scenes":[{"text":"a","duration":2,"animation":"spin"}]}`,
			wantErr: true,
		},
		{
			name:    "zero duration",
			input:   `{"topic":"t","scenes":[{"text":"a","duration":0,"animation":"pop"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript(tt.input)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidScript) {
					t.Errorf("expected ErrInvalidScript, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
