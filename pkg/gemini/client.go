package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ggsolution/autotok/internal/config"
	"github.com/ggsolution/autotok/internal/domain"
)

// apiKeyHeader carries the API key on every request.
const apiKeyHeader = "x-goog-api-key"

// ErrNoAPIKey is returned when no API key was configured or resolvable.
var ErrNoAPIKey = errors.New("gemini api key not configured")

// APIError is returned for non-2xx responses from the generate endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Body)
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Gemini API client.
func NewClient(cfg config.GeminiConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt to the model and returns the provider status and body
// unchanged. Callers decide what a non-2xx status means.
func (c *Client) Generate(ctx context.Context, prompt string) (int, []byte, error) {
	if !c.Configured() {
		return 0, nil, ErrNoAPIKey
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	// The key travels in a header so it never shows up in URL errors or logs.
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// GenerateText returns the first candidate's text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	status, body, err := c.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", &APIError{Status: status, Body: string(body)}
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// GenerateScript asks the model for a short text-overlay video script about
// topic and validates the result.
func (c *Client) GenerateScript(ctx context.Context, topic string) (*domain.VideoScript, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.NewInvalidInputError("topic", "is required")
	}

	text, err := c.GenerateText(ctx, buildScriptPrompt(topic))
	if err != nil {
		return nil, fmt.Errorf("generate script: %w", err)
	}

	script, err := ParseScript(text)
	if err != nil {
		return nil, err
	}
	if script.Topic == "" {
		script.Topic = topic
	}
	return script, nil
}

// ParseScript decodes model output into a VideoScript. Markdown code fences
// around the JSON are removed first.
func ParseScript(text string) (*domain.VideoScript, error) {
	clean := stripCodeFences(text)

	var script domain.VideoScript
	if err := json.Unmarshal([]byte(clean), &script); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", domain.ErrInvalidScript, err)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func buildScriptPrompt(topic string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a script for a viral 15-second TikTok video about: %q.\n", topic)
	sb.WriteString("The video will be generated programmatically using text overlays on solid/gradient backgrounds.\n\n")
	sb.WriteString("Return ONLY a valid JSON object with the following structure:\n")
	fmt.Fprintf(&sb, `{
  "topic": %q,
  "scenes": [
    {
      "text": "Short punchy text for this scene",
      "backgroundColor": "#hexcode or gradient css",
      "textColor": "#hexcode",
      "duration": 3,
      "animation": "pop"
    }
  ]
}
`, topic)
	sb.WriteString("\nRules:\n")
	sb.WriteString("- Total duration should be around 15 seconds.\n")
	sb.WriteString("- Texts must be short (max 10 words per scene).\n")
	sb.WriteString("- Use vibrant, high-contrast colors (e.g., #FF0050, #00F2EA, Black, White).\n")
	sb.WriteString("- Animations can be: \"fade\", \"slide-up\", \"pop\".\n")
	sb.WriteString("- Provide 4-6 scenes.\n")
	sb.WriteString("- Return RAW JSON. No markdown formatting.\n")
	return sb.String()
}
