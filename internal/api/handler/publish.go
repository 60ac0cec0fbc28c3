package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/internal/service"
)

const accountFormField = "accountId"

// PublishHandler posts a video to a connected account.
type PublishHandler struct {
	publish       *service.PublishService
	maxUploadSize int64
	logger        *slog.Logger
}

// NewPublishHandler creates a new publish handler.
func NewPublishHandler(publish *service.PublishService, maxUploadSize int64, logger *slog.Logger) *PublishHandler {
	return &PublishHandler{
		publish:       publish,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// PublishJSONRequest is the JSON form of POST /api/publish.
type PublishJSONRequest struct {
	AccountID string `json:"accountId"`
	VideoURL  string `json:"videoUrl"`
}

// PublishResponse is returned by POST /api/publish.
type PublishResponse struct {
	Success   bool                `json:"success"`
	AttemptID string              `json:"attemptId"`
	State     domain.PublishState `json:"state"`
	Refreshed bool                `json:"refreshed"`
	URL       string              `json:"url,omitempty"`
	Filename  string              `json:"filename,omitempty"`
	Data      json.RawMessage     `json:"data,omitempty"`
}

// Publish handles POST /api/publish. It accepts a multipart form with a video
// file and accountId, or a JSON body with accountId and videoUrl.
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := h.parseRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()
	req.Host = r.Host

	res, err := h.publish.Publish(r.Context(), req)
	if err != nil {
		status, resp := errorResponse(err)
		h.logger.Warn("publish failed",
			"attempt_id", res.AttemptID,
			"account_id", req.AccountID,
			"state", res.State,
			"status", status,
			"error", err,
		)
		writeJSON(w, status, resp)
		return
	}

	out := PublishResponse{
		Success:   true,
		AttemptID: res.AttemptID,
		State:     res.State,
		Refreshed: res.Refreshed,
		URL:       res.URL,
		Data:      res.Payload,
	}
	if res.Video != nil {
		out.Filename = res.Video.Filename
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PublishHandler) parseRequest(w http.ResponseWriter, r *http.Request) (service.PublishRequest, func(), error) {
	noop := func() {}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType != "multipart/form-data" {
		var body PublishJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return service.PublishRequest{}, noop, domain.NewInvalidInputError("body", "invalid JSON body")
		}
		return service.PublishRequest{
			AccountID: domain.AccountID(strings.TrimSpace(body.AccountID)),
			VideoURL:  body.VideoURL,
		}, noop, nil
	}

	streamBody(w)
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return service.PublishRequest{}, noop, domain.NewInvalidInputError("body", "invalid multipart body")
	}

	// The account field must come before the file so the file can be streamed.
	var req service.PublishRequest
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return service.PublishRequest{}, noop, domain.NewInvalidInputError("body", "invalid multipart body")
		}
		switch part.FormName() {
		case accountFormField:
			v, _ := io.ReadAll(io.LimitReader(part, 256))
			req.AccountID = domain.AccountID(strings.TrimSpace(string(v)))
			part.Close()
		case videoFormField:
			if part.FileName() == "" {
				part.Close()
				continue
			}
			req.File = part
			return req, func() { part.Close() }, nil
		default:
			part.Close()
		}
	}
	return req, noop, nil
}
