package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/internal/repository"
	"github.com/ggsolution/autotok/internal/service"
)

// videoFormField is the multipart field carrying the video file.
const videoFormField = "video"

// UploadHandler handles video uploads and the stored video listing.
type UploadHandler struct {
	ingest        *service.IngestService
	store         repository.VideoStore
	maxUploadSize int64
	logger        *slog.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(ingest *service.IngestService, store repository.VideoStore, maxUploadSize int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		ingest:        ingest,
		store:         store,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// UploadResponse is returned after a video is stored.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// UploadURLRequest is the JSON body of POST /api/upload-url.
type UploadURLRequest struct {
	VideoURL string `json:"videoUrl"`
}

// Upload handles POST /api/upload.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	streamBody(w)
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	part, err := findFilePart(r, videoFormField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer part.Close()

	video, err := h.ingest.Ingest(r.Context(), service.IngestInput{File: part})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:  true,
		Filename: video.Filename,
		URL:      h.ingest.PublicURL(r.Host, video),
	})
}

// UploadURL handles POST /api/upload-url.
func (h *UploadHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req UploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.VideoURL) == "" {
		writeError(w, http.StatusBadRequest, "No videoUrl provided.")
		return
	}

	h.logger.Info("downloading video", "url", req.VideoURL)
	video, err := h.ingest.Ingest(r.Context(), service.IngestInput{URL: req.VideoURL})
	if err != nil {
		var invalid *domain.InvalidInputError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, invalid.Error())
			return
		}
		h.logger.Error("upload from url failed", "url", req.VideoURL, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:  true,
		Filename: video.Filename,
		URL:      h.ingest.PublicURL(r.Host, video),
	})
}

// VideoResponse describes one stored video.
type VideoResponse struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
	Created  string `json:"created_at"`
}

// List handles GET /api/videos.
func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
	videos, err := h.store.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		resp = append(resp, VideoResponse{
			Filename: v.Filename,
			Size:     v.Size,
			URL:      h.ingest.PublicURL(r.Host, v),
			Created:  v.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"videos": resp,
		"total":  len(resp),
	})
}

// findFilePart streams the multipart body up to the named file part. Other
// parts are skipped. The caller closes the returned part.
func findFilePart(r *http.Request, field string) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, http.ErrMissingFile
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == field && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}
