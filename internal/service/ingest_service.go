package service

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/internal/repository"
)

// IngestInput is a video submission: an uploaded stream or a remote URL.
type IngestInput struct {
	File io.Reader
	URL  string
}

// IngestService normalizes uploads and remote URLs into stored videos and
// builds the public URLs they are served at.
type IngestService struct {
	store      repository.VideoStore
	publicHost string
	logger     *slog.Logger
}

// NewIngestService creates a new ingest service. publicHost, when set,
// replaces the request host in generated URLs.
func NewIngestService(store repository.VideoStore, publicHost string, logger *slog.Logger) *IngestService {
	return &IngestService{
		store:      store,
		publicHost: publicHost,
		logger:     logger,
	}
}

// Ingest stores the submitted video. A file takes precedence over a URL.
func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (*domain.StoredVideo, error) {
	if in.File != nil {
		return s.store.StoreUpload(ctx, in.File)
	}

	raw := strings.TrimSpace(in.URL)
	if raw == "" {
		return nil, &domain.InvalidInputError{Field: "videoUrl", Reason: "no video file or URL provided", Err: domain.ErrNoVideoSource}
	}
	if !isRemoteURL(raw) {
		return nil, domain.NewInvalidInputError("videoUrl", "must be an absolute http(s) URL")
	}
	return s.store.StoreRemote(ctx, raw)
}

// Lookup returns an already stored video by its public path or filename.
func (s *IngestService) Lookup(ctx context.Context, pathOrName string) (*domain.StoredVideo, error) {
	name := strings.TrimPrefix(pathOrName, domain.UploadPathPrefix)
	if strings.Contains(name, "/") {
		return nil, domain.ErrVideoNotFound
	}
	return s.store.Get(ctx, name)
}

// PublicURL returns the absolute URL of a stored video as seen from requestHost.
func (s *IngestService) PublicURL(requestHost string, v *domain.StoredVideo) string {
	return ResolvePublicURL(s.Host(requestHost), v.PublicPath())
}

// Host returns the configured public host, or requestHost when none is set.
func (s *IngestService) Host(requestHost string) string {
	if s.publicHost != "" {
		return s.publicHost
	}
	return requestHost
}

// ResolvePublicURL turns a server-relative path into an absolute URL on host.
// Loopback and development hosts get http, everything else https. Absolute
// URLs are returned unchanged.
func ResolvePublicURL(host, pathOrURL string) string {
	if !strings.HasPrefix(pathOrURL, "/") || strings.HasPrefix(pathOrURL, "//") {
		return pathOrURL
	}
	scheme := "https"
	if IsLoopbackHost(host) {
		scheme = "http"
	}
	return scheme + "://" + host + pathOrURL
}

// IsLoopbackHost reports whether host (with or without port) names the local
// machine: localhost, *.localhost, loopback IPs or the unspecified address.
func IsLoopbackHost(host string) bool {
	h := host
	if hostOnly, _, err := net.SplitHostPort(host); err == nil {
		h = hostOnly
	}
	h = strings.TrimSuffix(strings.TrimPrefix(h, "["), "]")
	h = strings.ToLower(h)

	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}
	return false
}

func isRemoteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
