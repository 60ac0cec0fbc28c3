package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ggsolution/autotok/internal/config"
	"github.com/ggsolution/autotok/internal/domain"
	"github.com/ggsolution/autotok/internal/downloader"
)

const (
	videoPrefix = "video-"
	videoExt    = ".mp4"

	// maxNameAttempts bounds the search for an unused filename.
	maxNameAttempts = 1000
)

// videoFile is the part of *os.File the store writes through.
type videoFile interface {
	io.Writer
	Sync() error
	Close() error
}

// FilesystemVideoStore implements VideoStore on a local directory.
type FilesystemVideoStore struct {
	dir        string
	downloader downloader.Downloader
	logger     *slog.Logger
	clock      *nameClock
	openFile   func(path string) (videoFile, error)
}

// NewFilesystemVideoStore creates a new filesystem-backed video store.
func NewFilesystemVideoStore(cfg config.StorageConfig, dl downloader.Downloader, logger *slog.Logger) *FilesystemVideoStore {
	return &FilesystemVideoStore{
		dir:        cfg.UploadDir,
		downloader: dl,
		logger:     logger,
		clock:      &nameClock{now: time.Now},
		openFile:   openExclusive,
	}
}

func openExclusive(path string) (videoFile, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
}

// Dir returns the upload root.
func (s *FilesystemVideoStore) Dir() string {
	return s.dir
}

// StoreUpload writes r to a new file. A failure reading r is reported as an
// UploadError, not a StorageError.
func (s *FilesystemVideoStore) StoreUpload(ctx context.Context, r io.Reader) (*domain.StoredVideo, error) {
	src := &trackingReader{r: r}
	video, err := s.write(ctx, src)
	if err != nil {
		if src.err != nil {
			return nil, &domain.UploadError{Err: src.err}
		}
		return nil, err
	}
	s.logger.Info("video stored", "filename", video.Filename, "size", video.Size, "source", "upload")
	return video, nil
}

// StoreRemote fetches sourceURL and streams the body into a new file.
func (s *FilesystemVideoStore) StoreRemote(ctx context.Context, sourceURL string) (*domain.StoredVideo, error) {
	body, _, err := s.downloader.Download(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	src := &trackingReader{r: body}
	video, err := s.write(ctx, src)
	if err != nil {
		if src.err != nil {
			return nil, &domain.RemoteFetchError{URL: sourceURL, Err: src.err}
		}
		return nil, err
	}
	s.logger.Info("video stored", "filename", video.Filename, "size", video.Size, "source", sourceURL)
	return video, nil
}

func (s *FilesystemVideoStore) write(ctx context.Context, r io.Reader) (*domain.StoredVideo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, domain.NewStorageError("create upload dir", s.dir, err)
	}

	f, name, path, createdAt, err := s.create()
	if err != nil {
		return nil, err
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		_ = os.Remove(path)
		return nil, domain.NewStorageError("write video", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(path)
		return nil, domain.NewStorageError("sync video", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, domain.NewStorageError("close video", path, err)
	}

	return &domain.StoredVideo{
		Filename:  name,
		Path:      path,
		Size:      n,
		CreatedAt: createdAt,
	}, nil
}

// create opens a new file exclusively under a fresh timestamp name.
func (s *FilesystemVideoStore) create() (videoFile, string, string, time.Time, error) {
	for i := 0; i < maxNameAttempts; i++ {
		ms := s.clock.next()
		name := fmt.Sprintf("%s%d%s", videoPrefix, ms, videoExt)
		path := filepath.Join(s.dir, name)

		f, err := s.openFile(path)
		if err == nil {
			return f, name, path, time.UnixMilli(ms), nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", "", time.Time{}, domain.NewStorageError("create video", path, err)
		}
	}
	return nil, "", "", time.Time{}, domain.NewStorageError("create video", s.dir, fmt.Errorf("no unused filename after %d attempts", maxNameAttempts))
}

// Get returns the stored video with the given filename.
func (s *FilesystemVideoStore) Get(ctx context.Context, filename string) (*domain.StoredVideo, error) {
	if !isVideoName(filename) {
		return nil, domain.ErrVideoNotFound
	}
	path := filepath.Join(s.dir, filename)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrVideoNotFound
		}
		return nil, domain.NewStorageError("stat video", path, err)
	}
	return videoFromInfo(s.dir, info), nil
}

// List returns all stored videos, newest first.
func (s *FilesystemVideoStore) List(ctx context.Context) ([]*domain.StoredVideo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*domain.StoredVideo{}, nil
		}
		return nil, domain.NewStorageError("list videos", s.dir, err)
	}

	videos := make([]*domain.StoredVideo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isVideoName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		videos = append(videos, videoFromInfo(s.dir, info))
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos, nil
}

func videoFromInfo(dir string, info os.FileInfo) *domain.StoredVideo {
	created := info.ModTime()
	if ms, ok := parseVideoName(info.Name()); ok {
		created = time.UnixMilli(ms)
	}
	return &domain.StoredVideo{
		Filename:  info.Name(),
		Path:      filepath.Join(dir, info.Name()),
		Size:      info.Size(),
		CreatedAt: created,
	}
}

func isVideoName(name string) bool {
	_, ok := parseVideoName(name)
	return ok
}

// parseVideoName extracts the timestamp from video-<ms>.mp4.
func parseVideoName(name string) (int64, bool) {
	if !strings.HasPrefix(name, videoPrefix) || !strings.HasSuffix(name, videoExt) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, videoPrefix), videoExt)
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return 0, false
	}
	ms, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// nameClock hands out strictly increasing millisecond timestamps.
type nameClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (c *nameClock) next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

// trackingReader remembers the first read error so a failed copy can be
// attributed to the source rather than the disk.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}
