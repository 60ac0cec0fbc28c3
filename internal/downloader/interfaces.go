package downloader

import (
	"context"
	"io"
)

// Downloader fetches source videos from remote URLs.
type Downloader interface {
	// Download opens a streaming GET for url and returns the body and its
	// declared size (-1 when unknown). Caller closes the reader.
	// A non-2xx response is reported as *domain.RemoteFetchError.
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}
