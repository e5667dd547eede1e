package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// XLSXContentType is the media type requested from the dataset host.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultMaxBytes caps the size of a downloaded dataset.
const DefaultMaxBytes = 32 << 20

// HTTPSource implements ports.DatasetSource by downloading a fixed URL.
type HTTPSource struct {
	URL      string
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPSource creates a source for url with a bounded client timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPSource{
		URL:      url,
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: DefaultMaxBytes,
	}
}

// Fetch downloads the dataset. Any non-2xx status is an error.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", XLSXContentType)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("dataset exceeds %d bytes", limit)
	}
	return data, nil
}

// Location implements ports.DatasetSource.
func (s *HTTPSource) Location() string {
	return s.URL
}

// FileSource implements ports.DatasetSource by reading a local file.
type FileSource struct {
	Path string
}

// Fetch reads the whole file.
func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.Path)
}

// Location implements ports.DatasetSource.
func (s FileSource) Location() string {
	return "file://" + s.Path
}
