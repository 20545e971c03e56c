package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hdb-resale/config"
	"hdb-resale/models"
	"hdb-resale/services"
	"hdb-resale/utils"
)

// New picks a Fetcher for cfg.FetchMode: "file" (default), "http" or
// "browser".
func New(cfg *config.Config, logger *utils.Logger) (services.Fetcher, error) {
	switch strings.ToLower(cfg.FetchMode) {
	case "", "file":
		return NewFileFetcher(""), nil
	case "http":
		return NewHTTPFetcher(cfg.BaseURL, cfg.FetchTimeout), nil
	case "browser":
		return NewBrowserFetcher(cfg.BaseURL, cfg.ChromeBin, cfg.FetchTimeout, logger), nil
	default:
		return nil, fmt.Errorf("fetcher: unknown FETCH_MODE %q", cfg.FetchMode)
	}
}

// FileFetcher reads resources from the local filesystem, relative to root.
type FileFetcher struct {
	root string
}

// NewFileFetcher creates a FileFetcher. An empty root resolves paths as given.
func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{root: root}
}

// Fetch reads path. A missing file is reported as a 404 result, a read
// failure as 500; neither is an error at this boundary.
func (f *FileFetcher) Fetch(ctx context.Context, path string) (*models.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := path
	if f.root != "" {
		full = filepath.Join(f.root, filepath.FromSlash(path))
	}

	data, err := os.ReadFile(full)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &models.FetchResult{OK: false, Status: http.StatusNotFound}, nil
	case errors.Is(err, fs.ErrPermission):
		return &models.FetchResult{OK: false, Status: http.StatusForbidden}, nil
	case err != nil:
		return &models.FetchResult{OK: false, Status: http.StatusInternalServerError}, nil
	}
	return &models.FetchResult{OK: true, Status: http.StatusOK, Body: string(data)}, nil
}

// HTTPFetcher GETs resources relative to a base URL.
type HTTPFetcher struct {
	base   string
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the given request timeout.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		base:   baseURL,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch resolves path against the base URL and returns the response body.
// Non-2xx responses come back as OK=false with their status.
func (h *HTTPFetcher) Fetch(ctx context.Context, path string) (*models.FetchResult, error) {
	target, err := resolve(h.base, path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: build request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: get %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}

	return &models.FetchResult{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Body:   string(body),
	}, nil
}

func resolve(base, path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("fetcher: parse path %q: %w", path, err)
	}
	if ref.IsAbs() || base == "" {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("fetcher: parse base %q: %w", base, err)
	}
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}
	return b.ResolveReference(ref).String(), nil
}
