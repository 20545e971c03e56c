package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hdb-resale/models"
	"hdb-resale/parser"
	"hdb-resale/utils"
)

// ErrFetchFailed marks a load that could not retrieve the CSV resource.
var ErrFetchFailed = errors.New("failed to fetch CSV")

// Fetcher retrieves a resource by path. A non-OK result is not an error at
// this boundary; the Loader decides what it means.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*models.FetchResult, error)
}

// Loader runs fetch → decode → project for a listings file.
type Loader struct {
	fetcher   Fetcher
	projector *Projector
	logger    *utils.Logger
}

// NewLoader creates a Loader.
func NewLoader(fetcher Fetcher, projector *Projector, logger *utils.Logger) *Loader {
	return &Loader{fetcher: fetcher, projector: projector, logger: logger}
}

// Load fetches path and returns its listings. Only the fetch can fail;
// every later step degrades bad rows instead of erroring. No partial set
// is returned on failure and nothing is retried here.
func (l *Loader) Load(ctx context.Context, path string) ([]*models.Listing, error) {
	res, err := l.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if !res.OK {
		return nil, fmt.Errorf("%w: %d", ErrFetchFailed, res.Status)
	}

	listings := l.Parse(res.Body)
	l.logger.Info("[loader] Loaded %d listings from %s", len(listings), path)
	return listings, nil
}

// Parse decodes CSV text whose first row is the header.
func (l *Loader) Parse(raw string) []*models.Listing {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSpace(text)

	rows := parser.Decode(text)
	if len(rows) == 0 {
		l.logger.Warn("[loader] CSV is empty")
		return []*models.Listing{}
	}

	idx := parser.ResolveHeaders(rows[0])
	if missing := idx.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, f := range missing {
			names[i] = f.String()
		}
		l.logger.Warn("[loader] Header row lacks columns: %s", strings.Join(names, ", "))
	}

	return l.projector.Project(rows[1:], idx)
}
