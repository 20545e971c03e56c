package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"hdb-resale/models"
)

// Header is the column layout of an exported listings file: the canonical
// source columns followed by the derived ones.
var Header = []string{
	"Month", "Town", "Flat Type", "Block", "Street Name", "Storey Range",
	"Floor Area Sqm", "Flat Model", "Lease Commence Date", "Remaining Lease", "Resale Price",
	"price", "sqft", "psf", "bedrooms", "year_month", "image",
}

// CSVWriter writes projected listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	closer io.Closer
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w, err := newCSVWriter(f, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

func newCSVWriter(dst io.Writer, closer io.Closer) (*CSVWriter, error) {
	w := csv.NewWriter(dst)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	return &CSVWriter{closer: closer, writer: w}, nil
}

// Write appends listings to the file.
func (c *CSVWriter) Write(listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		if err := c.writer.Write(Record(l)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if c.closer == nil {
		return c.writer.Error()
	}
	return c.closer.Close()
}

// Record flattens a listing into a row matching Header.
func Record(l *models.Listing) []string {
	return []string{
		l.Month, l.Town, l.FlatType, l.Block, l.StreetName, l.StoreyRange,
		l.FloorAreaSqm, l.FlatModel, l.LeaseCommenceDate, l.RemainingLease, l.ResalePrice,
		strconv.FormatFloat(l.Price, 'f', -1, 64),
		optInt(l.Sqft),
		optInt(l.PSF),
		strconv.Itoa(l.Bedrooms),
		l.YearMonth,
		l.Image,
	}
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
