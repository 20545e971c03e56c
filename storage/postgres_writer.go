package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"hdb-resale/models"
)

const listingColumns = 19

// PostgresWriter persists projected listings to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id                  INTEGER      PRIMARY KEY,
			month               TEXT         NOT NULL DEFAULT '',
			town                TEXT         NOT NULL DEFAULT '',
			flat_type           TEXT         NOT NULL DEFAULT '',
			block               TEXT         NOT NULL,
			street_name         TEXT         NOT NULL,
			storey_range        TEXT         NOT NULL DEFAULT '',
			floor_area_sqm      TEXT         NOT NULL DEFAULT '',
			flat_model          TEXT         NOT NULL DEFAULT '',
			lease_commence_date TEXT         NOT NULL DEFAULT '',
			remaining_lease     TEXT         NOT NULL DEFAULT '',
			resale_price        TEXT         NOT NULL DEFAULT '',
			price               NUMERIC(14,2) NOT NULL,
			sqm                 NUMERIC(10,2) NOT NULL DEFAULT 0,
			sqft                INTEGER,
			psf                 INTEGER,
			bedrooms            INTEGER      NOT NULL,
			year_month          VARCHAR(7)   NOT NULL DEFAULT '',
			image               TEXT         NOT NULL DEFAULT '',
			created_at          TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_address ON listings(block, street_name, flat_type);
		CREATE INDEX IF NOT EXISTS idx_listings_town    ON listings(town);
		CREATE INDEX IF NOT EXISTS idx_listings_price   ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_listings_ym      ON listings(year_month);
	`)
	return err
}

// Clear deletes all existing listings from the table.
func (pw *PostgresWriter) Clear() error {
	_, err := pw.db.Exec("DELETE FROM listings")
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write replaces the table contents with listings, in batches.
func (pw *PostgresWriter) Write(listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	if err := pw.Clear(); err != nil {
		return err
	}

	const batchSize = 200
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.insertBatch(listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []*models.Listing) error {
	query, args := insertQuery(batch)
	if _, err := pw.db.Exec(query, args...); err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}
	return nil
}

func insertQuery(batch []*models.Listing) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*listingColumns)

	for idx, l := range batch {
		placeholders := make([]string, listingColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", idx*listingColumns+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			l.ID, l.Month, l.Town, l.FlatType, l.Block, l.StreetName, l.StoreyRange,
			l.FloorAreaSqm, l.FlatModel, l.LeaseCommenceDate, l.RemainingLease, l.ResalePrice,
			l.Price, l.Sqm, nullInt(l.Sqft), nullInt(l.PSF), l.Bedrooms, l.YearMonth, l.Image)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (id, month, town, flat_type, block, street_name, storey_range,
			floor_area_sqm, flat_model, lease_commence_date, remaining_lease, resale_price,
			price, sqm, sqft, psf, bedrooms, year_month, image)
		VALUES %s
		ON CONFLICT (id) DO NOTHING
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored listings in id order.
func (pw *PostgresWriter) FetchAll() ([]*models.Listing, error) {
	rows, err := pw.db.Query(`
		SELECT id, month, town, flat_type, block, street_name, storey_range,
			floor_area_sqm, flat_model, lease_commence_date, remaining_lease, resale_price,
			price, sqm, sqft, psf, bedrooms, year_month, image
		FROM listings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		var sqft, psf sql.NullInt64
		if err := rows.Scan(
			&l.ID, &l.Month, &l.Town, &l.FlatType, &l.Block, &l.StreetName, &l.StoreyRange,
			&l.FloorAreaSqm, &l.FlatModel, &l.LeaseCommenceDate, &l.RemainingLease, &l.ResalePrice,
			&l.Price, &l.Sqm, &sqft, &psf, &l.Bedrooms, &l.YearMonth, &l.Image,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		l.Sqft = fromNullInt(sqft)
		l.PSF = fromNullInt(psf)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
