package storage

import "hdb-resale/models"

// ListingWriter is the interface any export backend must satisfy.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}
