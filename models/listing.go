package models

// Listing is one resale transaction projected from the source CSV.
// The raw string fields are kept exactly as cleaned from the file; the
// derived fields are computed once at load time and never mutated.
type Listing struct {
	ID int `json:"id"`

	Month             string `json:"month"`
	Town              string `json:"town"`
	FlatType          string `json:"flat_type"`
	Block             string `json:"block"`
	StreetName        string `json:"street_name"`
	StoreyRange       string `json:"storey_range"`
	FloorAreaSqm      string `json:"floor_area_sqm"`
	FlatModel         string `json:"flat_model"`
	LeaseCommenceDate string `json:"lease_commence_date"`
	RemainingLease    string `json:"remaining_lease"`
	ResalePrice       string `json:"resale_price"`

	Price     float64 `json:"price"`
	Sqm       float64 `json:"sqm"`
	Sqft      *int    `json:"sqft,omitempty"`
	PSF       *int    `json:"psf,omitempty"`
	Bedrooms  int     `json:"bedrooms"`
	YearMonth string  `json:"year_month"`
	Image     string  `json:"image"`
}

// AddressKey identifies a listing by block, street and flat type. Listings
// sharing a key share price history and illustration.
func (l *Listing) AddressKey() string {
	return l.Block + "-" + l.StreetName + "-" + l.FlatType
}

// PriceHistoryPoint is the average price of one month.
type PriceHistoryPoint struct {
	YearMonth string `json:"year_month"`
	Price     int    `json:"price"`
}

// FetchResult is what a fetcher hands back for a resource path.
type FetchResult struct {
	OK     bool
	Status int
	Body   string
}

// InsightReport holds the computed analytics over the loaded dataset.
type InsightReport struct {
	TotalListings      int            `json:"total_listings"`
	AveragePrice       float64        `json:"average_price"`
	MinPrice           float64        `json:"min_price"`
	MaxPrice           float64        `json:"max_price"`
	AveragePSF         float64        `json:"average_psf"`
	MostExpensive      *Listing       `json:"most_expensive,omitempty"`
	TopPSF             []*Listing     `json:"top_psf"`
	ListingsByTown     map[string]int `json:"listings_by_town"`
	ListingsByFlatType map[string]int `json:"listings_by_flat_type"`
}
