package services

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"hdb-resale/models"
	"hdb-resale/parser"
	"hdb-resale/utils"
)

// SqftPerSqm converts floor area from square metres to square feet.
const SqftPerSqm = 10.7639

const defaultBedrooms = 3

// Projector turns decoded CSV rows into Listings with derived metrics.
type Projector struct {
	logger   *utils.Logger
	images   []string
	fallback string

	pool      *utils.WorkerPool
	threshold int
}

// NewProjector creates a Projector assigning illustrations from images.
func NewProjector(logger *utils.Logger, images []string, fallback string) *Projector {
	return &Projector{logger: logger, images: images, fallback: fallback}
}

// WithWorkers lets Project split inputs of at least threshold rows across
// pool. Output order is unaffected.
func (p *Projector) WithWorkers(pool *utils.WorkerPool, threshold int) *Projector {
	p.pool = pool
	p.threshold = threshold
	return p
}

// Project maps data rows to Listings, dropping rows without a positive
// price, a block or a street name. Survivors keep input order and get IDs
// matching their position in the result.
func (p *Projector) Project(rows [][]string, idx parser.HeaderIndex) []*models.Listing {
	var result []*models.Listing
	if p.pool != nil && p.threshold > 0 && len(rows) >= p.threshold {
		result = p.projectParallel(rows, idx)
	} else {
		result = p.projectRange(rows, idx)
	}

	for i, l := range result {
		l.ID = i
	}

	p.logger.Info("[projector] Projected %d rows → %d listings (dropped %d)",
		len(rows), len(result), len(rows)-len(result))
	return result
}

func (p *Projector) projectParallel(rows [][]string, idx parser.HeaderIndex) []*models.Listing {
	chunks := utils.Chunks(len(rows), p.pool.Size())
	parts := make([][]*models.Listing, len(chunks))

	for i, c := range chunks {
		i, c := i, c
		p.pool.Submit(func() {
			parts[i] = p.projectRange(rows[c[0]:c[1]], idx)
		})
	}
	p.pool.Wait()

	total := 0
	for _, part := range parts {
		total += len(part)
	}
	result := make([]*models.Listing, 0, total)
	for _, part := range parts {
		result = append(result, part...)
	}
	return result
}

func (p *Projector) projectRange(rows [][]string, idx parser.HeaderIndex) []*models.Listing {
	result := make([]*models.Listing, 0, len(rows))
	for _, r := range rows {
		l := p.projectRow(r, idx)
		if l.Price <= 0 || l.Block == "" || l.StreetName == "" {
			p.logger.Debug("[projector] Dropping implausible row: block=%q street=%q price=%q",
				l.Block, l.StreetName, l.ResalePrice)
			continue
		}
		result = append(result, l)
	}
	return result
}

func (p *Projector) projectRow(r []string, idx parser.HeaderIndex) *models.Listing {
	l := &models.Listing{
		Month:             idx.Cell(r, parser.Month),
		Town:              idx.Cell(r, parser.Town),
		FlatType:          idx.Cell(r, parser.FlatType),
		Block:             idx.Cell(r, parser.Block),
		StreetName:        idx.Cell(r, parser.StreetName),
		StoreyRange:       idx.Cell(r, parser.StoreyRange),
		FloorAreaSqm:      idx.Cell(r, parser.FloorAreaSqm),
		FlatModel:         idx.Cell(r, parser.FlatModel),
		LeaseCommenceDate: idx.Cell(r, parser.LeaseCommenceDate),
		RemainingLease:    idx.Cell(r, parser.RemainingLease),
		ResalePrice:       idx.Cell(r, parser.ResalePrice),
	}

	l.Price = ParseNumber(l.ResalePrice)
	l.Sqm = ParseNumber(l.FloorAreaSqm)
	l.Sqft = SquareFeet(l.Sqm)
	l.Bedrooms = GuessBedrooms(l.FlatType)
	l.PSF = PricePerSqft(l.Price, l.Sqft)
	l.YearMonth = YearMonth(l.Month)
	l.Image = p.imageFor(l.AddressKey())
	return l
}

func (p *Projector) imageFor(key string) string {
	if len(p.images) == 0 {
		return p.fallback
	}
	i := ImageIndex(key, len(p.images))
	if i < 0 || i >= len(p.images) || p.images[i] == "" {
		return p.fallback
	}
	return p.images[i]
}

// ParseNumber keeps only digits and dots and parses what is left. Anything
// unparseable or non-finite is 0.
//
//	"$450,000"  → 450000
//	"90.5 sqm"  → 90.5
//	"1.2.3"     → 0
func ParseNumber(raw string) float64 {
	digits := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0
	}

	n, err := strconv.ParseFloat(digits, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0
	}
	return n
}

// SquareFeet converts a floor area; nil when the area is unknown.
func SquareFeet(sqm float64) *int {
	if sqm == 0 {
		return nil
	}
	v := roundInt(sqm * SqftPerSqm)
	return &v
}

// PricePerSqft is nil unless both price and sqft are known and non-zero.
func PricePerSqft(price float64, sqft *int) *int {
	if sqft == nil || *sqft == 0 || price == 0 {
		return nil
	}
	v := roundInt(price / float64(*sqft))
	return &v
}

// GuessBedrooms reads the leading digit of a flat type ("4 ROOM" → 4).
func GuessBedrooms(flatType string) int {
	if flatType != "" && flatType[0] >= '0' && flatType[0] <= '9' {
		return int(flatType[0] - '0')
	}
	return defaultBedrooms
}

// YearMonth returns the "YYYY-MM" prefix of a month field.
func YearMonth(month string) string {
	r := []rune(month)
	if len(r) > 7 {
		r = r[:7]
	}
	return string(r)
}

// ImageIndex sums the UTF-16 code units of key modulo n, so a given
// block/street/flat type always maps to the same image.
func ImageIndex(key string, n int) int {
	if n <= 0 {
		return -1
	}
	sum := 0
	for _, u := range utf16.Encode([]rune(key)) {
		sum = (sum + int(u)) % n
	}
	return sum
}

// roundInt rounds half up.
func roundInt(f float64) int {
	return int(math.Floor(f + 0.5))
}
