package services

import (
	"sort"

	"hdb-resale/models"
)

// HistoryMonths is how many of the most recent months PriceHistory keeps.
const HistoryMonths = 6

// PriceHistory averages the prices of every listing sharing rec's block,
// street and flat type, one point per month, oldest first, keeping only the
// last HistoryMonths months.
func PriceHistory(rec *models.Listing, all []*models.Listing) []models.PriceHistoryPoint {
	type bucket struct {
		sum   float64
		count int
	}
	byMonth := make(map[string]*bucket)

	for _, l := range all {
		if l.Block != rec.Block || l.StreetName != rec.StreetName || l.FlatType != rec.FlatType {
			continue
		}
		if l.YearMonth == "" {
			continue
		}
		b, ok := byMonth[l.YearMonth]
		if !ok {
			b = &bucket{}
			byMonth[l.YearMonth] = b
		}
		b.sum += l.Price
		b.count++
	}

	points := make([]models.PriceHistoryPoint, 0, len(byMonth))
	for ym, b := range byMonth {
		points = append(points, models.PriceHistoryPoint{
			YearMonth: ym,
			Price:     roundInt(b.sum / float64(b.count)),
		})
	}

	// "YYYY-MM" is zero-padded, so string order is chronological.
	sort.Slice(points, func(i, j int) bool {
		return points[i].YearMonth < points[j].YearMonth
	})

	if len(points) > HistoryMonths {
		points = points[len(points)-HistoryMonths:]
	}
	return points
}
