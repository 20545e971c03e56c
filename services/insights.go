package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"hdb-resale/models"
	"hdb-resale/utils"
)

const topPSFCount = 5

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

// WithOutput redirects Print, mostly for tests.
func (s *InsightService) WithOutput(w io.Writer) *InsightService {
	s.out = w
	return s
}

func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByTown:     make(map[string]int),
		ListingsByFlatType: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priced []*models.Listing
	var withPSF []*models.Listing

	for _, l := range listings {
		if l.Price > 0 {
			priced = append(priced, l)
		}
		if l.PSF != nil {
			withPSF = append(withPSF, l)
		}
		if l.Town != "" {
			report.ListingsByTown[l.Town]++
		}
		if l.FlatType != "" {
			report.ListingsByFlatType[l.FlatType]++
		}
	}

	if len(priced) > 0 {
		report.MinPrice = priced[0].Price
		report.MaxPrice = priced[0].Price
		report.MostExpensive = priced[0]
		var total float64
		for _, l := range priced {
			total += l.Price
			if l.Price < report.MinPrice {
				report.MinPrice = l.Price
			}
			if l.Price > report.MaxPrice {
				report.MaxPrice = l.Price
				report.MostExpensive = l
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	if len(withPSF) > 0 {
		var total int
		for _, l := range withPSF {
			total += *l.PSF
		}
		report.AveragePSF = round2(float64(total) / float64(len(withPSF)))
	}

	// Highest PSF first; ties keep input order.
	sort.SliceStable(withPSF, func(i, j int) bool {
		return *withPSF[i].PSF > *withPSF[j].PSF
	})
	if len(withPSF) > topPSFCount {
		report.TopPSF = withPSF[:topPSFCount]
	} else {
		report.TopPSF = withPSF
	}

	s.logger.Debug("[insights] Generated report over %d listings (%d towns)",
		report.TotalListings, len(report.ListingsByTown))
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🏠 HDB RESALE INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Towns          : \033[1m%d\033[0m\n", len(r.ListingsByTown))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%s\033[0m\n", FormatCurrency(r.AveragePrice))
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%s\033[0m\n", FormatCurrency(r.MinPrice))
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%s\033[0m\n", FormatCurrency(r.MaxPrice))
		if r.AveragePSF > 0 {
			fmt.Fprintf(w, "  Average PSF   : \033[1;32m%s\033[0m\n", FormatCurrency(r.AveragePSF))
		}
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		l := r.MostExpensive
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate("Blk "+l.Block+" "+l.StreetName, 50))
		fmt.Fprintf(w, "  Town  : %s (%s, %s)\n", l.Town, l.FlatType, l.YearMonth)
		fmt.Fprintf(w, "  Price : \033[1;31m%s\033[0m\n", FormatCurrency(l.Price))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top %d by Price per Sqft\033[0m\n", topPSFCount)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopPSF) == 0 {
		fmt.Fprintf(w, "  No listings with floor area\n")
	} else {
		for i, l := range r.TopPSF {
			title := truncate("Blk "+l.Block+" "+l.StreetName, 38)
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%s psf\033[0m\n",
				i+1, title, FormatCurrency(float64(*l.PSF)))
		}
	}
	fmt.Fprintln(w)

	printCounts(w, "Listings by Town", r.ListingsByTown, thin)
	printCounts(w, "Listings by Flat Type", r.ListingsByFlatType, thin)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, title string, counts map[string]int, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n")
		return
	}

	type keyCount struct {
		key   string
		count int
	}
	var rows []keyCount
	max := 0
	for k, c := range counts {
		rows = append(rows, keyCount{k, c})
		if c > max {
			max = c
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].key < rows[j].key
	})
	for _, kc := range rows {
		// At most 30 cells.
		bar := strings.Repeat("█", 1+kc.count*29/max)
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(kc.key, 28), bar, kc.count)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
