package services

import (
	"net/url"
	"strconv"
	"strings"

	"hdb-resale/models"
)

// Filter returns the listings matching every criterion of q, in input order.
func Filter(listings []*models.Listing, q models.Query) []*models.Listing {
	if q.IsZero() {
		return listings
	}

	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))
	out := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if q.Town != "" && !strings.EqualFold(l.Town, q.Town) {
			continue
		}
		if len(q.FlatTypes) > 0 && !containsFold(q.FlatTypes, l.FlatType) {
			continue
		}
		if len(q.FlatModels) > 0 && !containsFold(q.FlatModels, l.FlatModel) {
			continue
		}
		if q.MinPrice > 0 && l.Price < q.MinPrice {
			continue
		}
		if q.MaxPrice > 0 && l.Price > q.MaxPrice {
			continue
		}
		if q.MinBedrooms > 0 && l.Bedrooms < q.MinBedrooms {
			continue
		}
		if keyword != "" {
			haystack := strings.ToLower(l.Block + " " + l.StreetName + " " + l.Town)
			if !strings.Contains(haystack, keyword) {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

// QueryFromValues reads search criteria from form or query-string values.
// Multi-select keys may repeat and may carry a "[]" suffix
// (flatModel=A&flatModel[]=B). Unparseable numbers are ignored.
func QueryFromValues(v url.Values) models.Query {
	return models.Query{
		Town:        strings.TrimSpace(v.Get("town")),
		FlatTypes:   multi(v, "flatType"),
		FlatModels:  multi(v, "flatModel"),
		MinPrice:    ParseNumber(v.Get("minPrice")),
		MaxPrice:    ParseNumber(v.Get("maxPrice")),
		MinBedrooms: atoi(v.Get("bedrooms")),
		Keyword:     strings.TrimSpace(v.Get("q")),
	}
}

func multi(v url.Values, key string) []string {
	var out []string
	for _, k := range []string{key, key + "[]"} {
		for _, s := range v[k] {
			for _, part := range strings.Split(s, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
