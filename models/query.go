package models

// Query holds the search criteria of the listings form. Zero values mean
// "no constraint".
type Query struct {
	Town        string
	FlatTypes   []string
	FlatModels  []string
	MinPrice    float64
	MaxPrice    float64
	MinBedrooms int
	Keyword     string
}

// IsZero reports whether the query constrains nothing.
func (q Query) IsZero() bool {
	return q.Town == "" && len(q.FlatTypes) == 0 && len(q.FlatModels) == 0 &&
		q.MinPrice == 0 && q.MaxPrice == 0 && q.MinBedrooms == 0 && q.Keyword == ""
}
