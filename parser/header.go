package parser

import "strings"

// Field is one of the canonical columns a listings file must carry.
type Field int

const (
	Month Field = iota
	Town
	FlatType
	Block
	StreetName
	StoreyRange
	FloorAreaSqm
	FlatModel
	LeaseCommenceDate
	RemainingLease
	ResalePrice

	numFields
)

var fieldNames = [numFields]string{
	Month:             "Month",
	Town:              "Town",
	FlatType:          "Flat Type",
	Block:             "Block",
	StreetName:        "Street Name",
	StoreyRange:       "Storey Range",
	FloorAreaSqm:      "Floor Area Sqm",
	FlatModel:         "Flat Model",
	LeaseCommenceDate: "Lease Commence Date",
	RemainingLease:    "Remaining Lease",
	ResalePrice:       "Resale Price",
}

func (f Field) String() string {
	if f >= 0 && f < numFields {
		return fieldNames[f]
	}
	return "Unknown"
}

// Fields returns the canonical fields in file order.
func Fields() []Field {
	out := make([]Field, numFields)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// HeaderIndex maps every canonical field to its column position, or -1
// when the header row does not carry it.
type HeaderIndex [numFields]int

// ResolveHeaders scans the header row once and records where each field
// lives. Matching is case-insensitive on the cleaned header text; the first
// matching column wins.
func ResolveHeaders(header []string) HeaderIndex {
	var idx HeaderIndex
	for i := range idx {
		idx[i] = -1
	}

	lookup := make(map[string]Field, numFields)
	for f, name := range fieldNames {
		lookup[strings.ToLower(name)] = Field(f)
	}

	for col, raw := range header {
		f, ok := lookup[strings.ToLower(CleanHeader(raw))]
		if ok && idx[f] == -1 {
			idx[f] = col
		}
	}
	return idx
}

// Position returns the column of f, or -1 when absent.
func (h HeaderIndex) Position(f Field) int {
	if f < 0 || f >= numFields {
		return -1
	}
	return h[f]
}

// Missing lists the canonical fields the header row did not carry.
func (h HeaderIndex) Missing() []Field {
	var out []Field
	for f, pos := range h {
		if pos < 0 {
			out = append(out, Field(f))
		}
	}
	return out
}

// Cell returns the cleaned value of f in row, or "" when the column is
// absent or the row is too short.
func (h HeaderIndex) Cell(row []string, f Field) string {
	pos := h.Position(f)
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// CleanHeader normalises a header cell: BOM stripped, whitespace runs
// collapsed, trimmed, one layer of wrapping quotes removed.
func CleanHeader(raw string) string {
	s := strings.TrimPrefix(raw, "\ufeff")
	s = strings.Join(strings.Fields(s), " ")
	return stripQuotes(s)
}

// CleanCell trims a data cell and removes one layer of wrapping quotes.
// Internal whitespace is left alone.
func CleanCell(raw string) string {
	return stripQuotes(strings.TrimSpace(raw))
}

func stripQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
