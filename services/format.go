package services

import (
	"math"
	"strconv"
)

// FormatCurrency renders a whole-dollar amount with thousands separators,
// e.g. 450000 → "$450,000" and -1200 → "$-1,200". Zero and non-finite
// values render as "$0".
func FormatCurrency(n float64) string {
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return "$0"
	}

	neg := n < 0
	digits := strconv.Itoa(roundInt(math.Abs(n)))

	out := make([]byte, 0, len(digits)+len(digits)/3+2)
	out = append(out, '$')
	if neg {
		out = append(out, '-')
	}
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return string(out)
}
