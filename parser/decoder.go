package parser

import "strings"

// Decode splits CSV text into rows of fields. Quoted fields may hold
// commas, line breaks and doubled quotes. Blank lines and CRLF pairs never
// produce empty rows, and an unterminated quote is flushed at end of input
// rather than reported.
//
// The scan works on bytes: every delimiter is ASCII, so multi-byte UTF-8
// sequences pass through the default branch untouched.
func Decode(text string) [][]string {
	var (
		out [][]string
		row []string
		cur strings.Builder
		inQ bool
	)

	endField := func() {
		row = append(row, cur.String())
		cur.Reset()
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"' && inQ && i+1 < len(text) && text[i+1] == '"':
			cur.WriteByte('"')
			i++
		case c == '"':
			inQ = !inQ
		case c == ',' && !inQ:
			endField()
		case (c == '\n' || c == '\r') && !inQ:
			if cur.Len() > 0 || len(row) > 0 {
				endField()
				out = append(out, row)
				row = nil
			}
		default:
			cur.WriteByte(c)
		}
	}

	if cur.Len() > 0 || len(row) > 0 {
		endField()
		out = append(out, row)
	}
	return out
}
