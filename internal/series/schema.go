package series

import (
	"strings"

	"PivotMirror/internal/model"
)

// Schema maps canonical columns to positions in a RawTable header.
// Optional columns that are absent are -1.
type Schema struct {
	Date   int
	Open   int
	High   int
	Low    int
	Close  int
	Volume int

	// AdjustedClose is set when Close was resolved from "Adj Close".
	AdjustedClose bool
}

// ResolveSchema locates the canonical columns in header.
//
// The date column is the first header starting with "date" (any case).
// The close column is "Close", or "Adj Close" when no plain close exists.
// Open, High, Low and Volume are optional and matched case-insensitively.
func ResolveSchema(header []string) (Schema, error) {
	s := Schema{Date: -1, Open: -1, High: -1, Low: -1, Close: -1, Volume: -1}
	adj := -1

	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.HasPrefix(name, "date"):
			if s.Date < 0 {
				s.Date = i
			}
		case name == "open":
			s.Open = first(s.Open, i)
		case name == "high":
			s.High = first(s.High, i)
		case name == "low":
			s.Low = first(s.Low, i)
		case name == "close":
			s.Close = first(s.Close, i)
		case name == "adj close":
			adj = first(adj, i)
		case name == "volume":
			s.Volume = first(s.Volume, i)
		}
	}

	if s.Date < 0 {
		return Schema{}, &model.SchemaError{Column: "date", Headers: header}
	}
	if s.Close < 0 {
		if adj < 0 {
			return Schema{}, &model.SchemaError{Column: "close", Headers: header}
		}
		s.Close = adj
		s.AdjustedClose = true
	}
	return s, nil
}

func first(cur, i int) int {
	if cur >= 0 {
		return cur
	}
	return i
}
