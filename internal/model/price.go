package model

import "time"

// DateFormat is the calendar-date layout used on every output surface.
const DateFormat = "2006-01-02"

// PricePoint is a single daily bar. Date carries no time component.
type PricePoint struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Series is an ascending, duplicate-free sequence of daily bars.
type Series []PricePoint

// Closes returns the close column.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent bar. The series must not be empty.
func (s Series) Last() PricePoint { return s[len(s)-1] }

// DateOf truncates t to its calendar date at UTC midnight, keeping the
// year/month/day as seen in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
