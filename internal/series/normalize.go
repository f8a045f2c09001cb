package series

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"PivotMirror/internal/model"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	"01/02/2006",
}

// ParseDate parses a calendar date in any of the accepted layouts. The
// date is taken as written; no zone conversion is applied.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), true
		}
	}
	return time.Time{}, false
}

// cell is a numeric value that may be missing.
type cell struct {
	v  float64
	ok bool
}

func parseCell(row []string, col int) cell {
	if col < 0 || col >= len(row) {
		return cell{}
	}
	s := strings.ReplaceAll(strings.TrimSpace(row[col]), ",", "")
	if s == "" {
		return cell{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return cell{}
	}
	return cell{v: v, ok: true}
}

type rawRow struct {
	date                   time.Time
	open, high, low, close cell
	volume                 cell
}

// Normalize canonicalizes a raw table into a Series.
//
// Rows with unparseable dates are dropped, the rest are sorted by date and
// duplicate dates keep their last occurrence. Missing closes are linearly
// interpolated between known neighbours, trailing gaps take the last known
// close and leading gaps the first. Missing open/high/low take the close,
// missing volume is 0.
func Normalize(t RawTable) (model.Series, error) {
	schema, err := ResolveSchema(t.Header)
	if err != nil {
		return nil, err
	}

	rows := make([]rawRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		if schema.Date >= len(r) {
			continue
		}
		d, ok := ParseDate(r[schema.Date])
		if !ok {
			continue
		}
		rows = append(rows, rawRow{
			date:   d,
			open:   parseCell(r, schema.Open),
			high:   parseCell(r, schema.High),
			low:    parseCell(r, schema.Low),
			close:  parseCell(r, schema.Close),
			volume: parseCell(r, schema.Volume),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })
	rows = dedupeKeepLast(rows)
	if len(rows) == 0 {
		return nil, model.ErrEmptySeries
	}

	closes := make([]cell, len(rows))
	for i, r := range rows {
		closes[i] = r.close
	}
	filled, ok := fillCloses(closes)
	if !ok {
		return nil, model.ErrEmptySeries
	}

	out := make(model.Series, len(rows))
	for i, r := range rows {
		c := filled[i]
		out[i] = model.PricePoint{
			Date:   r.date,
			Open:   orElse(r.open, c),
			High:   orElse(r.high, c),
			Low:    orElse(r.low, c),
			Close:  c,
			Volume: volumeOf(r.volume),
		}
	}
	return out, nil
}

// dedupeKeepLast collapses runs of equal dates in a sorted slice to their
// last element.
func dedupeKeepLast(rows []rawRow) []rawRow {
	out := rows[:0]
	for i, r := range rows {
		if i+1 < len(rows) && rows[i+1].date.Equal(r.date) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// fillCloses interpolates interior gaps by position, then fills the
// trailing gap forward and the leading gap backward. It reports false when
// no close is known at all.
func fillCloses(cs []cell) ([]float64, bool) {
	known := make([]int, 0, len(cs))
	for i, c := range cs {
		if c.ok {
			known = append(known, i)
		}
	}
	if len(known) == 0 {
		return nil, false
	}

	out := make([]float64, len(cs))
	for i := 0; i < known[0]; i++ {
		out[i] = cs[known[0]].v
	}
	for k, idx := range known {
		out[idx] = cs[idx].v
		if k+1 == len(known) {
			for i := idx + 1; i < len(cs); i++ {
				out[i] = cs[idx].v
			}
			break
		}
		next := known[k+1]
		lo, hi := cs[idx].v, cs[next].v
		span := float64(next - idx)
		for i := idx + 1; i < next; i++ {
			out[i] = lo + (hi-lo)*float64(i-idx)/span
		}
	}
	return out, true
}

func orElse(c cell, fallback float64) float64 {
	if c.ok {
		return c.v
	}
	return fallback
}

func volumeOf(c cell) int64 {
	if !c.ok || c.v < 0 {
		return 0
	}
	if c.v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(c.v)
}
