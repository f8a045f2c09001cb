package projection

import (
	"time"

	"PivotMirror/internal/model"
)

// minPivotWindow is the smallest number of trailing rows scanned when the
// pivot is derived from data.
const minPivotWindow = 20

// SelectPivot resolves the pivot of s.
//
// With an explicit date the row with that date is used; if absent, the row
// nearest by absolute day distance, the earliest date winning ties. Without
// one, the last max(20, 2*lookback) rows are scanned for the lowest
// (SideLow) or highest (SideHigh) close, first occurrence winning ties.
func SelectPivot(s model.Series, explicit *time.Time, lookback int, side model.Side) (model.Pivot, error) {
	if len(s) == 0 {
		return model.Pivot{}, model.ErrEmptySeries
	}

	var idx int
	if explicit != nil {
		idx = nearestIndex(s, *explicit)
	} else {
		idx = extremumIndex(s, windowSize(lookback), side)
	}
	return model.Pivot{Index: idx, Date: s[idx].Date, Price: s[idx].Close}, nil
}

func windowSize(lookback int) int {
	if w := lookback * 2; w > minPivotWindow {
		return w
	}
	return minPivotWindow
}

// nearestIndex relies on s being ascending: a strict comparison keeps the
// first, i.e. earliest, of equally distant rows.
func nearestIndex(s model.Series, target time.Time) int {
	target = model.DateOf(target)
	best, bestDist := 0, -1
	for i, p := range s {
		dist := model.DaysBetween(target, p.Date)
		if dist < 0 {
			dist = -dist
		}
		if dist == 0 {
			return i
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

func extremumIndex(s model.Series, window int, side model.Side) int {
	start := len(s) - window
	if start < 0 {
		start = 0
	}
	best := start
	for i := start + 1; i < len(s); i++ {
		c := s[i].Close
		if side == model.SideHigh {
			if c > s[best].Close {
				best = i
			}
		} else if c < s[best].Close {
			best = i
		}
	}
	return best
}
