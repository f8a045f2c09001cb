package model

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Side selects which extremum anchors a derived pivot.
type Side string

const (
	SideLow  Side = "low"
	SideHigh Side = "high"
)

// ParseSide accepts "low" or "high" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideLow:
		return SideLow, nil
	case SideHigh:
		return SideHigh, nil
	default:
		return "", fmt.Errorf("invalid pivot side %q, want low or high", s)
	}
}

// Pivot is the anchor the history is mirrored around.
type Pivot struct {
	Index int
	Date  time.Time
	Price float64
}

// ProjectedPoint is one business day of the mirrored path.
type ProjectedPoint struct {
	Date  time.Time
	Price float64
}

// CombinedRow is one date of the outer-joined timeline. A side that has
// no value on Date is reported with Valid=false.
type CombinedRow struct {
	Date      time.Time
	HistClose sql.NullFloat64
	Projected sql.NullFloat64
}
