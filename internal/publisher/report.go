package publisher

import (
	"fmt"
	"math"
	"time"

	"PivotMirror/internal/model"
	"PivotMirror/internal/projection"
)

// Matrix is a header row followed by data rows. Cells are string, float64,
// int64, int or nil; nil is the explicit null marker and never stands in
// for zero.
type Matrix [][]any

// Report is everything a sink receives for one instrument run.
type Report struct {
	RunID   string
	RunAt   time.Time
	Sheet   string
	Ticker  string
	Name    string
	Options projection.Options

	Series model.Series
	Result *projection.Result

	Historical Matrix // No.,Date,Open,High,Low,Close,Volume
	Projection Matrix // No.,Date,Projected
	Combined   Matrix // All_Date,Hist_Close,Projected

	// ChartRows is the combined row count plus the header; a chart must
	// cover exactly rows [1, ChartRows) of Combined.
	ChartRows int
	Chart     ChartSpec
}

// NewReport builds the sink-facing matrices for a projection run.
func NewReport(runID string, runAt time.Time, item model.WatchItem, opts projection.Options, s model.Series, res *projection.Result) *Report {
	r := &Report{
		RunID:      runID,
		RunAt:      runAt,
		Sheet:      item.Sheet(),
		Ticker:     item.Ticker,
		Name:       item.Name,
		Options:    opts,
		Series:     s,
		Result:     res,
		Historical: HistoricalMatrix(s),
		Projection: ProjectionMatrix(res.Projection),
		Combined:   CombinedMatrix(res.Combined),
	}
	r.ChartRows = len(res.Combined) + 1
	r.Chart = NewChartSpec(r.Sheet, runAt, r.ChartRows)
	return r
}

// Cell maps non-finite values to nil.
func Cell(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nullCell(v float64, valid bool) any {
	if !valid {
		return nil
	}
	return Cell(v)
}

func dateCell(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(model.DateFormat)
}

// HistoricalMatrix renders the normalized series.
func HistoricalMatrix(s model.Series) Matrix {
	m := Matrix{{"No.", "Date", "Open", "High", "Low", "Close", "Volume"}}
	for i, p := range s {
		m = append(m, []any{i + 1, dateCell(p.Date), Cell(p.Open), Cell(p.High), Cell(p.Low), Cell(p.Close), p.Volume})
	}
	return m
}

// ProjectionMatrix renders the projected path.
func ProjectionMatrix(proj []model.ProjectedPoint) Matrix {
	m := Matrix{{"No.", "Date", "Projected"}}
	for i, p := range proj {
		m = append(m, []any{i + 1, dateCell(p.Date), Cell(p.Price)})
	}
	return m
}

// CombinedMatrix renders the merged timeline.
func CombinedMatrix(rows []model.CombinedRow) Matrix {
	m := Matrix{{"All_Date", "Hist_Close", "Projected"}}
	for _, r := range rows {
		m = append(m, []any{
			dateCell(r.Date),
			nullCell(r.HistClose.Float64, r.HistClose.Valid),
			nullCell(r.Projected.Float64, r.Projected.Valid),
		})
	}
	return m
}

// Summary is a one-line description used in logs.
func (r *Report) Summary() string {
	p := r.Result.Pivot
	return fmt.Sprintf("%s: pivot %s @ %g, %d projected, %d combined rows",
		r.Sheet, p.Date.Format(model.DateFormat), p.Price, len(r.Result.Projection), len(r.Result.Combined))
}
