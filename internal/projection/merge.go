package projection

import (
	"database/sql"

	"PivotMirror/internal/model"
)

// Merge outer-joins the historical closes and the projection on date. Both
// inputs must be ascending; the result holds one row per distinct date.
func Merge(hist model.Series, proj []model.ProjectedPoint) []model.CombinedRow {
	out := make([]model.CombinedRow, 0, len(hist)+len(proj))
	i, j := 0, 0
	for i < len(hist) || j < len(proj) {
		var row model.CombinedRow
		switch {
		case j >= len(proj) || (i < len(hist) && hist[i].Date.Before(proj[j].Date)):
			row.Date = hist[i].Date
			row.HistClose = sql.NullFloat64{Float64: hist[i].Close, Valid: true}
			i++
		case i >= len(hist) || proj[j].Date.Before(hist[i].Date):
			row.Date = proj[j].Date
			row.Projected = sql.NullFloat64{Float64: proj[j].Price, Valid: true}
			j++
		default:
			row.Date = hist[i].Date
			row.HistClose = sql.NullFloat64{Float64: hist[i].Close, Valid: true}
			row.Projected = sql.NullFloat64{Float64: proj[j].Price, Valid: true}
			i++
			j++
		}
		out = append(out, row)
	}
	return out
}
