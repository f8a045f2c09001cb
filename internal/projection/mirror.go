package projection

import "PivotMirror/internal/model"

// Project mirrors the path leading into pivot forward over horizon
// business days.
//
// Up to horizon closes immediately before the pivot are taken, reversed
// and reflected through the pivot price (P + (P - p)). When fewer points
// exist the tail repeats the last mirrored value, and with no history
// before the pivot the projection is flat at the pivot price.
func Project(s model.Series, pivot model.Pivot, horizon int) []model.ProjectedPoint {
	if horizon <= 0 {
		return nil
	}

	start := pivot.Index - horizon
	if start < 0 {
		start = 0
	}
	prePivot := s[start:pivot.Index]

	values := make([]float64, 0, horizon)
	for i := len(prePivot) - 1; i >= 0; i-- {
		values = append(values, pivot.Price+(pivot.Price-prePivot[i].Close))
	}

	pad := pivot.Price
	if len(values) > 0 {
		pad = values[len(values)-1]
	}
	for len(values) < horizon {
		values = append(values, pad)
	}

	dates := BusinessDaysAfter(pivot.Date, horizon)
	out := make([]model.ProjectedPoint, horizon)
	for i := range out {
		out[i] = model.ProjectedPoint{Date: dates[i], Price: values[i]}
	}
	return out
}
