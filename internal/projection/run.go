package projection

import (
	"fmt"
	"time"

	"PivotMirror/internal/model"
)

// Options configures a single projection run.
type Options struct {
	LookbackDays int
	HorizonDays  int
	Side         model.Side
	PivotDate    *time.Time
}

// DefaultOptions mirrors the stock configuration: 10 lookback days, 30
// projected business days, pivot on the low.
func DefaultOptions() Options {
	return Options{LookbackDays: 10, HorizonDays: 30, Side: model.SideLow}
}

// Result is the output of Run.
type Result struct {
	Pivot      model.Pivot
	Projection []model.ProjectedPoint
	Combined   []model.CombinedRow
}

// Run selects the pivot, projects and merges the timeline.
func Run(s model.Series, opts Options) (*Result, error) {
	pivot, err := SelectPivot(s, opts.PivotDate, opts.LookbackDays, opts.Side)
	if err != nil {
		return nil, fmt.Errorf("select pivot: %w", err)
	}
	proj := Project(s, pivot, opts.HorizonDays)
	return &Result{
		Pivot:      pivot,
		Projection: proj,
		Combined:   Merge(s, proj),
	}, nil
}
