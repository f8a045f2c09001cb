package collector

import (
	"context"
	"strconv"

	"PivotMirror/internal/series"
)

// Fetcher retrieves a raw daily price table for a symbol. period and
// interval follow the Yahoo conventions ("1y", "6mo"; "1d", "1wk").
type Fetcher interface {
	FetchHistory(ctx context.Context, symbol, period, interval string) (series.RawTable, error)
	Name() string
}

// historyHeader is the column layout every fetcher produces.
var historyHeader = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

func formatPrice(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
