package model

import "time"

// WatchItem is one instrument of the watchlist. Zero values mean "use
// the configured default".
type WatchItem struct {
	Ticker      string
	Name        string
	SheetName   string
	CSVPath     string
	PivotDate   *time.Time
	Lookback    int
	Horizon     int
	Side        Side
	Spreadsheet string
	Market      string
}

// Sheet returns the report name, falling back to the ticker.
func (w WatchItem) Sheet() string {
	if w.SheetName != "" {
		return w.SheetName
	}
	return w.Ticker
}

// Symbol returns the market-data symbol, ticker plus market suffix.
func (w WatchItem) Symbol() string { return w.Ticker + w.Market }
