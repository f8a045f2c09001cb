package watchlist

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"PivotMirror/internal/model"
	"PivotMirror/internal/series"
)

// Columns of the watchlist file. Only ticker is required.
const (
	colTicker      = "ticker"
	colName        = "name"
	colSheetName   = "sheet_name"
	colCSV         = "csv"
	colPivotDate   = "pivot_date"
	colLookback    = "lookback"
	colHorizon     = "horizon"
	colPivotSide   = "pivot_side"
	colSpreadsheet = "spreadsheet"
	colMarket      = "market"
)

// Load reads a watchlist CSV file.
func Load(path string) ([]model.WatchItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open watchlist: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a watchlist. Rows with an empty ticker are skipped; blank or
// invalid override cells are left zero so run-time defaults apply.
func Read(r io.Reader) ([]model.WatchItem, error) {
	t, err := series.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx[colTicker]; !ok {
		return nil, &model.SchemaError{Column: colTicker, Headers: t.Header}
	}

	var items []model.WatchItem
	for n, row := range t.Rows {
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		ticker := get(colTicker)
		if ticker == "" {
			continue
		}
		item := model.WatchItem{
			Ticker:      ticker,
			Name:        get(colName),
			SheetName:   get(colSheetName),
			CSVPath:     get(colCSV),
			Spreadsheet: get(colSpreadsheet),
			Market:      get(colMarket),
		}
		line := n + 2
		if v := get(colPivotDate); v != "" {
			if d, ok := series.ParseDate(v); ok {
				item.PivotDate = &d
			} else {
				log.Printf("[WARN] watchlist line %d (%s): invalid pivot_date %q, deriving from data", line, ticker, v)
			}
		}
		item.Lookback = positiveInt(get(colLookback), colLookback, line, ticker)
		item.Horizon = positiveInt(get(colHorizon), colHorizon, line, ticker)
		if v := get(colPivotSide); v != "" {
			if side, err := model.ParseSide(v); err == nil {
				item.Side = side
			} else {
				log.Printf("[WARN] watchlist line %d (%s): %v, using default", line, ticker, err)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func positiveInt(v, col string, line int, ticker string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[WARN] watchlist line %d (%s): invalid %s %q, using default", line, ticker, col, v)
		return 0
	}
	return n
}
