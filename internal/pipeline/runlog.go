package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"PivotMirror/internal/collector"
	"PivotMirror/internal/model"
)

var runLogHeader = []string{"ticker", "sheet", "csv", "status", "pivot_date", "pivot_price", "error"}

// RunLogName is the file name of the run log for a batch started at t.
func RunLogName(t time.Time) string {
	return "run_log_" + t.Format("20060102_150405") + ".csv"
}

// WriteRunLog writes one row per outcome to dir and returns the file path.
func WriteRunLog(dir string, startedAt time.Time, outcomes []Outcome) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run log dir: %w", err)
	}
	path := filepath.Join(dir, RunLogName(startedAt))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create run log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(runLogHeader); err != nil {
		return "", err
	}
	for _, o := range outcomes {
		rec := o.Record
		csvPath := rec.CachePath
		if csvPath == "" {
			csvPath = collector.CacheKey(o.Item)
		}
		var pivotDate, pivotPrice string
		if !rec.PivotDate.IsZero() {
			pivotDate = rec.PivotDate.Format(model.DateFormat)
			pivotPrice = strconv.FormatFloat(rec.PivotPrice, 'f', -1, 64)
		}
		if err := w.Write([]string{rec.Ticker, rec.Sheet, csvPath, rec.Status, pivotDate, pivotPrice, rec.Error}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write run log: %w", err)
	}
	return path, f.Close()
}
