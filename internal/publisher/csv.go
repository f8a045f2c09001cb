package publisher

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CSVPublisher writes each report to <Dir>/<sheet>/ as historical.csv,
// projection.csv, combined.csv and chart.json. An existing sheet directory
// is replaced.
type CSVPublisher struct {
	Dir string
}

// NewCSVPublisher creates a publisher rooted at dir.
func NewCSVPublisher(dir string) *CSVPublisher {
	return &CSVPublisher{Dir: dir}
}

func (p *CSVPublisher) Name() string { return "csv" }

// SheetDir returns the directory a sheet is written to.
func (p *CSVPublisher) SheetDir(sheet string) string {
	return filepath.Join(p.Dir, sanitize(sheet))
}

func (p *CSVPublisher) Publish(ctx context.Context, r *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := p.SheetDir(r.Sheet)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear sheet %s: %w", r.Sheet, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sheet %s: %w", r.Sheet, err)
	}

	files := []struct {
		name string
		m    Matrix
	}{
		{"historical.csv", r.Historical},
		{"projection.csv", r.Projection},
		{"combined.csv", r.Combined},
	}
	for _, f := range files {
		if err := writeMatrix(filepath.Join(dir, f.name), f.m); err != nil {
			return err
		}
	}

	chart, err := json.MarshalIndent(r.Chart, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chart: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "chart.json"), chart, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	log.Printf("[INFO] csv: wrote %s (%d chart rows)", dir, r.ChartRows)
	return nil
}

func writeMatrix(path string, m Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, row := range m {
		rec := make([]string, len(row))
		for i, c := range row {
			rec[i] = FormatCell(c)
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// FormatCell renders a matrix cell as text; nil becomes "".
func FormatCell(c any) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

func sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
