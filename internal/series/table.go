package series

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"PivotMirror/internal/model"
)

// RawTable is an untyped tabular price series as read from a file or a
// data source. Cells are kept as strings; "" marks a missing value.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t RawTable) Len() int { return len(t.Rows) }

// ReadCSV parses a CSV stream with a header line. Fully blank rows are
// skipped and short rows are padded with missing cells.
func ReadCSV(r io.Reader) (RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return RawTable{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return RawTable{}, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		// Excel-style exports carry a UTF-8 BOM on the first header.
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := RawTable{Header: header}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) (RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return RawTable{}, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes the table with its header line.
func WriteCSV(w io.Writer, t RawTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ToTable renders a normalized series back into a raw table with the
// canonical Date,Open,High,Low,Close,Volume header. Floats are formatted
// with the shortest exact representation so the round trip is lossless.
func ToTable(s model.Series) RawTable {
	t := RawTable{
		Header: []string{"Date", "Open", "High", "Low", "Close", "Volume"},
		Rows:   make([][]string, len(s)),
	}
	for i, p := range s {
		t.Rows[i] = []string{
			p.Date.Format(model.DateFormat),
			formatFloat(p.Open),
			formatFloat(p.High),
			formatFloat(p.Low),
			formatFloat(p.Close),
			strconv.FormatInt(p.Volume, 10),
		}
	}
	return t
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
