package series

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"PivotMirror/internal/model"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func mustRead(t *testing.T, csv string) RawTable {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return tbl
}

func TestResolveSchema_Aliases(t *testing.T) {
	s, err := ResolveSchema([]string{"Datetime", "Open", "Adj Close", "volume"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Date != 0 || s.Close != 2 || s.Volume != 3 || s.Open != 1 {
		t.Errorf("unexpected schema %+v", s)
	}
	if !s.AdjustedClose {
		t.Error("expected close resolved from Adj Close")
	}
	if s.High != -1 || s.Low != -1 {
		t.Errorf("expected missing high/low, got %+v", s)
	}

	// Plain close wins over the adjusted alias.
	s, err = ResolveSchema([]string{"DATE", "Adj Close", "CLOSE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Close != 2 || s.AdjustedClose {
		t.Errorf("expected plain close at 2, got %+v", s)
	}
}

func TestResolveSchema_Missing(t *testing.T) {
	tests := []struct {
		header []string
		column string
	}{
		{[]string{"Time", "Close"}, "date"},
		{[]string{"Date", "Open", "High"}, "close"},
		{nil, "date"},
	}
	for _, tt := range tests {
		_, err := ResolveSchema(tt.header)
		var se *model.SchemaError
		if !errors.As(err, &se) {
			t.Errorf("%v: expected SchemaError, got %v", tt.header, err)
			continue
		}
		if se.Column != tt.column {
			t.Errorf("%v: expected missing %q, got %q", tt.header, tt.column, se.Column)
		}
	}
}

func TestNormalize_SortDedupeAndFill(t *testing.T) {
	tbl := mustRead(t, `Date,Open,High,Low,Close,Volume
2024-01-05,,,,14,300
2024-01-02,9,11,8,10,100
not-a-date,1,1,1,1,1
2024-01-03,,,,,
2024-01-04,1,1,1,99,1
2024-01-04,12.5,13,12,12,200
`)
	s, err := Normalize(tbl)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := model.Series{
		{Date: day(2024, 1, 2), Open: 9, High: 11, Low: 8, Close: 10, Volume: 100},
		{Date: day(2024, 1, 3), Open: 11, High: 11, Low: 11, Close: 11, Volume: 0},
		{Date: day(2024, 1, 4), Open: 12.5, High: 13, Low: 12, Close: 12, Volume: 200},
		{Date: day(2024, 1, 5), Open: 14, High: 14, Low: 14, Close: 14, Volume: 300},
	}
	if !reflect.DeepEqual(s, want) {
		t.Errorf("got  %+v\nwant %+v", s, want)
	}
}

func TestNormalize_EdgeGapsAndSynthesizedColumns(t *testing.T) {
	tbl := mustRead(t, `date,adj close
2024-02-01,
2024-02-02,x
2024-02-05,20
2024-02-06,
2024-02-07,26
2024-02-08,
`)
	s, err := Normalize(tbl)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	wantCloses := []float64{20, 20, 20, 23, 26, 26}
	if got := s.Closes(); !reflect.DeepEqual(got, wantCloses) {
		t.Errorf("closes: got %v, want %v", got, wantCloses)
	}
	for _, p := range s {
		if p.Open != p.Close || p.High != p.Close || p.Low != p.Close {
			t.Errorf("%s: expected OHL synthesized from close, got %+v", p.Date.Format(model.DateFormat), p)
		}
		if p.Volume != 0 {
			t.Errorf("%s: expected zero volume, got %d", p.Date.Format(model.DateFormat), p.Volume)
		}
	}
}

func TestNormalize_VolumeBounds(t *testing.T) {
	tbl := mustRead(t, `Date,Close,Volume
2024-01-02,10,1e20
2024-01-03,10,-5
2024-01-04,10,1234.9
`)
	s, err := Normalize(tbl)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := []int64{math.MaxInt64, 0, 1234}
	for i, p := range s {
		if p.Volume != want[i] {
			t.Errorf("%s: volume %d, want %d", p.Date.Format(model.DateFormat), p.Volume, want[i])
		}
	}
}

func TestNormalize_Empty(t *testing.T) {
	tests := []string{
		"Date,Close\n",
		"Date,Close\nbad,1\n",
		"Date,Close\n2024-01-01,\n2024-01-02,n/a\n",
	}
	for _, in := range tests {
		_, err := Normalize(mustRead(t, in))
		if !errors.Is(err, model.ErrEmptySeries) {
			t.Errorf("%q: expected ErrEmptySeries, got %v", in, err)
		}
	}
}

func TestNormalize_SchemaError(t *testing.T) {
	_, err := Normalize(mustRead(t, "Day,Price\n2024-01-01,1\n"))
	var se *model.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	tbl := mustRead(t, `Date,Open,High,Low,Close,Volume
2024-03-01,1.1,1.3,0.9,1.2,10
2024-03-04,,,,,
2024-03-05,1.05,1.4,1.0,0.1,20
2024-03-06,,,,1.0000000001,
`)
	first, err := Normalize(tbl)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	second, err := Normalize(ToTable(first))
	if err != nil {
		t.Fatalf("renormalize: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("not idempotent:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestParseDate_Layouts(t *testing.T) {
	want := day(2024, 7, 1)
	for _, in := range []string{"2024-07-01", "2024-7-1", "2024/07/01", "2024-07-01 00:00:00", "2024-07-01T09:30:00+08:00", "07/01/2024"} {
		got, ok := ParseDate(in)
		if !ok || !got.Equal(want) {
			t.Errorf("%q: got %v (ok=%v)", in, got, ok)
		}
	}
	if _, ok := ParseDate("yesterday"); ok {
		t.Error("expected unparseable date")
	}
}

func TestReadCSV_BOMAndBlankRows(t *testing.T) {
	tbl := mustRead(t, "\ufeffDate,Close\n2024-01-01,1\n,\n2024-01-02\n")
	if tbl.Header[0] != "Date" {
		t.Errorf("expected BOM stripped, got %q", tbl.Header[0])
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Rows[1][1] != "" {
		t.Errorf("expected short row padded, got %q", tbl.Rows[1])
	}
}
