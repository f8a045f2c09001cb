package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"PivotMirror/internal/model"
)

const chartJSON = `{"chart":{"result":[{
  "meta":{"gmtoffset":28800},
  "timestamp":[1704245400,1704331800,1704418200],
  "indicators":{
    "quote":[{"open":[10,null,12],"high":[11,null,13],"low":[9,null,11],"close":[10.5,null,12.5],"volume":[1000,null,3000]}],
    "adjclose":[{"adjclose":[10.4,null,12.4]}]
  }}],"error":null}}`

func TestYahooFetcher_FetchHistory(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	tbl, err := f.FetchHistory(context.Background(), "SPX", "1y", "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v8/finance/chart/^GSPC" {
		t.Errorf("expected mapped symbol in path, got %s", gotPath)
	}
	if !strings.Contains(gotQuery, "range=1y") || !strings.Contains(gotQuery, "interval=1d") {
		t.Errorf("unexpected query %s", gotQuery)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}
	// 1704245400 is 2024-01-03 01:30 UTC, 09:30 in UTC+8.
	if tbl.Rows[0][0] != "2024-01-03" || tbl.Rows[0][4] != "10.5" || tbl.Rows[0][5] != "10.4" {
		t.Errorf("unexpected first row %v", tbl.Rows[0])
	}
	if tbl.Rows[1][4] != "" || tbl.Rows[1][6] != "" {
		t.Errorf("expected null bar kept as missing cells, got %v", tbl.Rows[1])
	}
}

func TestYahooFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		fetch  bool
	}{
		{"http error", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found"}}}`, false},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"x","description":"No data found"}}}`, false},
		{"empty", http.StatusOK, `{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[]}}],"error":null}}`, true},
		{"bad json", http.StatusOK, `{`, false},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		}))
		f := NewYahooFetcher("")
		f.BaseURL = srv.URL
		_, err := f.FetchHistory(context.Background(), "2330.TW", "1y", "1d")
		srv.Close()
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		var fe *model.FetchError
		if got := errors.As(err, &fe); got != tt.fetch {
			t.Errorf("%s: FetchError=%v, want %v (%v)", tt.name, got, tt.fetch, err)
		}
	}
}
