package collector

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"PivotMirror/internal/cache"
	"PivotMirror/internal/model"
	"PivotMirror/internal/series"
)

func sampleTable() series.RawTable {
	return series.RawTable{
		Header: historyHeader,
		Rows: [][]string{
			{"2024-01-02", "1", "1", "1", "10", "", "5"},
			{"2024-01-03", "1", "1", "1", "11", "", "5"},
		},
	}
}

func newTestCollector(t *testing.T, f Fetcher) *Collector {
	t.Helper()
	c := NewCollector(f, cache.NewFileStore(t.TempDir()))
	return c
}

func TestCollector_FetchesWhenMissingThenUsesCache(t *testing.T) {
	f := &MockFetcher{Tables: map[string]series.RawTable{"AAPL": sampleTable()}, Strict: true}
	c := newTestCollector(t, f)
	item := model.WatchItem{Ticker: "AAPL"}
	c.Suffixes = nil

	got, err := c.Load(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Fetched || got.Symbol != "AAPL" || len(got.Series) != 2 {
		t.Errorf("unexpected first load %+v", got)
	}

	got, err = c.Load(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Fetched {
		t.Error("expected cache hit on second load")
	}
	if len(f.Calls) != 1 {
		t.Errorf("expected one fetch, got %v", f.Calls)
	}
}

func TestCollector_RefetchesStaleCache(t *testing.T) {
	f := &MockFetcher{Tables: map[string]series.RawTable{"AAPL": sampleTable()}, Strict: true}
	c := newTestCollector(t, f)
	c.Suffixes = nil
	item := model.WatchItem{Ticker: "AAPL"}

	if err := c.Store.Save("AAPL", sampleTable()); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	c.Now = func() time.Time { return time.Now().Add(3 * 24 * time.Hour) }

	got, err := c.Load(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Fetched {
		t.Error("expected stale cache to be refetched")
	}
}

func TestCollector_SuffixFallback(t *testing.T) {
	f := &MockFetcher{
		Tables: map[string]series.RawTable{"5443.TW": sampleTable()},
		Errs:   map[string]error{"5443.TWO": errors.New("404")},
		Strict: true,
	}
	c := newTestCollector(t, f)

	got, err := c.Load(context.Background(), model.WatchItem{Ticker: "5443"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Symbol != "5443.TW" {
		t.Errorf("expected .TW symbol, got %s", got.Symbol)
	}
	if want := []string{"5443.TWO", "5443.TW"}; !reflect.DeepEqual(f.Calls, want) {
		t.Errorf("calls: got %v, want %v", f.Calls, want)
	}

	// An explicit market suffix is used verbatim.
	f.Calls = nil
	_, err = c.Load(context.Background(), model.WatchItem{Ticker: "9999", Market: ".TW"})
	var fe *model.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !reflect.DeepEqual(f.Calls, []string{"9999.TW"}) {
		t.Errorf("calls: got %v", f.Calls)
	}
}

func TestCollector_AutoFetchDisabled(t *testing.T) {
	f := &MockFetcher{Strict: true}
	c := newTestCollector(t, f)
	c.AutoFetch = false

	_, err := c.Load(context.Background(), model.WatchItem{Ticker: "AAPL"})
	var fe *model.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if len(f.Calls) != 0 {
		t.Errorf("expected no fetch, got %v", f.Calls)
	}

	// Old cache is used as-is.
	if err := c.Store.Save("AAPL", sampleTable()); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	old := time.Now().Add(-30 * 24 * time.Hour)
	os.Chtimes(c.Store.Path("AAPL"), old, old)
	got, err := c.Load(context.Background(), model.WatchItem{Ticker: "AAPL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Fetched || len(got.Series) != 2 {
		t.Errorf("unexpected load %+v", got)
	}
}

func TestCollector_EmptyFetchIsFetchError(t *testing.T) {
	f := &MockFetcher{Tables: map[string]series.RawTable{"X": {Header: historyHeader}}, Strict: true}
	c := newTestCollector(t, f)
	c.Suffixes = nil

	_, err := c.Load(context.Background(), model.WatchItem{Ticker: "X"})
	var fe *model.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if _, statErr := os.Stat(c.Store.Path("X")); !os.IsNotExist(statErr) {
		t.Error("empty fetch must not be cached")
	}
}

func TestCollector_NullQuotesFallThroughAndAreNotCached(t *testing.T) {
	nulls := series.RawTable{
		Header: historyHeader,
		Rows: [][]string{
			{"2024-01-02", "", "", "", "", "", ""},
			{"2024-01-03", "", "", "", "", "", ""},
		},
	}

	t.Run("all candidates empty", func(t *testing.T) {
		f := &MockFetcher{Tables: map[string]series.RawTable{"X": nulls}, Strict: true}
		c := newTestCollector(t, f)
		c.Suffixes = nil

		for i := 0; i < 2; i++ {
			_, err := c.Load(context.Background(), model.WatchItem{Ticker: "X"})
			var fe *model.FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("load %d: expected FetchError, got %v", i, err)
			}
			if !errors.Is(err, model.ErrEmptySeries) {
				t.Errorf("load %d: expected the empty series cause, got %v", i, err)
			}
		}
		if _, statErr := os.Stat(c.Store.Path("X")); !os.IsNotExist(statErr) {
			t.Error("null quotes must not be cached")
		}
		if want := []string{"X", "X"}; !reflect.DeepEqual(f.Calls, want) {
			t.Errorf("expected a refetch on every load, calls %v", f.Calls)
		}
	})

	t.Run("next suffix used", func(t *testing.T) {
		f := &MockFetcher{
			Tables: map[string]series.RawTable{"6488.TWO": nulls, "6488.TW": sampleTable()},
			Strict: true,
		}
		c := newTestCollector(t, f)

		got, err := c.Load(context.Background(), model.WatchItem{Ticker: "6488"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Symbol != "6488.TW" || len(got.Series) != 2 {
			t.Errorf("unexpected load %+v", got)
		}
		if want := []string{"6488.TWO", "6488.TW"}; !reflect.DeepEqual(f.Calls, want) {
			t.Errorf("calls %v, want %v", f.Calls, want)
		}
	})
}

func TestCollector_SchemaErrorFromCache(t *testing.T) {
	c := newTestCollector(t, &MockFetcher{Strict: true})
	c.AutoFetch = false
	if err := c.Store.Save("BAD", series.RawTable{Header: []string{"When", "Price"}, Rows: [][]string{{"2024-01-01", "1"}}}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	_, err := c.Load(context.Background(), model.WatchItem{Ticker: "BAD"})
	var se *model.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestMockFetcher_Generated(t *testing.T) {
	f := &MockFetcher{Price: 100, Days: 25}
	tbl, err := f.FetchHistory(context.Background(), "ANY", "1y", "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := series.Normalize(tbl)
	if err != nil {
		t.Fatalf("normalize generated table: %v", err)
	}
	if len(s) != 25 {
		t.Errorf("expected 25 bars, got %d", len(s))
	}
}
