package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"PivotMirror/internal/cache"
	"PivotMirror/internal/model"
	"PivotMirror/internal/series"
)

// DefaultSuffixes are the market suffixes tried, in order, for a ticker
// without an explicit market: OTC then listed Taiwan boards, then bare.
var DefaultSuffixes = []string{".TWO", ".TW", ""}

// Collector loads a normalized series for a watch item, refetching the
// cached copy when the freshness gate says it is stale.
type Collector struct {
	Fetcher       Fetcher
	Store         *cache.FileStore
	AutoFetch     bool
	StalenessDays int
	Period        string
	Interval      string
	Suffixes      []string
	Now           func() time.Time
}

// NewCollector creates a new Collector with auto-fetch enabled and the
// default policy (3-day staleness, one year of daily bars).
func NewCollector(fetcher Fetcher, store *cache.FileStore) *Collector {
	return &Collector{
		Fetcher:       fetcher,
		Store:         store,
		AutoFetch:     true,
		StalenessDays: cache.DefaultStalenessDays,
		Period:        "1y",
		Interval:      "1d",
		Suffixes:      DefaultSuffixes,
		Now:           time.Now,
	}
}

// Loaded is the outcome of Load.
type Loaded struct {
	Series    model.Series
	Symbol    string // symbol actually fetched, "" on a cache hit
	CachePath string
	Fetched   bool
}

// CacheKey returns the cache key of a watch item: its CSV override when
// set, otherwise the bare ticker.
func CacheKey(item model.WatchItem) string {
	if item.CSVPath != "" {
		return item.CSVPath
	}
	return item.Ticker
}

// Load returns the normalized series for item.
func (c *Collector) Load(ctx context.Context, item model.WatchItem) (*Loaded, error) {
	key := CacheKey(item)
	entry, err := c.Store.Lookup(key)
	if err != nil {
		return nil, err
	}
	out := &Loaded{CachePath: entry.Path}

	switch {
	case c.AutoFetch && cache.NeedsRefresh(entry.LastWrite, c.Now(), c.StalenessDays):
		if entry.LastWrite == nil {
			log.Printf("[INFO] %s: no cached series, fetching", item.Ticker)
		} else {
			log.Printf("[INFO] %s: cache written %s is stale, fetching", item.Ticker, humanize.Time(*entry.LastWrite))
		}
		table, symbol, err := c.fetch(ctx, item)
		if err != nil {
			return nil, err
		}
		if err := c.Store.Save(key, table); err != nil {
			return nil, fmt.Errorf("store %s: %w", item.Ticker, err)
		}
		out.Symbol, out.Fetched = symbol, true
	case entry.LastWrite == nil:
		return nil, &model.FetchError{Symbol: item.Ticker, Err: errors.New("no cached series and auto fetch disabled")}
	default:
		log.Printf("[INFO] %s: using cache written %s", item.Ticker, humanize.Time(*entry.LastWrite))
	}

	table, err := c.Store.Load(key)
	if err != nil {
		return nil, err
	}
	s, err := series.Normalize(table)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", item.Ticker, err)
	}
	out.Series = s
	return out, nil
}

// fetch downloads the item's history. With an explicit market the symbol
// is fixed; otherwise each configured suffix is tried until one yields
// usable rows.
func (c *Collector) fetch(ctx context.Context, item model.WatchItem) (series.RawTable, string, error) {
	candidates := []string{item.Symbol()}
	if item.Market == "" && len(c.Suffixes) > 0 {
		candidates = candidates[:0]
		for _, suf := range c.Suffixes {
			candidates = append(candidates, item.Ticker+suf)
		}
	}

	var errs []error
	for _, sym := range candidates {
		t, err := c.Fetcher.FetchHistory(ctx, sym, c.Period, c.Interval)
		if err == nil {
			err = usable(sym, t)
		}
		if err == nil {
			log.Printf("[INFO] %s: fetched %d rows as %s from %s", item.Ticker, t.Len(), sym, c.Fetcher.Name())
			return t, sym, nil
		}
		if ctx.Err() != nil {
			return series.RawTable{}, "", &model.FetchError{Symbol: sym, Err: ctx.Err()}
		}
		log.Printf("[WARN] %s: no data for %s: %v", item.Ticker, sym, err)
		errs = append(errs, err)
	}
	return series.RawTable{}, "", &model.FetchError{Symbol: item.Ticker, Err: errors.Join(errs...)}
}

// usable rejects tables that would normalize to nothing, such as the null
// quotes returned for halted or unknown symbols, so they are never cached.
func usable(sym string, t series.RawTable) error {
	if t.Len() == 0 {
		return fmt.Errorf("%s: no data", sym)
	}
	if _, err := series.Normalize(t); err != nil {
		return fmt.Errorf("%s: no usable data: %w", sym, err)
	}
	return nil
}
