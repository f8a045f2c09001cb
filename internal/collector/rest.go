package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"PivotMirror/internal/model"
	"PivotMirror/internal/netutil"
	"PivotMirror/internal/series"
)

// RESTFetcher implements Fetcher against a bars REST API exposing
// /api/v1/bars/{daily,weekly}?symbol=&limit=.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  netutil.NewHTTPClient(proxyURL),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64    `json:"timestamp"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    *float64 `json:"volume"`
}

// FetchHistory requests enough bars to cover period.
func (f *RESTFetcher) FetchHistory(ctx context.Context, symbol, period, interval string) (series.RawTable, error) {
	days, err := PeriodDays(period)
	if err != nil {
		return series.RawTable{}, err
	}
	kind, limit := "daily", days
	if interval == "1wk" {
		kind, limit = "weekly", days/7+1
	}
	endpoint := fmt.Sprintf("%s/api/v1/bars/%s?symbol=%s&limit=%d", f.BaseURL, kind, url.QueryEscape(symbol), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return series.RawTable{}, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return series.RawTable{}, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return series.RawTable{}, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, truncate(body, 200))
	}
	var bars []restBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return series.RawTable{}, fmt.Errorf("decode bars: %w", err)
	}
	if len(bars) == 0 {
		return series.RawTable{}, &model.FetchError{Symbol: symbol}
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	t := series.RawTable{Header: historyHeader}
	for _, b := range bars {
		t.Rows = append(t.Rows, []string{
			time.Unix(b.Timestamp, 0).UTC().Format(model.DateFormat),
			ptr(b.Open), ptr(b.High), ptr(b.Low), ptr(b.Close), "", ptr(b.Volume),
		})
	}
	return t, nil
}

// PeriodDays converts a Yahoo-style period ("5d", "3mo", "1y", "ytd",
// "max") into calendar days.
func PeriodDays(period string) (int, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case "ytd":
		now := time.Now()
		return now.YearDay(), nil
	case "max":
		return 365 * 20, nil
	}
	for _, u := range []struct {
		suffix string
		days   int
	}{{"mo", 30}, {"d", 1}, {"wk", 7}, {"y", 365}} {
		if strings.HasSuffix(p, u.suffix) {
			n, err := strconv.Atoi(strings.TrimSuffix(p, u.suffix))
			if err != nil || n <= 0 {
				break
			}
			return n * u.days, nil
		}
	}
	return 0, fmt.Errorf("invalid period %q", period)
}

func ptr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatPrice(*v)
}
