package collector

import (
	"context"
	"time"

	"PivotMirror/internal/model"
	"PivotMirror/internal/series"
)

// MockFetcher returns controllable fixed data for development and testing.
// Tables maps a symbol to its table; symbols without an entry get a
// generated series of Days bars around Price unless Strict is set.
type MockFetcher struct {
	Tables map[string]series.RawTable
	Errs   map[string]error
	Price  float64
	Days   int
	Strict bool

	Calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistory(_ context.Context, symbol, _, _ string) (series.RawTable, error) {
	m.Calls = append(m.Calls, symbol)
	if err, ok := m.Errs[symbol]; ok {
		return series.RawTable{}, err
	}
	if t, ok := m.Tables[symbol]; ok {
		return t, nil
	}
	if m.Strict {
		return series.RawTable{}, &model.FetchError{Symbol: symbol}
	}
	return generateMockTable(m.Price, m.Days), nil
}

func generateMockTable(basePrice float64, count int) series.RawTable {
	t := series.RawTable{Header: historyHeader}
	d := model.DateOf(time.Now())
	for len(t.Rows) < count {
		d = d.AddDate(0, 0, -1)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		i := len(t.Rows)
		p := basePrice * (1 + float64(i-count/2)*0.001)
		t.Rows = append(t.Rows, []string{
			d.Format(model.DateFormat),
			formatPrice(p * 0.999),
			formatPrice(p * 1.005),
			formatPrice(p * 0.995),
			formatPrice(p),
			"",
			"1000000",
		})
	}
	return t
}
