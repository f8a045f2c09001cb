package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PivotMirror/internal/cache"
	"PivotMirror/internal/collector"
	"PivotMirror/internal/model"
	"PivotMirror/internal/projection"
	"PivotMirror/internal/publisher"
	"PivotMirror/internal/recorder"
	"PivotMirror/internal/series"
)

type capturePublisher struct {
	name    string
	err     error
	reports []*publisher.Report
}

func (c *capturePublisher) Name() string { return c.name }

func (c *capturePublisher) Publish(_ context.Context, r *publisher.Report) error {
	c.reports = append(c.reports, r)
	return c.err
}

type memRecorder struct {
	capturePublisher
	mu   sync.Mutex
	runs []recorder.RunRecord
}

func (m *memRecorder) RecordRun(rec *recorder.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *rec)
	return nil
}

func (m *memRecorder) RecentRuns(int) ([]recorder.RunRecord, error) { return m.runs, nil }
func (m *memRecorder) Close() error                                 { return nil }

func priceTable() series.RawTable {
	return series.RawTable{
		Header: []string{"Date", "Open", "High", "Low", "Close", "Volume"},
		Rows: [][]string{
			{"2024-01-02", "10", "10", "10", "10", "100"},
			{"2024-01-03", "12", "12", "12", "12", "100"},
			{"2024-01-04", "9", "9", "9", "9", "100"},
			{"2024-01-05", "11", "11", "11", "11", "100"},
		},
	}
}

func newTestPipeline(t *testing.T, pubs ...publisher.Publisher) (*Pipeline, *memRecorder, *collector.MockFetcher) {
	t.Helper()
	f := &collector.MockFetcher{
		Tables: map[string]series.RawTable{"GOOD": priceTable()},
		Errs:   map[string]error{"BAD": errors.New("upstream down")},
		Strict: true,
	}
	col := collector.NewCollector(f, cache.NewFileStore(t.TempDir()))
	col.Suffixes = nil

	rec := &memRecorder{capturePublisher: capturePublisher{name: "mem"}}
	opts := projection.DefaultOptions()
	opts.HorizonDays = 5
	p := New(col, rec, opts, pubs...)
	p.Metrics = NewMetrics(prometheus.NewRegistry())
	p.RunLogDir = t.TempDir()
	return p, rec, f
}

func TestPipeline_Options(t *testing.T) {
	p := &Pipeline{Defaults: projection.DefaultOptions()}
	d := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	got := p.Options(model.WatchItem{Ticker: "X"})
	assert.Equal(t, projection.DefaultOptions(), got)

	got = p.Options(model.WatchItem{Ticker: "X", Lookback: 4, Horizon: 7, Side: model.SideHigh, PivotDate: &d})
	assert.Equal(t, 4, got.LookbackDays)
	assert.Equal(t, 7, got.HorizonDays)
	assert.Equal(t, model.SideHigh, got.Side)
	require.NotNil(t, got.PivotDate)
	assert.True(t, got.PivotDate.Equal(d))
}

func TestPipeline_RunItem(t *testing.T) {
	pub := &capturePublisher{name: "capture"}
	p, rec, _ := newTestPipeline(t, pub)

	out := p.RunItem(context.Background(), "batch-1", model.WatchItem{Ticker: "GOOD", SheetName: "Good Co"})
	require.NoError(t, out.Err)
	require.NotNil(t, out.Report)

	// The low of the series anchors the mirror.
	assert.Equal(t, 9.0, out.Report.Result.Pivot.Price)
	assert.Equal(t, "2024-01-04", out.Record.PivotDate.Format(model.DateFormat))
	assert.Equal(t, 5, out.Record.Horizon)
	assert.Equal(t, recorder.StatusOK, out.Record.Status)
	assert.True(t, out.Record.Fetched)
	assert.Equal(t, "GOOD", out.Record.Symbol)
	assert.NotEmpty(t, out.Record.RunID)
	assert.Equal(t, "Good Co", out.Report.Sheet)

	require.Len(t, pub.reports, 1)
	require.Len(t, rec.reports, 1)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, "batch-1", rec.runs[0].BatchID)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.RunsTotal.WithLabelValues(recorder.StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.LoadsTotal.WithLabelValues("fetch")))
}

func TestPipeline_PublishFailureFailsItem(t *testing.T) {
	pub := &capturePublisher{name: "broken", err: errors.New("disk full")}
	p, rec, _ := newTestPipeline(t, pub)

	out := p.RunItem(context.Background(), "b", model.WatchItem{Ticker: "GOOD"})
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "publish broken")
	// The other sinks still received the report.
	assert.Len(t, rec.reports, 1)
	assert.Equal(t, recorder.StatusFailed, rec.runs[0].Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.PublishErrors.WithLabelValues("broken")))
}

func TestPipeline_RunBatchIsolatesFailures(t *testing.T) {
	p, rec, f := newTestPipeline(t)

	b := p.RunBatch(context.Background(), []model.WatchItem{
		{Ticker: "BAD"},
		{Ticker: "GOOD"},
	})
	require.Len(t, b.Outcomes, 2)
	assert.Equal(t, 1, b.Failed())
	assert.NotEmpty(t, b.ID)

	var fe *model.FetchError
	assert.True(t, errors.As(b.Outcomes[0].Err, &fe))
	assert.NoError(t, b.Outcomes[1].Err)
	assert.Equal(t, []string{"BAD", "GOOD"}, f.Calls)

	require.Len(t, rec.runs, 2)
	assert.Equal(t, recorder.StatusFailed, rec.runs[0].Status)
	assert.Contains(t, rec.runs[0].Error, "upstream down")
	assert.Equal(t, b.ID, rec.runs[1].BatchID)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.RunsTotal.WithLabelValues(recorder.StatusFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.RunsTotal.WithLabelValues(recorder.StatusOK)))

	require.NotEmpty(t, b.RunLogPath)
	data, err := os.ReadFile(b.RunLogPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ticker,sheet,csv,status,pivot_date,pivot_price,error", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "BAD,BAD,"))
	assert.Contains(t, lines[1], ",FAILED,,,")
	assert.Contains(t, lines[2], ",OK,2024-01-04,9,")
}

func TestPipeline_RunBatchStopsOnCancel(t *testing.T) {
	p, _, f := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := p.RunBatch(ctx, []model.WatchItem{{Ticker: "GOOD"}, {Ticker: "BAD"}})
	assert.Empty(t, b.Outcomes)
	assert.Empty(t, f.Calls)
}

func TestRunLogName(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "run_log_20240506_070809.csv", RunLogName(at))
}
