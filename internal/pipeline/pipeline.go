package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"PivotMirror/internal/collector"
	"PivotMirror/internal/model"
	"PivotMirror/internal/projection"
	"PivotMirror/internal/publisher"
	"PivotMirror/internal/recorder"
)

// Pipeline runs watch items end to end: load, project, publish, record.
type Pipeline struct {
	Collector  *collector.Collector
	Publishers []publisher.Publisher
	Recorder   recorder.Recorder
	Metrics    *Metrics
	Defaults   projection.Options
	// RunLogDir receives one run log CSV per batch; empty disables it.
	RunLogDir string
	Now       func() time.Time
}

// New creates a Pipeline. The recorder also receives every report.
func New(col *collector.Collector, rec recorder.Recorder, defaults projection.Options, pubs ...publisher.Publisher) *Pipeline {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Pipeline{
		Collector:  col,
		Publishers: pubs,
		Recorder:   rec,
		Defaults:   defaults,
		Now:        time.Now,
	}
}

// Options resolves the projection options of item over the defaults.
func (p *Pipeline) Options(item model.WatchItem) projection.Options {
	opts := p.Defaults
	if item.Lookback > 0 {
		opts.LookbackDays = item.Lookback
	}
	if item.Horizon > 0 {
		opts.HorizonDays = item.Horizon
	}
	if item.Side != "" {
		opts.Side = item.Side
	}
	if item.PivotDate != nil {
		opts.PivotDate = item.PivotDate
	}
	return opts
}

// Outcome is the result of one instrument within a batch.
type Outcome struct {
	Item   model.WatchItem
	Record recorder.RunRecord
	Report *publisher.Report
	Err    error
}

// RunItem loads, projects and publishes one instrument and records the
// run. The returned outcome carries the error, if any.
func (p *Pipeline) RunItem(ctx context.Context, batchID string, item model.WatchItem) Outcome {
	start := p.Now()
	out := Outcome{
		Item: item,
		Record: recorder.RunRecord{
			RunID:     uuid.NewString(),
			BatchID:   batchID,
			Ticker:    item.Ticker,
			Sheet:     item.Sheet(),
			StartedAt: start,
		},
	}
	out.Report, out.Err = p.run(ctx, item, &out.Record)

	rec := &out.Record
	rec.FinishedAt = p.Now()
	rec.Status = recorder.StatusOK
	if out.Err != nil {
		rec.Status = recorder.StatusFailed
		rec.Error = out.Err.Error()
		log.Printf("[ERROR] %s: %v", item.Ticker, out.Err)
	}
	p.Metrics.observeRun(rec.Status, rec.FinishedAt.Sub(start).Seconds(), rec.Horizon)
	if err := p.Recorder.RecordRun(rec); err != nil {
		log.Printf("[ERROR] record run %s: %v", item.Ticker, err)
	}
	return out
}

func (p *Pipeline) run(ctx context.Context, item model.WatchItem, rec *recorder.RunRecord) (*publisher.Report, error) {
	loaded, err := p.Collector.Load(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	p.Metrics.observeLoad(loaded.Fetched)
	rec.Symbol, rec.CachePath, rec.Fetched = loaded.Symbol, loaded.CachePath, loaded.Fetched

	opts := p.Options(item)
	res, err := projection.Run(loaded.Series, opts)
	if err != nil {
		return nil, err
	}
	rec.PivotDate, rec.PivotPrice = res.Pivot.Date, res.Pivot.Price
	rec.Horizon, rec.Rows = len(res.Projection), len(res.Combined)

	report := publisher.NewReport(rec.RunID, rec.StartedAt, item, opts, loaded.Series, res)
	log.Printf("[INFO] %s", report.Summary())

	var errs []error
	for _, pub := range p.sinks() {
		if err := pub.Publish(ctx, report); err != nil {
			p.Metrics.observePublishError(pub.Name())
			errs = append(errs, fmt.Errorf("publish %s: %w", pub.Name(), err))
		}
	}
	return report, errors.Join(errs...)
}

func (p *Pipeline) sinks() []publisher.Publisher {
	return append(append([]publisher.Publisher(nil), p.Publishers...), p.Recorder)
}

// Batch is the result of RunBatch.
type Batch struct {
	ID         string
	StartedAt  time.Time
	Elapsed    time.Duration
	Outcomes   []Outcome
	RunLogPath string
}

// Failed returns the number of failed instruments.
func (b *Batch) Failed() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// RunBatch runs items sequentially. A failing instrument is logged and
// recorded and the batch moves on; only cancellation stops it early.
func (p *Pipeline) RunBatch(ctx context.Context, items []model.WatchItem) *Batch {
	b := &Batch{ID: uuid.NewString(), StartedAt: p.Now()}
	log.Printf("[INFO] batch %s: %d instruments", b.ID, len(items))

	for _, item := range items {
		if ctx.Err() != nil {
			log.Printf("[WARN] batch %s cancelled, %d instruments skipped", b.ID, len(items)-len(b.Outcomes))
			break
		}
		b.Outcomes = append(b.Outcomes, p.RunItem(ctx, b.ID, item))
	}

	b.Elapsed = p.Now().Sub(b.StartedAt)
	p.Metrics.observeBatch(float64(p.Now().Unix()))
	log.Printf("[INFO] batch %s done: %d ok, %d failed in %s", b.ID, len(b.Outcomes)-b.Failed(), b.Failed(), b.Elapsed.Round(time.Millisecond))

	if p.RunLogDir != "" {
		path, err := WriteRunLog(p.RunLogDir, b.StartedAt, b.Outcomes)
		if err != nil {
			log.Printf("[ERROR] write run log: %v", err)
		} else {
			b.RunLogPath = path
			log.Printf("[INFO] run log written to %s", path)
		}
	}
	return b
}
