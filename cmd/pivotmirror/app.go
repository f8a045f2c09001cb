package main

import (
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"PivotMirror/internal/cache"
	"PivotMirror/internal/collector"
	"PivotMirror/internal/config"
	"PivotMirror/internal/model"
	"PivotMirror/internal/notifier"
	"PivotMirror/internal/pipeline"
	"PivotMirror/internal/publisher"
	"PivotMirror/internal/recorder"
	"PivotMirror/internal/watchlist"
)

// app wires the components shared by the subcommands.
type app struct {
	cfg      *config.Config
	recorder recorder.Recorder
	telegram *notifier.TelegramNotifier
	pipeline *pipeline.Pipeline
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// newApp builds the pipeline from cfg. Metrics are registered on reg when
// it is not nil.
func newApp(cfg *config.Config, reg prometheus.Registerer) *app {
	var fetcher collector.Fetcher
	switch cfg.DataSource.Source {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100, Days: 250}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	col := collector.NewCollector(fetcher, cache.NewFileStore(cfg.DataSource.DataDir))
	col.AutoFetch = *cfg.DataSource.AutoFetch
	col.StalenessDays = cfg.StalenessDays()
	col.Period = cfg.DataSource.Period
	col.Interval = cfg.DataSource.Interval
	if cfg.DataSource.Suffixes != nil {
		col.Suffixes = cfg.DataSource.Suffixes
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		} else {
			rec = sr
		}
	}

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	pubs := []publisher.Publisher{publisher.NewCSVPublisher(cfg.Output.Dir)}
	if tn.Enabled() {
		pubs = append(pubs, tn)
	} else {
		log.Println("[INFO] telegram not configured, notifications disabled")
	}

	p := pipeline.New(col, rec, cfg.Options(), pubs...)
	p.RunLogDir = cfg.Output.Dir
	if reg != nil {
		p.Metrics = pipeline.NewMetrics(reg)
	}
	return &app{cfg: cfg, recorder: rec, telegram: tn, pipeline: p}
}

func (a *app) watchlist() ([]model.WatchItem, error) {
	return watchlist.Load(a.cfg.Watchlist.Path)
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		log.Printf("[WARN] close recorder: %v", err)
	}
}
