package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/subcommands"

	"PivotMirror/internal/model"
)

// batchCmd runs the watchlist once.
type batchCmd struct {
	watchlist string
}

func (*batchCmd) Name() string     { return "batch" }
func (*batchCmd) Synopsis() string { return "projects every watchlist instrument once" }
func (*batchCmd) Usage() string {
	return `batch [-watchlist file] [ticker...]

Loads, projects and publishes each watchlist instrument, or only the given
tickers. Failures are reported per instrument and do not stop the batch.
Exits non-zero when any instrument failed.
`
}

func (c *batchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.watchlist, "watchlist", "", "watchlist CSV, overrides watchlist.path")
}

func (c *batchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.watchlist != "" {
		cfg.Watchlist.Path = c.watchlist
	}
	a := newApp(cfg, nil)
	defer a.Close()

	items, err := a.watchlist()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if f.NArg() > 0 {
		items = pick(items, f.Args())
	}
	if len(items) == 0 {
		fmt.Fprintln(os.Stderr, "Warning: nothing to run.")
		return subcommands.ExitSuccess
	}

	b := a.pipeline.RunBatch(ctx, items)
	for _, o := range b.Outcomes {
		if o.Err != nil {
			fmt.Printf("%-10s FAILED  %v\n", o.Item.Ticker, o.Err)
			continue
		}
		fmt.Printf("%-10s OK      %s\n", o.Item.Ticker, o.Report.Summary())
	}
	if b.RunLogPath != "" {
		log.Printf("[INFO] run log: %s", b.RunLogPath)
	}
	if b.Failed() > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func pick(items []model.WatchItem, tickers []string) []model.WatchItem {
	var out []model.WatchItem
	for _, t := range tickers {
		found := false
		for _, it := range items {
			if strings.EqualFold(it.Ticker, t) {
				out = append(out, it)
				found = true
			}
		}
		if !found {
			// Unlisted tickers run with the configured defaults.
			out = append(out, model.WatchItem{Ticker: t})
		}
	}
	return out
}
