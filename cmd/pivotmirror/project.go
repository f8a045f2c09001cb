package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"PivotMirror/internal/model"
	"PivotMirror/internal/projection"
	"PivotMirror/internal/publisher"
	"PivotMirror/internal/series"
)

// projectCmd projects a single CSV file without touching the cache.
type projectCmd struct {
	lookback int
	horizon  int
	side     string
	pivot    string
	sheet    string
	publish  bool
}

func (*projectCmd) Name() string     { return "project" }
func (*projectCmd) Synopsis() string { return "projects a single price CSV file" }
func (*projectCmd) Usage() string {
	return `project [flags] <file.csv>

Normalizes the price file, mirrors it around the pivot and prints the
combined timeline. With -publish the report is also written to the output
directory. Unset flags fall back to the configuration.
`
}

func (c *projectCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.lookback, "lookback", 0, "lookback days used to size the pivot window")
	f.IntVar(&c.horizon, "horizon", -1, "number of business days to project")
	f.StringVar(&c.side, "side", "", "pivot side: low or high")
	f.StringVar(&c.pivot, "pivot", "", "explicit pivot date (YYYY-MM-DD)")
	f.StringVar(&c.sheet, "sheet", "", "report name, defaults to the file name")
	f.BoolVar(&c.publish, "publish", false, "write the report to the output directory")
}

func (c *projectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	opts, err := c.options(cfg.Options())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	file := f.Arg(0)
	table, err := series.ReadCSVFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	s, err := series.Normalize(table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not normalize %s: %v\n", file, err)
		return subcommands.ExitFailure
	}
	res, err := projection.Run(s, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("pivot %s @ %s (%s), %d business days projected\n",
		res.Pivot.Date.Format(model.DateFormat), decimal.NewFromFloat(res.Pivot.Price).StringFixed(2), opts.Side, len(res.Projection))
	if err := printCombined(os.Stdout, res.Combined); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.publish {
		name := c.sheet
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}
		item := model.WatchItem{Ticker: name, CSVPath: file}
		r := publisher.NewReport(uuid.NewString(), time.Now(), item, opts, s, res)
		pub := publisher.NewCSVPublisher(cfg.Output.Dir)
		if err := pub.Publish(ctx, r); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(os.Stderr, "published to %s\n", pub.SheetDir(r.Sheet))
	}
	return subcommands.ExitSuccess
}

func (c *projectCmd) options(opts projection.Options) (projection.Options, error) {
	if c.lookback > 0 {
		opts.LookbackDays = c.lookback
	}
	if c.horizon >= 0 {
		opts.HorizonDays = c.horizon
	}
	if c.side != "" {
		side, err := model.ParseSide(c.side)
		if err != nil {
			return opts, err
		}
		opts.Side = side
	}
	if c.pivot != "" {
		d, ok := series.ParseDate(c.pivot)
		if !ok {
			return opts, fmt.Errorf("invalid pivot date %q", c.pivot)
		}
		opts.PivotDate = &d
	}
	return opts, nil
}

func printCombined(w io.Writer, rows []model.CombinedRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "All_Date\tHist_Close\tProjected\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", r.Date.Format(model.DateFormat), fixed(r.HistClose.Float64, r.HistClose.Valid), fixed(r.Projected.Float64, r.Projected.Valid))
	}
	return tw.Flush()
}

func fixed(v float64, valid bool) string {
	if !valid {
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}
