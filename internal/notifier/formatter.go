package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"PivotMirror/internal/model"
	"PivotMirror/internal/publisher"
	"PivotMirror/internal/recorder"
)

// Price rounds v to two places for display.
func Price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// ChangePct formats the relative move from base to v as a signed percent.
func ChangePct(base, v float64) string {
	if base == 0 {
		return "n/a"
	}
	d := decimal.NewFromFloat(v).Sub(decimal.NewFromFloat(base)).
		Div(decimal.NewFromFloat(base)).Mul(decimal.NewFromInt(100)).Round(1)
	if d.IsPositive() {
		return "+" + d.StringFixed(1) + "%"
	}
	return d.StringFixed(1) + "%"
}

// FormatProjection summarizes one published report.
func FormatProjection(r *publisher.Report) string {
	var b strings.Builder
	res := r.Result
	last := r.Series.Last()

	title := r.Sheet
	if r.Name != "" {
		title += " " + r.Name
	}
	fmt.Fprintf(&b, "🪞 <b>%s</b> | %s\n\n", html.EscapeString(title), r.RunAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "最新收盘: %s (%s)\n", Price(last.Close), last.Date.Format(model.DateFormat))
	fmt.Fprintf(&b, "Pivot(%s): %s @ %s\n", r.Options.Side, res.Pivot.Date.Format(model.DateFormat), Price(res.Pivot.Price))

	if n := len(res.Projection); n > 0 {
		end := res.Projection[n-1]
		lo, hi := res.Projection[0].Price, res.Projection[0].Price
		for _, p := range res.Projection {
			lo = min(lo, p.Price)
			hi = max(hi, p.Price)
		}
		fmt.Fprintf(&b, "投影 %d 日: %s → %s (%s)\n", n, res.Projection[0].Date.Format(model.DateFormat),
			end.Date.Format(model.DateFormat), ChangePct(last.Close, end.Price))
		fmt.Fprintf(&b, "区间: %s ~ %s\n", Price(lo), Price(hi))
	}
	return b.String()
}

// Outcome is the minimal view of an instrument run the batch summary needs.
type Outcome struct {
	Ticker string
	Sheet  string
	Err    error
}

// FormatBatchSummary reports how a batch went.
func FormatBatchSummary(start time.Time, elapsed time.Duration, outcomes []Outcome) string {
	var b strings.Builder
	ok := 0
	for _, o := range outcomes {
		if o.Err == nil {
			ok++
		}
	}
	fmt.Fprintf(&b, "📊 <b>批次完成</b> | %s\n\n", start.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "成功 %d / %d，耗时 %s\n", ok, len(outcomes), elapsed.Round(time.Second))
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(&b, "❌ %s: %s\n", html.EscapeString(o.Ticker), html.EscapeString(o.Err.Error()))
		}
	}
	return b.String()
}

// FormatWatchlist lists the configured instruments.
func FormatWatchlist(items []model.WatchItem) string {
	if len(items) == 0 {
		return "观察清单为空"
	}
	var b strings.Builder
	b.WriteString("📋 <b>观察清单</b>\n\n")
	for _, it := range items {
		fmt.Fprintf(&b, "• %s", html.EscapeString(it.Ticker))
		if it.Name != "" {
			fmt.Fprintf(&b, " %s", html.EscapeString(it.Name))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatRecentRuns lists recorded runs, newest first.
func FormatRecentRuns(runs []recorder.RunRecord) string {
	if len(runs) == 0 {
		return "暂无运行记录"
	}
	var b strings.Builder
	b.WriteString("🕒 <b>最近运行</b>\n\n")
	for _, r := range runs {
		if r.Status != recorder.StatusOK {
			fmt.Fprintf(&b, "❌ %s %s %s\n", r.StartedAt.Format("01-02 15:04"),
				html.EscapeString(r.Ticker), html.EscapeString(r.Error))
			continue
		}
		fmt.Fprintf(&b, "✅ %s %s pivot %s @ %s, %d 日\n", r.StartedAt.Format("01-02 15:04"),
			html.EscapeString(r.Ticker), r.PivotDate.Format(model.DateFormat), Price(r.PivotPrice), r.Horizon)
	}
	return b.String()
}
