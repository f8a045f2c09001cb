package publisher

import (
	"fmt"
	"time"
)

// ChartSpec describes the line chart a sink should draw over the
// combined timeline.
type ChartSpec struct {
	Title    string   `json:"title"`
	Type     string   `json:"type"`
	Domain   string   `json:"domain"`
	Series   []string `json:"series"`
	StartRow int      `json:"start_row"`
	EndRow   int      `json:"end_row"`
	XAxis    string   `json:"x_axis"`
	YAxis    string   `json:"y_axis"`
	Legend   string   `json:"legend"`
}

// NewChartSpec scopes the chart to the data rows of a combined matrix with
// chartRows rows including its header.
func NewChartSpec(sheet string, runAt time.Time, chartRows int) ChartSpec {
	return ChartSpec{
		Title:    fmt.Sprintf("%s | Adam Theory | %s", sheet, runAt.Format("2006-01-02 15:04:05")),
		Type:     "LINE",
		Domain:   "All_Date",
		Series:   []string{"Hist_Close", "Projected"},
		StartRow: 1,
		EndRow:   chartRows,
		XAxis:    "Date",
		YAxis:    "Price",
		Legend:   "BOTTOM",
	}
}
