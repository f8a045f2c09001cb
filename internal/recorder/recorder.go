package recorder

import (
	"time"

	"PivotMirror/internal/publisher"
)

// Run statuses.
const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// RunRecord is the outcome of one instrument within a batch.
type RunRecord struct {
	RunID      string
	BatchID    string
	Ticker     string
	Sheet      string
	Symbol     string
	CachePath  string
	Fetched    bool
	Status     string
	Error      string
	PivotDate  time.Time
	PivotPrice float64
	Horizon    int
	Rows       int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder persists run history and published series for analysis.
type Recorder interface {
	publisher.Publisher
	RecordRun(rec *RunRecord) error
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
