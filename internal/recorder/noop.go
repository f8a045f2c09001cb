package recorder

import (
	"context"

	"PivotMirror/internal/publisher"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Name() string                                         { return "noop" }
func (n *NoopRecorder) Publish(_ context.Context, _ *publisher.Report) error { return nil }
func (n *NoopRecorder) RecordRun(_ *RunRecord) error                         { return nil }
func (n *NoopRecorder) RecentRuns(_ int) ([]RunRecord, error)                { return nil, nil }
func (n *NoopRecorder) Close() error                                         { return nil }
