package recorder

import "JackpotWheel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSettledRound(_ *model.Round, _ []model.Entry) error { return nil }
func (n *NoopRecorder) RecordDegenUpdate(_ *model.DegenEntry) error              { return nil }
func (n *NoopRecorder) Close() error                                             { return nil }
