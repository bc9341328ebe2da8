package recorder

import "JackpotWheel/internal/model"

// Recorder persists round history for later analysis.
type Recorder interface {
	RecordSettledRound(round *model.Round, entries []model.Entry) error
	RecordDegenUpdate(entry *model.DegenEntry) error
	Close() error
}
