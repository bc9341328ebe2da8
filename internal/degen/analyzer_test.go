package degen

import (
	"encoding/json"
	"testing"
	"time"

	"JackpotWheel/internal/model"
)

type memStore struct {
	data  map[string][]byte
	saves int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Load(key string) ([]byte, error) {
	return s.data[key], nil
}

func (s *memStore) Save(key string, data []byte) error {
	s.data[key] = data
	s.saves++
	return nil
}

func newTestAnalyzer(t *testing.T, st *memStore) (*Analyzer, *time.Time) {
	t.Helper()
	a := NewAnalyzer(st, 24*time.Hour)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }
	return a, &now
}

func paidRound(id int64, winner string, pot float64) *model.Round {
	return &model.Round{ID: id, Status: model.RoundPaid, Winner: winner, PotTotal: pot}
}

func entriesFor(roundID int64, stakes map[string]float64) []model.Entry {
	var out []model.Entry
	i := 0
	for player, amount := range stakes {
		out = append(out, model.Entry{RoundID: roundID, Index: i, Player: player, Amount: amount})
		i++
	}
	return out
}

func TestProcessSettledRound_FirstWinnerSetsRecord(t *testing.T) {
	a, _ := newTestAnalyzer(t, newMemStore())

	round := paidRound(1, "alice", 1.5)
	entries := entriesFor(1, map[string]float64{"alice": 1.0, "bob": 0.5})
	if !a.ProcessSettledRound(round, entries) {
		t.Fatal("first settled round should set the record")
	}

	rec := a.Record()
	if rec.Current == nil || rec.Current.Account != "alice" {
		t.Fatalf("expected alice as degen, got %+v", rec.Current)
	}
	if got := rec.Current.WinChancePct; got < 66.6 || got > 66.7 {
		t.Errorf("expected ~66.67%% chance, got %.4f", got)
	}
}

func TestProcessSettledRound_OnlyStrictlyLowerChanceReplaces(t *testing.T) {
	a, _ := newTestAnalyzer(t, newMemStore())

	// Seed a 40% record.
	a.ProcessSettledRound(paidRound(1, "carol", 10), entriesFor(1, map[string]float64{"carol": 4, "dave": 6}))

	// 66.67% is higher: no update.
	if a.ProcessSettledRound(paidRound(2, "alice", 1.5), entriesFor(2, map[string]float64{"alice": 1.0, "bob": 0.5})) {
		t.Error("higher chance must not replace the record")
	}
	if a.Record().Current.Account != "carol" {
		t.Errorf("record should still be carol, got %s", a.Record().Current.Account)
	}

	// 33.33% is strictly lower: update.
	if !a.ProcessSettledRound(paidRound(3, "bob", 1.5), entriesFor(3, map[string]float64{"alice": 1.0, "bob": 0.5})) {
		t.Error("strictly lower chance must replace the record")
	}
	rec := a.Record()
	if rec.Current.Account != "bob" || rec.Current.RoundID != 3 {
		t.Errorf("expected bob from round 3, got %+v", rec.Current)
	}

	// Equal chance never replaces.
	if a.ProcessSettledRound(paidRound(4, "eve", 3), entriesFor(4, map[string]float64{"eve": 1.0, "bob": 2.0})) {
		t.Error("equal chance must not replace the record")
	}
}

func TestProcessSettledRound_IdempotentPerRound(t *testing.T) {
	st := newMemStore()
	a, _ := newTestAnalyzer(t, st)

	round := paidRound(1, "alice", 2)
	entries := entriesFor(1, map[string]float64{"alice": 1.0, "bob": 1.0})
	if !a.ProcessSettledRound(round, entries) {
		t.Fatal("first processing should update")
	}
	if a.ProcessSettledRound(round, entries) {
		t.Error("replayed settlement must be a no-op")
	}
	if got := a.Record().ProcessedRounds[1]; !got {
		t.Error("round 1 should be marked processed")
	}
}

func TestProcessSettledRound_CancelledMarkedButNoRecord(t *testing.T) {
	a, _ := newTestAnalyzer(t, newMemStore())

	cancelled := &model.Round{ID: 7, Status: model.RoundCancelled}
	if a.ProcessSettledRound(cancelled, nil) {
		t.Error("cancelled round must never set a record")
	}
	rec := a.Record()
	if !rec.ProcessedRounds[7] {
		t.Error("cancelled round should still be marked processed")
	}
	if rec.Current != nil {
		t.Errorf("no record expected, got %+v", rec.Current)
	}
	// Replay stays a no-op.
	if a.ProcessSettledRound(cancelled, nil) {
		t.Error("replayed cancellation must be a no-op")
	}
}

func TestProcessSettledRound_OpenRoundIgnored(t *testing.T) {
	a, _ := newTestAnalyzer(t, newMemStore())
	open := &model.Round{ID: 9, Status: model.RoundOpen}
	if a.ProcessSettledRound(open, nil) {
		t.Error("open round must be ignored")
	}
	if a.Record().ProcessedRounds[9] {
		t.Error("open round must not be marked processed")
	}
}

func TestWindowRollResetsRecordAndProcessedSet(t *testing.T) {
	a, now := newTestAnalyzer(t, newMemStore())

	a.ProcessSettledRound(paidRound(1, "alice", 2), entriesFor(1, map[string]float64{"alice": 1.0, "bob": 1.0}))
	*now = now.Add(25 * time.Hour)
	a.Housekeep()

	rec := a.Record()
	if rec.Current != nil {
		t.Errorf("expired window should clear the record, got %+v", rec.Current)
	}
	if len(rec.ProcessedRounds) != 0 {
		t.Errorf("expired window should clear the processed set, got %v", rec.ProcessedRounds)
	}
	// Round 1 can be counted again in the new window.
	if !a.ProcessSettledRound(paidRound(1, "alice", 2), entriesFor(1, map[string]float64{"alice": 1.0, "bob": 1.0})) {
		t.Error("new window should accept the round again")
	}
}

func TestAnalyzer_PersistsAndRestores(t *testing.T) {
	st := newMemStore()
	a, _ := newTestAnalyzer(t, st)
	a.ProcessSettledRound(paidRound(1, "alice", 4), entriesFor(1, map[string]float64{"alice": 1.0, "bob": 3.0}))

	b, _ := newTestAnalyzer(t, st)
	rec := b.Record()
	if rec.Current == nil || rec.Current.Account != "alice" {
		t.Fatalf("restored record lost the degen, got %+v", rec.Current)
	}
	if !rec.ProcessedRounds[1] {
		t.Error("restored record lost the processed set")
	}
}

func TestAnalyzer_CorruptRecordStartsFresh(t *testing.T) {
	st := newMemStore()
	st.data[StoreKey] = []byte("{not json")

	a, _ := newTestAnalyzer(t, st)
	rec := a.Record()
	if rec.Current != nil || len(rec.ProcessedRounds) != 0 {
		t.Errorf("corrupt record should start fresh, got %+v", rec)
	}
}

func TestAnalyzer_OutOfBoundsRecordStartsFresh(t *testing.T) {
	st := newMemStore()
	bad := model.DegenRecord{
		WindowStart:     time.Now(),
		WindowEnd:       time.Now().Add(24 * time.Hour),
		ProcessedRounds: map[int64]bool{1: true},
		Current:         &model.DegenEntry{RoundID: 1, Account: "x", WinChancePct: 140},
	}
	data, err := json.Marshal(bad)
	if err != nil {
		t.Fatal(err)
	}
	st.data[StoreKey] = data

	a, _ := newTestAnalyzer(t, st)
	if a.Record().Current != nil {
		t.Error("out-of-bounds chance should be discarded")
	}
}

func TestProcessSettledRound_MissingEntriesStaysUnprocessed(t *testing.T) {
	a, _ := newTestAnalyzer(t, newMemStore())

	// Paid round with a real pot but no entry list (fetch failed upstream):
	// must not enter the processed set, so a retry can still count it.
	round := paidRound(3, "alice", 1.5)
	if a.ProcessSettledRound(round, nil) {
		t.Error("round without entries must not set a record")
	}
	if a.Record().ProcessedRounds[3] {
		t.Fatal("round without entries must stay unprocessed")
	}

	// Entries arrive later; the retry counts the round normally.
	if !a.ProcessSettledRound(round, entriesFor(3, map[string]float64{"alice": 0.5, "bob": 1.0})) {
		t.Error("retry with entries should set the record")
	}
	rec := a.Record()
	if rec.Current == nil || rec.Current.Account != "alice" {
		t.Fatalf("expected alice after retry, got %+v", rec.Current)
	}
}

func TestProcessSettledRound_UnknownWinnerEntriesNoRecord(t *testing.T) {
	a, _ := newTestAnalyzer(t, newMemStore())
	// Winner has no visible entries: chance computes to zero, skip.
	round := paidRound(2, "ghost", 3)
	if a.ProcessSettledRound(round, entriesFor(2, map[string]float64{"alice": 3.0})) {
		t.Error("zero computed chance must not set a record")
	}
	if !a.Record().ProcessedRounds[2] {
		t.Error("round should still be marked processed")
	}
}
