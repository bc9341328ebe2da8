package entries

import (
	"fmt"
	"testing"
	"time"

	"JackpotWheel/internal/model"
)

// fakeLedger serves a fixed entry list and counts fetches. When gate is set,
// Entries signals started once and then waits for the gate to open.
type fakeLedger struct {
	entries map[int64][]model.Entry
	calls   int
	fail    bool
	started chan struct{}
	gate    chan struct{}
}

func (f *fakeLedger) Name() string                  { return "fake" }
func (f *fakeLedger) ActiveRoundID() (int64, error) { return 0, nil }
func (f *fakeLedger) Round(int64) (*model.Round, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeLedger) PlayerTotal(int64, string) (float64, error) { return 0, nil }
func (f *fakeLedger) SubmitEntry(float64, string) error          { return nil }

func (f *fakeLedger) Entries(roundID int64, offset, limit int) ([]model.Entry, error) {
	f.calls++
	if f.gate != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
		<-f.gate
	}
	if f.fail {
		return nil, fmt.Errorf("ledger unavailable")
	}
	all := f.entries[roundID]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func makeEntries(roundID int64, n int) []model.Entry {
	out := make([]model.Entry, n)
	for i := range out {
		out[i] = model.Entry{RoundID: roundID, Index: i, Player: fmt.Sprintf("p%d", i), Amount: 1}
	}
	return out
}

func TestGet_ValidWhenLengthMatches(t *testing.T) {
	fl := &fakeLedger{entries: map[int64][]model.Entry{7: makeEntries(7, 3)}}
	c := NewCache(fl)

	got := c.Get(7, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	c.Get(7, 3)
	if fl.calls != 1 {
		t.Errorf("expected cache hit on second Get, got %d fetches", fl.calls)
	}
}

func TestGet_CountMismatchForcesRefetch(t *testing.T) {
	fl := &fakeLedger{entries: map[int64][]model.Entry{7: makeEntries(7, 3)}}
	c := NewCache(fl)

	c.Get(7, 3)
	fl.entries[7] = makeEntries(7, 5)
	got := c.Get(7, 5)
	if len(got) != 5 {
		t.Errorf("expected refetched 5 entries, got %d", len(got))
	}
	if fl.calls != 2 {
		t.Errorf("expected 2 fetches, got %d", fl.calls)
	}
}

func TestGet_FailureServesCached(t *testing.T) {
	fl := &fakeLedger{entries: map[int64][]model.Entry{7: makeEntries(7, 3)}}
	c := NewCache(fl)

	c.Get(7, 3)
	fl.fail = true
	got := c.Get(7, 5) // stale count, fetch fails
	if len(got) != 3 {
		t.Errorf("expected stale cached entries on failure, got %d", len(got))
	}
}

func TestGet_FailureWithNoCacheReturnsEmpty(t *testing.T) {
	fl := &fakeLedger{fail: true}
	c := NewCache(fl)

	got := c.Get(9, 4)
	if len(got) != 0 {
		t.Errorf("expected empty list, got %d entries", len(got))
	}
}

func TestInvalidate(t *testing.T) {
	fl := &fakeLedger{entries: map[int64][]model.Entry{7: makeEntries(7, 3)}}
	c := NewCache(fl)

	c.Get(7, 3)
	c.Invalidate(7)
	c.Get(7, 3)
	if fl.calls != 2 {
		t.Errorf("expected refetch after invalidate, got %d fetches", fl.calls)
	}
}

func TestGet_SlowFetchDoesNotBlockOtherRounds(t *testing.T) {
	fl := &fakeLedger{
		entries: map[int64][]model.Entry{7: makeEntries(7, 3)},
		started: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	c := NewCache(fl)

	done := make(chan struct{})
	go func() {
		c.Get(7, 3)
		close(done)
	}()
	<-fl.started

	purged := make(chan struct{})
	go func() {
		c.Purge(99)
		close(purged)
	}()
	select {
	case <-purged:
	case <-time.After(time.Second):
		t.Fatal("purge of an unrelated round waited behind an in-flight fetch")
	}

	close(fl.gate)
	<-done
	if got := c.Get(7, 3); len(got) != 3 {
		t.Errorf("expected 3 entries after fetch completed, got %d", len(got))
	}
}

func TestGet_PagesThroughLargeRounds(t *testing.T) {
	fl := &fakeLedger{entries: map[int64][]model.Entry{7: makeEntries(7, 250)}}
	c := NewCache(fl)

	got := c.Get(7, 250)
	if len(got) != 250 {
		t.Fatalf("expected 250 entries, got %d", len(got))
	}
	if fl.calls != 3 {
		t.Errorf("expected 3 page fetches, got %d", fl.calls)
	}
}
