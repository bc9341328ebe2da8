package coordinator

import (
	"context"
	"strings"
	"testing"
	"time"

	"JackpotWheel/internal/degen"
	"JackpotWheel/internal/entries"
	"JackpotWheel/internal/model"
	"JackpotWheel/internal/poller"
	"JackpotWheel/internal/profile"
	"JackpotWheel/internal/recorder"
	"JackpotWheel/internal/wheel"
)

// stubLedger serves canned rounds and entries. When gate is set, entry
// fetches block until it is closed.
type stubLedger struct {
	entries map[int64][]model.Entry
	submits int
	gate    chan struct{}
}

func (s *stubLedger) Name() string                  { return "stub" }
func (s *stubLedger) ActiveRoundID() (int64, error) { return 0, nil }
func (s *stubLedger) Round(id int64) (*model.Round, error) {
	return &model.Round{ID: id, Status: model.RoundOpen}, nil
}

func (s *stubLedger) Entries(roundID int64, offset, limit int) ([]model.Entry, error) {
	if s.gate != nil {
		<-s.gate
	}
	ents := s.entries[roundID]
	if offset >= len(ents) {
		return nil, nil
	}
	end := offset + limit
	if end > len(ents) {
		end = len(ents)
	}
	return ents[offset:end], nil
}

func (s *stubLedger) PlayerTotal(roundID int64, account string) (float64, error) { return 0, nil }

func (s *stubLedger) SubmitEntry(amount float64, entropy string) error {
	s.submits++
	return nil
}

func newTestCoordinator(t *testing.T, account string) (*Coordinator, *stubLedger) {
	t.Helper()
	stub := &stubLedger{entries: make(map[int64][]model.Entry)}
	c := New(context.Background(), Options{
		Client:   stub,
		Poller:   poller.New(stub, account, time.Hour),
		Entries:  entries.NewCache(stub),
		Profiles: profile.NewCache(nil, time.Hour, time.Minute),
		Recorder: recorder.NewNoopRecorder(),
		Analyzer: degen.NewAnalyzer(nil, 24*time.Hour),
		Wheel:    wheel.DefaultConfig(),
		Account:  account,
	})
	return c, stub
}

func TestSettle_StartsSpinAndSetsDegen(t *testing.T) {
	c, stub := newTestCoordinator(t, "")
	stub.entries[5] = []model.Entry{
		{RoundID: 5, Index: 0, Player: "alice", Amount: 1.0},
		{RoundID: 5, Index: 1, Player: "bob", Amount: 0.5},
	}
	round := &model.Round{
		ID: 5, Status: model.RoundPaid, Winner: "bob",
		Prize: 1.35, PotTotal: 1.5, EntriesCount: 2,
	}

	c.settle(round)

	state := c.WheelState()
	if state.Phase != string(wheel.PhaseSpin) {
		t.Fatalf("expected SPIN after settlement, got %s", state.Phase)
	}
	if state.Tiles[state.StopIndex].Account != "bob" {
		t.Errorf("stop tile should be the winner, got %+v", state.Tiles[state.StopIndex])
	}

	rec := c.analyzer.Record()
	if rec.Current == nil || rec.Current.Account != "bob" {
		t.Fatalf("expected bob as degen, got %+v", rec.Current)
	}
	if got := rec.Current.WinChancePct; got < 33.3 || got > 33.4 {
		t.Errorf("expected ~33.33%% chance, got %.4f", got)
	}
}

func TestSettle_CancelledRoundStaysQuiet(t *testing.T) {
	c, _ := newTestCoordinator(t, "")
	c.settle(&model.Round{ID: 7, Status: model.RoundCancelled})

	state := c.WheelState()
	if state.Phase != string(wheel.PhaseActive) {
		t.Errorf("cancelled round must not spin, got %s", state.Phase)
	}
	if c.analyzer.Record().Current != nil {
		t.Error("cancelled round must not set a degen record")
	}
}

func TestSettle_ReplayedSettlementSpinsOnce(t *testing.T) {
	c, stub := newTestCoordinator(t, "")
	stub.entries[5] = []model.Entry{{RoundID: 5, Index: 0, Player: "alice", Amount: 1.0}}
	round := &model.Round{ID: 5, Status: model.RoundPaid, Winner: "alice", Prize: 0.9, PotTotal: 1.0, EntriesCount: 1}

	c.settle(round)
	first := c.WheelState()
	c.settle(round)
	second := c.WheelState()
	if first.Phase != second.Phase || len(first.Tiles) != len(second.Tiles) {
		t.Error("replayed settlement must not restart the presentation")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestTick_DoesNotBlockOnSlowLedger(t *testing.T) {
	c, stub := newTestCoordinator(t, "")
	stub.entries[0] = []model.Entry{{RoundID: 0, Index: 0, Player: "alice", Amount: 1}}
	stub.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.poller.Run(ctx)
	waitFor(t, "first poll", func() bool { return c.poller.Snapshot().Generation > 0 })

	done := make(chan struct{})
	go func() {
		c.tick() // starts the refresh, which blocks on the gated fetch
		c.tick() // must return immediately while the fetch is in flight
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tick waited on the entry fetch")
	}

	close(stub.gate)
	waitFor(t, "tiles", func() bool { return len(c.CurrentTiles()) == 1 })
}

func TestRetryDeferred_CountsRoundOnceEntriesArrive(t *testing.T) {
	c, stub := newTestCoordinator(t, "")
	round := &model.Round{ID: 5, Status: model.RoundPaid, Winner: "alice", Prize: 0.9, PotTotal: 1.0, EntriesCount: 1}

	// Entry fetch yields nothing at settlement; analytics must wait, not
	// burn the round with a zero chance.
	c.settle(round)
	if c.analyzer.Record().Current != nil {
		t.Fatal("degen must not be set from an empty entry list")
	}

	stub.entries[5] = []model.Entry{{RoundID: 5, Index: 0, Player: "alice", Amount: 1.0}}
	c.retryDeferred()
	rec := c.analyzer.Record()
	if rec.Current == nil || rec.Current.Account != "alice" {
		t.Fatalf("deferred round should be counted once entries arrive, got %+v", rec.Current)
	}

	// Nothing left to retry.
	c.retryDeferred()
	if got := c.analyzer.Record().Current.RoundID; got != 5 {
		t.Errorf("unexpected record round %d", got)
	}
}

func TestTick_NoSnapshotIsNoop(t *testing.T) {
	c, _ := newTestCoordinator(t, "")
	c.tick()
	state := c.WheelState()
	if len(state.Tiles) != 0 {
		t.Errorf("no snapshot yet, expected no tiles, got %d", len(state.Tiles))
	}
	if state.Round != nil {
		t.Errorf("no snapshot yet, expected no round, got %+v", state.Round)
	}
}

func TestSubmit_RequiresAccountAndPositiveAmount(t *testing.T) {
	c, _ := newTestCoordinator(t, "")
	if _, err := c.Submit(0.5); err == nil {
		t.Error("submit without an account must fail")
	}

	c2, _ := newTestCoordinator(t, "me")
	if _, err := c2.Submit(-1); err == nil {
		t.Error("negative amount must fail")
	}
	id, err := c2.Submit(0.5)
	if err != nil {
		t.Errorf("valid submit failed: %v", err)
	}
	if id == "" {
		t.Error("submit must return a pending id")
	}
}

func TestHandleCommand_Bet(t *testing.T) {
	c, _ := newTestCoordinator(t, "me")
	if got := c.HandleCommand("/bet"); got != "Usage: /bet <amount>" {
		t.Errorf("missing amount should print usage, got %q", got)
	}
	if got := c.HandleCommand("/bet lots"); got != "Usage: /bet <amount>" {
		t.Errorf("bad amount should print usage, got %q", got)
	}
	if got := c.HandleCommand("/bet 0.5"); !strings.HasPrefix(got, "Entry of 0.5000") {
		t.Errorf("valid bet should confirm the entry, got %q", got)
	}

	noAccount, _ := newTestCoordinator(t, "")
	if got := noAccount.HandleCommand("/bet 1"); !strings.HasPrefix(got, "Bet rejected") {
		t.Errorf("bet without an account must be rejected, got %q", got)
	}
}

func TestHandleCommand(t *testing.T) {
	c, _ := newTestCoordinator(t, "")
	if got := c.HandleCommand("/degen"); got != "No degen of the day yet." {
		t.Errorf("unexpected /degen reply: %q", got)
	}
	if got := c.HandleCommand("/bogus"); got == "" {
		t.Error("unknown command should return the help text")
	}
	if got := c.HandleCommand("/round"); got != "No round data yet, still syncing." {
		t.Errorf("unexpected /round reply before first poll: %q", got)
	}
}
