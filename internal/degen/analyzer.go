package degen

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"JackpotWheel/internal/model"
	"JackpotWheel/internal/store"
)

// StoreKey is the persistent-store key for the degen record.
const StoreKey = "degen_of_day"

// Analyzer maintains the rolling 24h "degen of the day": the winner with the
// lowest amount-weighted win chance among rounds settled in the current
// window. Processing is idempotent per round id and the record survives
// restarts via the store; a missing, corrupt or expired record just starts a
// fresh window.
type Analyzer struct {
	mu     sync.Mutex
	store  store.Store
	window time.Duration
	now    func() time.Time
	rec    *model.DegenRecord
}

// NewAnalyzer loads the persisted record, discarding anything unusable.
func NewAnalyzer(st store.Store, window time.Duration) *Analyzer {
	a := &Analyzer{
		store:  st,
		window: window,
		now:    time.Now,
	}
	a.rec = a.load()
	return a
}

// Record returns a copy of the current record, rolling the window first so
// callers never see an expired one.
func (a *Analyzer) Record() *model.DegenRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rollWindow()
	return a.rec.Clone()
}

// ProcessSettledRound folds one settled round into the window. Returns true
// when the round became the new degen of the day. Duplicate invocations for
// a round id are no-ops; the lock serializes concurrent calls, so a replayed
// settlement arriving mid-processing simply waits and then hits the
// processed set.
func (a *Analyzer) ProcessSettledRound(round *model.Round, entries []model.Entry) bool {
	if round == nil || !round.Settled() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rollWindow()
	if a.rec.ProcessedRounds[round.ID] {
		return false
	}
	if round.Status == model.RoundPaid && round.PotTotal > 0 && len(entries) == 0 {
		// Entry list missing for a paid round: marking it processed now would
		// pin its chance at zero forever. Leave it for a later retry.
		log.Printf("[WARN] paid round %d has no entry list yet, leaving unprocessed", round.ID)
		return false
	}
	a.rec.ProcessedRounds[round.ID] = true
	defer a.persist()

	if round.Status != model.RoundPaid || round.Winner == "" {
		return false
	}

	chance := winChancePct(round, entries)
	if chance <= 0 || chance > 100 {
		log.Printf("[WARN] round %d has implausible win chance %.2f%%, skipping", round.ID, chance)
		return false
	}

	// Replace only on a strictly lower chance: a more improbable win.
	if a.rec.Current != nil && chance >= a.rec.Current.WinChancePct {
		return false
	}
	a.rec.Current = &model.DegenEntry{
		RoundID:      round.ID,
		Account:      round.Winner,
		WinChancePct: chance,
		SetAt:        a.now(),
	}
	return true
}

// Housekeep expires the window even when no rounds settle. Wired to a cron
// tick so a quiet day still clears yesterday's record.
func (a *Analyzer) Housekeep() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rollWindow()
}

// rollWindow resets the record once the window has passed. Caller holds the
// lock.
func (a *Analyzer) rollWindow() {
	now := a.now()
	if a.rec != nil && !a.rec.Expired(now) {
		return
	}
	if a.rec != nil && a.rec.Current != nil {
		log.Printf("[INFO] degen window expired, resetting (was round %d at %.2f%%)",
			a.rec.Current.RoundID, a.rec.Current.WinChancePct)
	}
	a.rec = &model.DegenRecord{
		WindowStart:     now,
		WindowEnd:       now.Add(a.window),
		ProcessedRounds: make(map[int64]bool),
	}
	a.persist()
}

// load restores the persisted record. Any failure degrades to nil, which
// rollWindow turns into a fresh window on first use.
func (a *Analyzer) load() *model.DegenRecord {
	if a.store == nil {
		return nil
	}
	data, err := a.store.Load(StoreKey)
	if err != nil {
		log.Printf("[WARN] load degen record: %v, starting fresh", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	var rec model.DegenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("[WARN] corrupt degen record: %v, starting fresh", err)
		return nil
	}
	if rec.ProcessedRounds == nil {
		rec.ProcessedRounds = make(map[int64]bool)
	}
	if rec.Current != nil && (rec.Current.WinChancePct <= 0 || rec.Current.WinChancePct > 100) {
		log.Printf("[WARN] degen record violates chance bounds (%.2f%%), starting fresh",
			rec.Current.WinChancePct)
		return nil
	}
	return &rec
}

// persist saves the record; failures are logged, never fatal. Caller holds
// the lock.
func (a *Analyzer) persist() {
	if a.store == nil || a.rec == nil {
		return
	}
	data, err := json.MarshalIndent(a.rec, "", "  ")
	if err != nil {
		log.Printf("[ERROR] marshal degen record: %v", err)
		return
	}
	if err := a.store.Save(StoreKey, data); err != nil {
		log.Printf("[ERROR] save degen record: %v", err)
	}
}

// winChancePct is the winner's contributed amount over the pot, as a
// percentage. Amount-weighted, matching the odds the ledger implies; the
// count of entries is irrelevant.
func winChancePct(round *model.Round, entries []model.Entry) float64 {
	if round.PotTotal <= 0 {
		return 0
	}
	var contributed float64
	for _, e := range entries {
		if e.Player == round.Winner {
			contributed += e.Amount
		}
	}
	return contributed / round.PotTotal * 100
}
