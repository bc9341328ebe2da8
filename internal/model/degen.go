package model

import "time"

// DegenEntry is the current most-improbable winner within a window.
type DegenEntry struct {
	RoundID      int64     `json:"round_id"`
	Account      string    `json:"account"`
	WinChancePct float64   `json:"win_chance_pct"`
	SetAt        time.Time `json:"set_at"`
}

// DegenRecord is the rolling 24h "degen of the day" aggregate. It is the
// only durably persisted state in the core. ProcessedRounds only grows
// within a window; the whole record resets when the window expires.
type DegenRecord struct {
	WindowStart     time.Time      `json:"window_start"`
	WindowEnd       time.Time      `json:"window_end"`
	ProcessedRounds map[int64]bool `json:"processed_round_ids"`
	Current         *DegenEntry    `json:"current,omitempty"`
}

// Expired reports whether the window has passed at the given instant.
func (r *DegenRecord) Expired(now time.Time) bool {
	return r == nil || r.WindowEnd.IsZero() || !now.Before(r.WindowEnd)
}

// Clone returns a deep copy safe to hand out to callers.
func (r *DegenRecord) Clone() *DegenRecord {
	if r == nil {
		return nil
	}
	cp := &DegenRecord{
		WindowStart:     r.WindowStart,
		WindowEnd:       r.WindowEnd,
		ProcessedRounds: make(map[int64]bool, len(r.ProcessedRounds)),
	}
	for id := range r.ProcessedRounds {
		cp.ProcessedRounds[id] = true
	}
	if r.Current != nil {
		cur := *r.Current
		cp.Current = &cur
	}
	return cp
}
