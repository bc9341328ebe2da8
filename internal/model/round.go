package model

import "time"

// RoundStatus is the lifecycle state of a round on the ledger.
type RoundStatus string

const (
	RoundOpen      RoundStatus = "OPEN"
	RoundPaid      RoundStatus = "PAID"
	RoundCancelled RoundStatus = "CANCELLED"
)

// Round mirrors one betting round from the ledger. The ledger is the sole
// authority: the core never mutates a Round, only replaces its mirror copy.
// Once Status != OPEN the round is immutable.
type Round struct {
	ID           int64       `json:"id"`
	Status       RoundStatus `json:"status"`
	StartedAt    time.Time   `json:"started_at"`
	EndsAt       time.Time   `json:"ends_at"`
	MinEntry     float64     `json:"min_entry"`
	PotTotal     float64     `json:"pot_total"`
	EntriesCount int         `json:"entries_count"`
	Winner       string      `json:"winner,omitempty"`
	Prize        float64     `json:"prize,omitempty"`
}

// Settled reports whether the round has left the OPEN state.
func (r *Round) Settled() bool {
	return r != nil && r.Status != RoundOpen
}

// Entry is one stake placed by one account into one round. Entries are
// append-only within a round; Index is the stable insertion-order key.
type Entry struct {
	RoundID int64   `json:"round_id"`
	Index   int     `json:"index"`
	Player  string  `json:"player"`
	Amount  float64 `json:"amount"`
}

// RoundSnapshot is the result of one poll cycle. Generation is zero until
// the first successful poll; Previous is only set while the round before the
// active one is freshly settled.
type RoundSnapshot struct {
	Active      Round
	Previous    *Round
	PlayerStake float64
	FetchedAt   time.Time
	Generation  uint64
}
