package ledger

import "JackpotWheel/internal/model"

// Client is the read/write surface of the authoritative jackpot ledger.
// The ledger exposes no push mechanism; everything is fetched.
type Client interface {
	Name() string
	ActiveRoundID() (int64, error)
	Round(id int64) (*model.Round, error)
	Entries(roundID int64, offset, limit int) ([]model.Entry, error)
	PlayerTotal(roundID int64, account string) (float64, error)
	SubmitEntry(amount float64, entropy string) error
}
