package optimistic

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"JackpotWheel/internal/model"
)

// Pending is a locally-submitted entry not yet confirmed by the ledger.
type Pending struct {
	ID          string
	Account     string
	Amount      float64
	SubmittedAt time.Time
}

// Reconciler tracks pending local submissions and resolves them against the
// authoritative entry list. The ledger assigns no client-visible correlation
// id, so matching is best-effort by (player, amount), oldest submission
// claiming the oldest unclaimed authoritative match.
type Reconciler struct {
	mu       sync.Mutex
	pending  []Pending
	resolved map[string]bool // authoritative entries already consumed by a past confirmation
	now      func() time.Time
}

// NewReconciler creates an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{
		resolved: make(map[string]bool),
		now:      time.Now,
	}
}

// Submit registers a pending entry and returns its id. The caller shows the
// optimistic tile immediately; the remote write happens elsewhere.
func (r *Reconciler) Submit(account string, amount float64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Pending{
		ID:          uuid.NewString(),
		Account:     account,
		Amount:      amount,
		SubmittedAt: r.now(),
	}
	r.pending = append(r.pending, p)
	return p.ID
}

// Fail removes a pending entry whose remote write failed. The optimistic
// tile disappears; it must never linger looking confirmed.
func (r *Reconciler) Fail(pendingID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.pending {
		if p.ID == pendingID {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return
		}
	}
}

// Reconcile resolves pending entries against the authoritative list and
// returns the ids that were confirmed. Each authoritative entry can confirm
// at most one pending entry. Calling twice with the same list is a no-op the
// second time: confirmed entries are already gone.
func (r *Reconciler) Reconcile(authoritative []model.Entry) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	claimed := make([]bool, len(authoritative))
	var confirmed []string
	var remaining []Pending
	for _, p := range r.pending {
		matched := false
		for i, e := range authoritative {
			if claimed[i] || r.resolved[entryKey(e)] {
				continue
			}
			if e.Player != p.Account || e.Amount != p.Amount {
				continue
			}
			claimed[i] = true
			r.resolved[entryKey(e)] = true
			matched = true
			break
		}
		if matched {
			confirmed = append(confirmed, p.ID)
		} else {
			remaining = append(remaining, p)
		}
	}
	r.pending = remaining
	return confirmed
}

// Reset clears all pending submissions and match bookkeeping. Called when a
// new round becomes active: pending entries cannot carry across rounds.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
	r.resolved = make(map[string]bool)
}

func entryKey(e model.Entry) string {
	return fmt.Sprintf("%d-%d", e.RoundID, e.Index)
}

// Tiles renders the current pending entries as optimistic tiles, newest
// first, so a fresh submission shows up at the head of the list.
func (r *Reconciler) Tiles() []model.Tile {
	r.mu.Lock()
	defer r.mu.Unlock()
	tiles := make([]model.Tile, 0, len(r.pending))
	for i := len(r.pending) - 1; i >= 0; i-- {
		p := r.pending[i]
		tiles = append(tiles, model.Tile{
			Key:        fmt.Sprintf("pending-%s", p.ID),
			Account:    p.Account,
			Amount:     p.Amount,
			Optimistic: true,
		})
	}
	return tiles
}

// PendingCount returns the number of unresolved submissions.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
