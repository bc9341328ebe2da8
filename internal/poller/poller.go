package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"JackpotWheel/internal/ledger"
	"JackpotWheel/internal/model"
)

// EventType tags what a poll discovered.
type EventType string

const (
	// RoundBecameActive fires when the active round id advances.
	RoundBecameActive EventType = "ROUND_ACTIVE"
	// RoundSettled fires at most once per round id, when the previous round
	// reaches a terminal status.
	RoundSettled EventType = "ROUND_SETTLED"
)

// Event is what the poller hands to its consumer.
type Event struct {
	Type  EventType
	Round *model.Round
}

// Poller keeps a round snapshot fresh by polling the ledger on an interval.
// Each poll runs in its own goroutine so a slow ledger never blocks the
// ticker; results carry a generation counter and only the newest generation
// may overwrite the snapshot, so a stale response arriving late is discarded.
type Poller struct {
	client   ledger.Client
	account  string
	interval time.Duration
	now      func() time.Time

	mu            sync.Mutex
	snapshot      model.RoundSnapshot
	appliedGen    uint64
	nextGen       uint64
	lastSettledID int64
	seeded        bool

	events chan Event
}

// pollResult is everything one poll learned, applied atomically.
type pollResult struct {
	gen         uint64
	active      *model.Round
	previous    *model.Round
	playerStake float64
}

// New creates a poller for the given ledger. account may be empty; then no
// player stake is fetched.
func New(client ledger.Client, account string, interval time.Duration) *Poller {
	return &Poller{
		client:   client,
		account:  account,
		interval: interval,
		now:      time.Now,
		events:   make(chan Event, 16),
	}
}

// Events is the consumer side of the poller's notifications.
func (p *Poller) Events() <-chan Event {
	return p.events
}

// Snapshot returns the last applied snapshot. Zero Generation means no poll
// has succeeded yet.
func (p *Poller) Snapshot() model.RoundSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// Run polls until the context is cancelled. One poll fires immediately.
func (p *Poller) Run(ctx context.Context) {
	log.Printf("[INFO] round poller started against %s, interval %s", p.client.Name(), p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	go p.pollOnce()
	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] round poller stopped")
			return
		case <-ticker.C:
			go p.pollOnce()
		}
	}
}

// pollOnce performs one full fetch and applies it. Safe to call concurrently;
// the generation guard keeps overlapping polls from regressing the snapshot.
func (p *Poller) pollOnce() {
	p.mu.Lock()
	p.nextGen++
	gen := p.nextGen
	lastSettled := p.lastSettledID
	p.mu.Unlock()

	res, err := p.fetch(gen, lastSettled)
	if err != nil {
		log.Printf("[WARN] poll failed, keeping last snapshot: %v", err)
		return
	}
	p.apply(res)
}

// fetch gathers the active round, the player's stake, and (when newer than
// lastSettled) the previous round's terminal state.
func (p *Poller) fetch(gen uint64, lastSettled int64) (*pollResult, error) {
	activeID, err := p.client.ActiveRoundID()
	if err != nil {
		return nil, fmt.Errorf("active round id: %w", err)
	}
	active, err := p.client.Round(activeID)
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", activeID, err)
	}

	res := &pollResult{gen: gen, active: active}

	if p.account != "" {
		stake, err := p.client.PlayerTotal(activeID, p.account)
		if err != nil {
			log.Printf("[WARN] player total for round %d: %v", activeID, err)
		} else {
			res.playerStake = stake
		}
	}

	// The round before the active one is the newest candidate for settlement.
	if prevID := activeID - 1; prevID > lastSettled {
		prev, err := p.client.Round(prevID)
		if err != nil {
			log.Printf("[WARN] previous round %d: %v", prevID, err)
		} else if prev.Settled() {
			res.previous = prev
		}
	}
	return res, nil
}

// apply installs a poll result and emits events. Only the newest generation
// wins; an older in-flight poll landing after a newer one is dropped.
func (p *Poller) apply(res *pollResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res.gen <= p.appliedGen {
		log.Printf("[INFO] dropping stale poll result (gen %d, applied %d)", res.gen, p.appliedGen)
		return
	}
	p.appliedGen = res.gen

	prevActiveID := p.snapshot.Active.ID
	wasSeeded := p.seeded

	p.snapshot = model.RoundSnapshot{
		Active:      *res.active,
		Previous:    res.previous,
		PlayerStake: res.playerStake,
		FetchedAt:   p.now(),
		Generation:  res.gen,
	}

	if !wasSeeded {
		// First successful poll: adopt history silently. A round that settled
		// before we started is old news, not an event.
		p.seeded = true
		p.lastSettledID = res.active.ID - 1
		log.Printf("[INFO] poller seeded at round %d (settled history up to %d)",
			res.active.ID, p.lastSettledID)
		p.emit(Event{Type: RoundBecameActive, Round: res.active})
		return
	}

	if res.active.ID != prevActiveID {
		p.emit(Event{Type: RoundBecameActive, Round: res.active})
	}
	if res.previous != nil && res.previous.ID > p.lastSettledID {
		// The dedup marker only advances once the event is delivered. If the
		// channel is full the next poll refetches the round and tries again,
		// so a settlement is never silently lost.
		if p.emit(Event{Type: RoundSettled, Round: res.previous}) {
			p.lastSettledID = res.previous.ID
		} else {
			log.Printf("[WARN] settled event for round %d not delivered, will retry next poll", res.previous.ID)
		}
	}
}

// emit never blocks the apply path; it reports whether the event was
// accepted. A full channel means the consumer is wedged.
func (p *Poller) emit(ev Event) bool {
	select {
	case p.events <- ev:
		return true
	default:
		log.Printf("[WARN] event channel full, dropping %s for round %d", ev.Type, ev.Round.ID)
		return false
	}
}
