package wheel

import (
	"log"
	"sync"
	"time"

	"JackpotWheel/internal/model"
)

// Phase is the wheel's presentation state.
type Phase string

const (
	PhaseActive Phase = "ACTIVE" // round open, live entries, no animation
	PhaseSlow   Phase = "SLOW"   // round open, idle marquee with waiting tiles
	PhaseSpin   Phase = "SPIN"   // round settled, animating toward the winner
	PhaseResult Phase = "RESULT" // post-spin hold, winner highlighted
)

// Config holds the presentation tuning knobs. Durations are fixed, never
// data-dependent: a 3-entry round spins exactly as long as a 300-entry one.
type Config struct {
	TargetTiles  int           // mixed idle list length
	MaxBaseTiles int           // cap on real tiles in the spin base list
	StripRepeats int           // copies of the base list in the spin strip
	SlowDelay    time.Duration // ACTIVE -> SLOW
	SpinDuration time.Duration // SPIN -> RESULT
	ResultHold   time.Duration // RESULT -> ACTIVE
}

// DefaultConfig returns the stock presentation timings.
func DefaultConfig() Config {
	return Config{
		TargetTiles:  24,
		MaxBaseTiles: 40,
		StripRepeats: 6,
		SlowDelay:    5 * time.Second,
		SpinDuration: 8 * time.Second,
		ResultHold:   10 * time.Second,
	}
}

// Machine converts round snapshots into the four-phase wheel life cycle.
// All timing flows through Advance; nothing transitions on a poll alone.
type Machine struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	phase   Phase
	roundID int64
	real    []model.Tile // resolved real + optimistic tiles, insertion order
	display []model.Tile
	tick    uint64 // bumps on every SLOW-list rebuild, seeds the mix

	slowAt       time.Time
	spinEndsAt   time.Time
	resultEndsAt time.Time

	spinRound     int64
	lastSpunRound int64
	stopIndex     int

	onRoundDone func(roundID int64)
}

// NewMachine creates a machine. onRoundDone fires on RESULT -> ACTIVE with
// the settled round's id so the owner can purge that round's caches.
func NewMachine(cfg Config, onRoundDone func(roundID int64)) *Machine {
	return &Machine{
		cfg:         cfg,
		now:         time.Now,
		phase:       PhaseActive,
		onRoundDone: onRoundDone,
	}
}

// Phase returns the current presentation phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Tiles returns a copy of the current display list.
func (m *Machine) Tiles() []model.Tile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyTiles(m.display)
}

// StopIndex returns the strip index the spin animation lands on. Only
// meaningful in SPIN and RESULT.
func (m *Machine) StopIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopIndex
}

// DisplayRound returns the round id the wheel is currently presenting.
func (m *Machine) DisplayRound() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseSpin || m.phase == PhaseResult {
		return m.spinRound
	}
	return m.roundID
}

// SetEntries feeds the machine the current round and its resolved tiles.
// During SPIN and RESULT the display is frozen; updates still land in the
// real set so the next ACTIVE shows them. The SLOW list is rebuilt only when
// the tile set actually changes, never per animation frame, to avoid
// identity churn flicker.
func (m *Machine) SetEntries(round *model.Round, tiles []model.Tile) {
	if round == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	newRound := round.ID != m.roundID
	changed := newRound || !sameTileSet(m.real, tiles)
	m.real = copyTiles(tiles)

	if newRound {
		m.roundID = round.ID
		if m.phase == PhaseSlow || m.phase == PhaseActive {
			m.phase = PhaseActive
			m.slowAt = m.now().Add(m.cfg.SlowDelay)
		}
	}
	if m.phase == PhaseSpin || m.phase == PhaseResult {
		return
	}
	if !changed {
		m.refreshProfiles()
		return
	}
	m.rebuildDisplay()
}

// refreshProfiles copies late-arriving display names and avatars onto the
// existing display list without changing its identity. Caller holds the lock.
func (m *Machine) refreshProfiles() {
	byKey := make(map[string]model.Tile, len(m.real))
	for _, t := range m.real {
		byKey[t.Key] = t
	}
	for i := range m.display {
		if src, ok := byKey[m.display[i].Key]; ok {
			m.display[i].DisplayName = src.DisplayName
			m.display[i].AvatarURL = src.AvatarURL
		}
	}
}

// StartSpin begins the deterministic winner animation for a settled round.
// It is edge-triggered and idempotent: repeated settlement notifications for
// the same round id, or any notification while that round's spin is already
// running, are ignored. Rounds without a winner (cancelled) never spin.
func (m *Machine) StartSpin(round *model.Round, base []model.Tile) bool {
	if round == nil || round.Winner == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if round.ID == m.lastSpunRound {
		return false
	}
	if m.phase == PhaseSpin || m.phase == PhaseResult {
		log.Printf("[WARN] spin requested for round %d while presenting round %d, skipping",
			round.ID, m.spinRound)
		return false
	}
	if len(base) > m.cfg.MaxBaseTiles {
		base = base[:m.cfg.MaxBaseTiles]
	}
	strip, stop := BuildStrip(base, round, m.cfg.StripRepeats)

	m.phase = PhaseSpin
	m.spinRound = round.ID
	m.lastSpunRound = round.ID
	m.display = strip
	m.stopIndex = stop
	m.spinEndsAt = m.now().Add(m.cfg.SpinDuration)
	return true
}

// Advance moves the machine along its timed transitions. Call it on a short
// ticker; it is cheap when nothing is due.
func (m *Machine) Advance() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	switch m.phase {
	case PhaseActive:
		if m.slowAt.IsZero() {
			m.slowAt = now.Add(m.cfg.SlowDelay)
		}
		if !now.Before(m.slowAt) {
			m.phase = PhaseSlow
			m.rebuildDisplay()
		}
	case PhaseSpin:
		if !now.Before(m.spinEndsAt) {
			m.phase = PhaseResult
			m.resultEndsAt = now.Add(m.cfg.ResultHold)
		}
	case PhaseResult:
		if !now.Before(m.resultEndsAt) {
			done := m.spinRound
			m.phase = PhaseActive
			m.slowAt = now.Add(m.cfg.SlowDelay)
			m.spinRound = 0
			m.stopIndex = 0
			m.rebuildDisplay()
			if m.onRoundDone != nil {
				// Runs under the machine lock; must not call back in.
				m.onRoundDone(done)
			}
		}
	}
}

// rebuildDisplay recomputes the display list for ACTIVE/SLOW. Caller holds
// the lock.
func (m *Machine) rebuildDisplay() {
	if m.phase == PhaseSlow {
		m.tick++
		base := m.real
		if len(base) > m.cfg.MaxBaseTiles {
			base = base[:m.cfg.MaxBaseTiles]
		}
		m.display = Mix(base, m.roundID, m.tick, m.cfg.TargetTiles)
		return
	}
	m.display = copyTiles(m.real)
}

// sameTileSet compares by key only; profile enrichment arriving later does
// not count as a list change.
func sameTileSet(a, b []model.Tile) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key {
			return false
		}
	}
	return true
}
