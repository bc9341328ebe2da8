package ledger

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"JackpotWheel/internal/model"
)

// MockClient simulates a ledger for development and testing. Rounds advance
// on their own: the active round settles once its duration elapses and a new
// one opens, with the winner drawn amount-weighted from the entries.
type MockClient struct {
	mu            sync.Mutex
	rounds        map[int64]*model.Round
	entries       map[int64][]model.Entry
	activeID      int64
	roundDuration time.Duration
	rand          *rand.Rand
	accounts      []string
}

// NewMockClient seeds a mock ledger with one settled and one open round.
func NewMockClient(roundDuration time.Duration) *MockClient {
	m := &MockClient{
		rounds:        make(map[int64]*model.Round),
		entries:       make(map[int64][]model.Entry),
		roundDuration: roundDuration,
		rand:          rand.New(rand.NewSource(time.Now().UnixNano())),
		accounts: []string{
			"7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
			"9aE476sH92Vz7DMPyq5WLPkrKWivxeuTKEFKd2sZZcde",
			"3nQdLuzAJRU2zvDJmsnhZcKYAKy6u5XPW3x4jvuCnFGh",
			"BqYrDcWJyTzYyKBx9qr9eJDJx4a2QpT6vZ8mNkTnPmAW",
		},
	}
	now := time.Now()
	prev := &model.Round{
		ID:           1,
		Status:       model.RoundPaid,
		StartedAt:    now.Add(-2 * roundDuration),
		EndsAt:       now.Add(-roundDuration),
		MinEntry:     0.1,
		PotTotal:     1.5,
		EntriesCount: 2,
		Winner:       m.accounts[0],
		Prize:        1.35,
	}
	m.rounds[1] = prev
	m.entries[1] = []model.Entry{
		{RoundID: 1, Index: 0, Player: m.accounts[0], Amount: 1.0},
		{RoundID: 1, Index: 1, Player: m.accounts[1], Amount: 0.5},
	}
	m.openRound(2, now)
	return m
}

func (m *MockClient) Name() string { return "mock" }

func (m *MockClient) ActiveRoundID() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance(time.Now())
	return m.activeID, nil
}

func (m *MockClient) Round(id int64) (*model.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance(time.Now())
	r, ok := m.rounds[id]
	if !ok {
		return nil, fmt.Errorf("round %d not found", id)
	}
	cp := *r
	return &cp, nil
}

func (m *MockClient) Entries(roundID int64, offset, limit int) ([]model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.entries[roundID]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]model.Entry, end-offset)
	copy(out, all[offset:end])
	return out, nil
}

func (m *MockClient) PlayerTotal(roundID int64, account string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, e := range m.entries[roundID] {
		if e.Player == account {
			total += e.Amount
		}
	}
	return total, nil
}

func (m *MockClient) SubmitEntry(amount float64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rounds[m.activeID]
	if r == nil || r.Status != model.RoundOpen {
		return fmt.Errorf("no open round")
	}
	account := m.accounts[m.rand.Intn(len(m.accounts))]
	m.entries[r.ID] = append(m.entries[r.ID], model.Entry{
		RoundID: r.ID,
		Index:   len(m.entries[r.ID]),
		Player:  account,
		Amount:  amount,
	})
	r.PotTotal += amount
	r.EntriesCount++
	return nil
}

func (m *MockClient) openRound(id int64, now time.Time) {
	m.rounds[id] = &model.Round{
		ID:        id,
		Status:    model.RoundOpen,
		StartedAt: now,
		EndsAt:    now.Add(m.roundDuration),
		MinEntry:  0.1,
	}
	m.activeID = id
}

// advance settles the active round when its time is up and opens the next.
// Caller holds the lock.
func (m *MockClient) advance(now time.Time) {
	r := m.rounds[m.activeID]
	if r == nil || r.Status != model.RoundOpen {
		return
	}
	// Trickle in bets so the wheel has something to show.
	if m.rand.Float64() < 0.2 {
		amount := 0.1 + m.rand.Float64()*2
		player := m.accounts[m.rand.Intn(len(m.accounts))]
		m.entries[r.ID] = append(m.entries[r.ID], model.Entry{
			RoundID: r.ID,
			Index:   len(m.entries[r.ID]),
			Player:  player,
			Amount:  amount,
		})
		r.PotTotal += amount
		r.EntriesCount++
	}
	if now.Before(r.EndsAt) {
		return
	}
	ents := m.entries[r.ID]
	if len(ents) == 0 {
		r.Status = model.RoundCancelled
	} else {
		r.Status = model.RoundPaid
		r.Winner = m.drawWinner(ents, r.PotTotal)
		r.Prize = r.PotTotal * 0.9
	}
	m.openRound(r.ID+1, now)
}

// drawWinner picks amount-weighted, matching the odds the real ledger implies.
func (m *MockClient) drawWinner(ents []model.Entry, pot float64) string {
	target := m.rand.Float64() * pot
	var acc float64
	for _, e := range ents {
		acc += e.Amount
		if target < acc {
			return e.Player
		}
	}
	return ents[len(ents)-1].Player
}
