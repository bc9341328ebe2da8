package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"JackpotWheel/internal/model"
)

// SQLiteRecorder persists round history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance (dashboards read while the bot writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settled_rounds (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			round_id      INTEGER NOT NULL,
			status        TEXT,
			winner        TEXT,
			prize         REAL,
			pot_total     REAL,
			entries_count INTEGER,
			winner_stake  REAL,
			win_chance    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settled_round ON settled_rounds(round_id)`,
		`CREATE INDEX IF NOT EXISTS idx_settled_ts ON settled_rounds(timestamp)`,

		`CREATE TABLE IF NOT EXISTS degen_updates (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			round_id   INTEGER NOT NULL,
			account    TEXT,
			win_chance REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_degen_ts ON degen_updates(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSettledRound(round *model.Round, entries []model.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var winnerStake, winChance float64
	for _, e := range entries {
		if e.Player == round.Winner {
			winnerStake += e.Amount
		}
	}
	if round.PotTotal > 0 {
		winChance = winnerStake / round.PotTotal * 100
	}

	_, err := r.db.Exec(`INSERT INTO settled_rounds
		(timestamp, round_id, status, winner, prize, pot_total, entries_count, winner_stake, win_chance)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), round.ID, string(round.Status), round.Winner,
		round.Prize, round.PotTotal, len(entries), winnerStake, winChance,
	)
	return err
}

func (r *SQLiteRecorder) RecordDegenUpdate(entry *model.DegenEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO degen_updates
		(timestamp, round_id, account, win_chance)
		VALUES (?,?,?,?)`,
		time.Now().Unix(), entry.RoundID, entry.Account, entry.WinChancePct,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
