package recorder

import (
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	"cosmossdk.io/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists round history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger log.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the node writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			pool_id      INTEGER NOT NULL,
			round        INTEGER NOT NULL,
			height       INTEGER NOT NULL,
			block_time   INTEGER NOT NULL,
			n_players    INTEGER NOT NULL,
			seed         TEXT,
			winner_index INTEGER,
			winner       TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_rounds_pool_round ON rounds(pool_id, round)`,

		`CREATE TABLE IF NOT EXISTS payouts (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			pool_id INTEGER NOT NULL,
			round   INTEGER NOT NULL,
			height  INTEGER NOT NULL,
			winner  TEXT NOT NULL,
			amount  TEXT NOT NULL,
			cut     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payouts_pool ON payouts(pool_id, round)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// uint64 values go in as decimal text; SQLite integers are signed 64-bit.

func (r *SQLiteRecorder) RecordRound(rr *RoundResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var winner any
	if rr.Winner != "" {
		winner = rr.Winner
	}
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO rounds (pool_id, round, height, block_time, n_players, seed, winner_index, winner)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(rr.PoolID), int64(rr.Round), rr.Height, rr.BlockTime, int64(rr.NPlayers),
		strconv.FormatUint(rr.Seed, 10), int64(rr.WinnerIndex), winner,
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordPayout(p *PayoutEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(
		`INSERT INTO payouts (pool_id, round, height, winner, amount, cut) VALUES (?, ?, ?, ?, ?, ?)`,
		int64(p.PoolID), int64(p.Round), p.Height, p.Winner,
		strconv.FormatUint(p.Amount, 10), strconv.FormatUint(p.Cut, 10),
	)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}
	return nil
}

// Rounds returns the recorded rounds of poolID, oldest first.
func (r *SQLiteRecorder) Rounds(poolID uint64) ([]RoundResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(
		`SELECT pool_id, round, height, block_time, n_players, seed, winner_index, winner
		 FROM rounds WHERE pool_id = ? ORDER BY round`, int64(poolID))
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var out []RoundResult
	for rows.Next() {
		var (
			rr                    RoundResult
			pool, round, nPlayers int64
			winnerIndex           int64
			seed                  string
			winner                sql.NullString
		)
		if err := rows.Scan(&pool, &round, &rr.Height, &rr.BlockTime, &nPlayers, &seed, &winnerIndex, &winner); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		rr.PoolID = uint64(pool)
		rr.Round = uint64(round)
		rr.NPlayers = uint16(nPlayers)
		rr.WinnerIndex = uint16(winnerIndex)
		rr.Winner = winner.String
		if rr.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("parse seed %q: %w", seed, err)
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// TotalPaid sums the payouts recorded for poolID.
func (r *SQLiteRecorder) TotalPaid(poolID uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT amount FROM payouts WHERE pool_id = ?`, int64(poolID))
	if err != nil {
		return 0, fmt.Errorf("query payouts: %w", err)
	}
	defer rows.Close()

	var total uint64
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return 0, fmt.Errorf("scan payout: %w", err)
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", s, err)
		}
		total += v
	}
	return total, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
