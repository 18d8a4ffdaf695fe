// Package store provides data persistence for optimizer runs and imported
// candle history, backed by SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/google/uuid"

	"backtestopt/internal/candle"
	"backtestopt/internal/primitives"
	"backtestopt/internal/trading"
)

// SQLiteStore persists optimizer runs, their hall-of-fame individuals, and
// imported candle history.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at
// dbPath and initializes its schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// Close releases the underlying database connection pool.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS candles (
		exchange  TEXT NOT NULL,
		symbol    TEXT NOT NULL,
		interval  INTEGER NOT NULL,
		time      INTEGER NOT NULL,
		open      REAL NOT NULL,
		high      REAL NOT NULL,
		low       REAL NOT NULL,
		close     REAL NOT NULL,
		volume    REAL NOT NULL,
		PRIMARY KEY (exchange, symbol, interval, time)
	);

	CREATE TABLE IF NOT EXISTS optimize_runs (
		id           TEXT PRIMARY KEY,
		started_at   DATETIME NOT NULL,
		finished_at  DATETIME,
		seed         INTEGER NOT NULL,
		generations  INTEGER NOT NULL,
		params_json  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS hall_of_fame_individuals (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id        TEXT NOT NULL REFERENCES optimize_runs(id),
		generation    INTEGER NOT NULL,
		rank          INTEGER NOT NULL,
		fitness       REAL NOT NULL,
		trading_json  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_hof_run ON hall_of_fame_individuals(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertCandles upserts a batch of candles for exchange/symbol at interval.
// Replaying the same CSV import twice is idempotent: later rows with the
// same primary key overwrite earlier ones.
func (s *SQLiteStore) InsertCandles(exchange, symbol string, interval primitives.Interval, candles []candle.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO candles (exchange, symbol, interval, time, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(exchange, symbol, uint64(interval), uint64(c.Time), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("inserting candle at %s: %w", c.Time, err)
		}
	}

	return tx.Commit()
}

// ListCandles reads back candles for exchange/symbol/interval over
// [start, end), ordered by time.
func (s *SQLiteStore) ListCandles(exchange, symbol string, interval primitives.Interval, start, end primitives.Timestamp) ([]candle.Candle, error) {
	rows, err := s.db.Query(
		`SELECT time, open, high, low, close, volume FROM candles
		 WHERE exchange = ? AND symbol = ? AND interval = ? AND time >= ? AND time < ?
		 ORDER BY time ASC`,
		exchange, symbol, uint64(interval), uint64(start), uint64(end),
	)
	if err != nil {
		return nil, fmt.Errorf("querying candles: %w", err)
	}
	defer rows.Close()

	var out []candle.Candle
	for rows.Next() {
		var t uint64
		var c candle.Candle
		if err := rows.Scan(&t, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scanning candle row: %w", err)
		}
		c.Time = primitives.Timestamp(t)
		out = append(out, c)
	}
	return out, rows.Err()
}

// OptimizeRun records one optimizer invocation's parameters and timing.
type OptimizeRun struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Seed        int64
	Generations int
	ParamsJSON  string
}

// InsertOptimizeRun records a new run and returns its generated ID.
func (s *SQLiteStore) InsertOptimizeRun(seed int64, generations int, params interface{}) (string, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshalling run params: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO optimize_runs (id, started_at, seed, generations, params_json) VALUES (?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), seed, generations, string(paramsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("inserting optimize run: %w", err)
	}
	return id, nil
}

// FinishOptimizeRun marks runID as finished at the current time.
func (s *SQLiteStore) FinishOptimizeRun(runID string) error {
	_, err := s.db.Exec(`UPDATE optimize_runs SET finished_at = ? WHERE id = ?`, time.Now().UTC(), runID)
	return err
}

// InsertHallOfFame records generation's hall-of-fame individuals for runID,
// best-first (rank 0 is the best).
func (s *SQLiteStore) InsertHallOfFame(runID string, generation int, individuals []trading.TradingParams, fitnesses []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO hall_of_fame_individuals (run_id, generation, rank, fitness, trading_json) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, params := range individuals {
		tradingJSON, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshalling individual %d: %w", i, err)
		}
		if _, err := stmt.Exec(runID, generation, i, fitnesses[i], string(tradingJSON)); err != nil {
			return fmt.Errorf("inserting individual %d: %w", i, err)
		}
	}

	return tx.Commit()
}
