package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/henryp-7/hft-bot/internal/domain"
)

// Record kinds in the records table.
const (
	recordQuote = "quote"
	recordFill  = "fill"
)

// SQLiteJournal stores quotes and fills as JSON rows in a single
// append-only table, in WAL mode for cheap sequential writes.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the journal database.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}

	// Configure SQLite for sequential append-heavy logging
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			ts INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create records table: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) AppendQuote(q domain.Quote) error {
	return j.append(recordQuote, int64(q.Ts), q.Symbol, q)
}

func (j *SQLiteJournal) AppendFill(f domain.Fill) error {
	return j.append(recordFill, int64(f.Ts), f.Symbol, f)
}

func (j *SQLiteJournal) append(kind string, ts int64, symbol string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", kind, err)
	}
	_, err = j.db.Exec(
		"INSERT INTO records (kind, ts, symbol, payload) VALUES (?, ?, ?, ?)",
		kind, ts, symbol, payload,
	)
	if err != nil {
		return fmt.Errorf("storage: insert %s: %w", kind, err)
	}
	return nil
}

// Flush is a no-op: every append commits its own transaction.
func (j *SQLiteJournal) Flush() error { return nil }

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Fills reads back all recorded fills in append order. Used to rebuild
// portfolio state from history.
func (j *SQLiteJournal) Fills() ([]domain.Fill, error) {
	rows, err := j.db.Query(
		"SELECT payload FROM records WHERE kind = ? ORDER BY seq ASC", recordFill)
	if err != nil {
		return nil, fmt.Errorf("storage: query fills: %w", err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("storage: scan fill: %w", err)
		}
		var f domain.Fill
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil, fmt.Errorf("storage: unmarshal fill: %w", err)
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// LastSeq returns the highest record sequence number, 0 when empty.
func (j *SQLiteJournal) LastSeq() (uint64, error) {
	var last sql.NullInt64
	if err := j.db.QueryRow("SELECT MAX(seq) FROM records").Scan(&last); err != nil {
		return 0, fmt.Errorf("storage: get last seq: %w", err)
	}
	if !last.Valid {
		return 0, nil
	}
	return uint64(last.Int64), nil
}
