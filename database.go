package main

import (
	"database/sql"
	"log"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection. The server opens it at :memory:,
// so the leaderboard lives exactly as long as the process and nothing
// survives a restart.
type DB struct {
	conn *sql.DB
}

// LeaderboardEntry represents one row of the ranked win table
type LeaderboardEntry struct {
	Rank int    `json:"rank"`
	Code string `json:"code"`
	Name string `json:"name"`
	Wins int    `json:"wins"`
}

// OpenDB opens the SQLite database at the given path (":memory:" in normal use)
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// database/sql opens one logical database per pooled connection for
	// :memory: paths; a single connection keeps every query on the same data.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS wins (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		wins INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		code TEXT NOT NULL DEFAULT '',
		round INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_round ON events(round);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// RecordWin increments the win count for a code, inserting it on first win.
// Called exactly once per round, by the lifecycle manager.
func (db *DB) RecordWin(code, name string) error {
	_, err := db.conn.Exec(`
		INSERT INTO wins (code, name, wins) VALUES (?, ?, 1)
		ON CONFLICT(code) DO UPDATE SET
			wins = wins + 1,
			updated_at = CURRENT_TIMESTAMP`,
		code, name,
	)
	return err
}

// WinCount returns the win count for a code (0 if never won)
func (db *DB) WinCount(code string) (int, error) {
	var wins int
	err := db.conn.QueryRow("SELECT wins FROM wins WHERE code = ?", code).Scan(&wins)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return wins, err
}

// TopWins returns the leaderboard, descending by win count. Ties keep
// first-win order (rowid); only the descending ordering is contractual.
func (db *DB) TopWins(limit int) ([]LeaderboardEntry, error) {
	rows, err := db.conn.Query(
		"SELECT code, name, wins FROM wins ORDER BY wins DESC, rowid ASC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Code, &e.Name, &e.Wins); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetSetting returns a settings value, or "" if unset
func (db *DB) GetSetting(key string) string {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// SetSetting stores a settings value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// InsertEvents writes a batch of round events in one transaction
func (db *DB) InsertEvents(batch []RoundEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO events (type, code, round, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, evt := range batch {
		if _, err := stmt.Exec(evt.Type, evt.Code, evt.Round, evt.Timestamp); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// EventCount returns the number of recorded events of the given type
func (db *DB) EventCount(evtType string) (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM events WHERE type = ?", evtType).Scan(&count)
	return count, err
}
