// SQLite persistence for the settlement engine.
// Write-through storage behind the engine: campaigns, the donation
// ledger, matching rounds, milestone votes, refund claims, the pool
// balance, and the event journal.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc's driver is not safe for concurrent writer connections.
	handle.SetMaxOpenConns(1)

	if _, err := handle.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		handle.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := handle.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		handle.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{db: handle}
	if err := db.migrate(); err != nil {
		handle.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying handle.
func (db *DB) Close() error { return db.db.Close() }

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Campaign registry. Milestones ride along as JSON: they are
		// only ever read or written as a whole list.
		`CREATE TABLE IF NOT EXISTS campaigns (
			id              INTEGER PRIMARY KEY,
			owner           TEXT NOT NULL,
			title           TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			goal            INTEGER NOT NULL,
			raised          INTEGER NOT NULL DEFAULT 0,
			deadline        TEXT NOT NULL,
			state           TEXT NOT NULL DEFAULT 'ACTIVE',
			beneficiary     TEXT NOT NULL,
			donation_count  INTEGER NOT NULL DEFAULT 0,
			matching_round  INTEGER NOT NULL DEFAULT 0,
			matching_amount INTEGER NOT NULL DEFAULT 0,
			milestone_mode  INTEGER NOT NULL DEFAULT 0,
			milestones_json TEXT NOT NULL DEFAULT '[]',
			created_at      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_state ON campaigns(state)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_owner ON campaigns(owner)`,

		// Append-only donation ledger
		`CREATE TABLE IF NOT EXISTS donations (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			campaign_id INTEGER NOT NULL,
			donor       TEXT NOT NULL,
			amount      INTEGER NOT NULL,
			timestamp   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_donations_campaign ON donations(campaign_id)`,
		`CREATE INDEX IF NOT EXISTS idx_donations_donor ON donations(donor)`,

		// Matching rounds
		`CREATE TABLE IF NOT EXISTS matching_rounds (
			id             INTEGER PRIMARY KEY,
			pool           INTEGER NOT NULL,
			end_time       TEXT NOT NULL,
			distributed    INTEGER NOT NULL DEFAULT 0,
			campaigns_json TEXT NOT NULL DEFAULT '[]'
		)`,

		// Milestone votes, one row per (campaign, milestone, voter)
		`CREATE TABLE IF NOT EXISTS milestone_votes (
			campaign_id   INTEGER NOT NULL,
			milestone_idx INTEGER NOT NULL,
			voter         TEXT NOT NULL,
			weight        INTEGER NOT NULL,
			approve       INTEGER NOT NULL,
			PRIMARY KEY (campaign_id, milestone_idx, voter)
		)`,

		// Refund claim markers
		`CREATE TABLE IF NOT EXISTS refund_claims (
			campaign_id INTEGER NOT NULL,
			donor       TEXT NOT NULL,
			amount      INTEGER NOT NULL,
			claimed_at  TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (campaign_id, donor)
		)`,

		// Global matching-pool balance, a single row
		`CREATE TABLE IF NOT EXISTS pool_balance (
			id      INTEGER PRIMARY KEY CHECK (id = 1),
			balance INTEGER NOT NULL DEFAULT 0
		)`,

		// Event journal
		`CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			time        TEXT NOT NULL,
			campaign_id INTEGER NOT NULL DEFAULT 0,
			round_id    INTEGER NOT NULL DEFAULT 0,
			account     TEXT NOT NULL DEFAULT '',
			amount      INTEGER NOT NULL DEFAULT 0,
			idx         INTEGER NOT NULL DEFAULT 0,
			state       TEXT NOT NULL DEFAULT '',
			note        TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_campaign ON events(campaign_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
	}
}
