// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE HERE?
// The original data layout was one serialized JSON blob per collection,
// which forces every write to rewrite the whole collection. SQLite keeps
// the same external contract — a durable mapping from entity id to record —
// but each entity is its own row, so a write touches exactly one user's
// data. modernc.org/sqlite is a pure Go translation of SQLite, so there is
// no C toolchain involved and ":memory:" databases make tests trivial.
//
// SINGLE-WRITER MODEL:
// The store is owned by a single process. WAL mode lets reads proceed while
// a write is in flight, but there is deliberately no cross-process locking
// or conflict resolution — concurrent multi-writer access is unsupported.
//
// CORRUPTION POLICY:
// JSON-typed columns (preferences, features, nutrients) decode leniently: a
// corrupt value reads back as the zero value instead of failing the whole
// read, so one damaged record cannot make the account system unusable.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// schemaVersion is the version of the table shapes below. It is recorded in
// the schema_version table so a future shape change has a defined place to
// hook a migration instead of guessing what an old file contains.
const schemaVersion = 1

// DB wraps a sql.DB connection pool. The per-collection stores (UserStore,
// SubscriptionStore, UsageStore, ActivityStore) share one DB; DB itself
// implements repository.StoreAdmin.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows reads concurrent with the single writer.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Always defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Per-collection store accessors. The stores are stateless views over the
// shared connection pool, so constructing them on demand is free.

func (db *DB) Users() *UserStore                 { return NewUserStore(db) }
func (db *DB) Subscriptions() *SubscriptionStore { return NewSubscriptionStore(db) }
func (db *DB) Usage() *UsageStore                { return NewUsageStore(db) }
func (db *DB) Activity() *ActivityStore          { return NewActivityStore(db) }

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			phone         TEXT NOT NULL DEFAULT '',
			auth_method   TEXT NOT NULL DEFAULT 'email',
			password_hash TEXT NOT NULL DEFAULT '',
			is_active     INTEGER NOT NULL DEFAULT 1,
			location      TEXT NOT NULL DEFAULT '',
			avatar        TEXT NOT NULL DEFAULT '',
			preferences   TEXT NOT NULL DEFAULT '{}',
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Subscriptions are 1:1 with users, so user_id is the primary key.
	// The three limit columns and the features JSON are always a verbatim
	// copy of the plan catalog entry at last write.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS subscriptions (
			user_id            TEXT PRIMARY KEY,
			plan               TEXT NOT NULL,
			status             TEXT NOT NULL,
			start_date         DATETIME NOT NULL,
			end_date           DATETIME NOT NULL,
			auto_renew         INTEGER NOT NULL DEFAULT 0,
			last_payment       DATETIME,
			next_payment       DATETIME,
			payment_method     TEXT NOT NULL DEFAULT '',
			scans_per_month    INTEGER NOT NULL,
			analyses_per_month INTEGER NOT NULL,
			reports_per_month  INTEGER NOT NULL,
			features           TEXT NOT NULL DEFAULT '{}',
			created_at         DATETIME NOT NULL,
			updated_at         DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating subscriptions table: %w", err)
	}

	// Lifetime counters live on usage_stats; monthly buckets get their own
	// table keyed (user_id, period) so an increment is a single additive
	// upsert instead of a read-modify-write of the whole record.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS usage_stats (
			user_id          TEXT PRIMARY KEY,
			total_scans      INTEGER NOT NULL DEFAULT 0,
			total_analyses   INTEGER NOT NULL DEFAULT 0,
			total_reports    INTEGER NOT NULL DEFAULT 0,
			total_food_waste REAL NOT NULL DEFAULT 0,
			total_fertilizer REAL NOT NULL DEFAULT 0,
			waste_reduction  REAL NOT NULL DEFAULT 0,
			last_updated     DATETIME NOT NULL,
			created_at       DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS monthly_usage (
			user_id    TEXT NOT NULL,
			period     TEXT NOT NULL,
			scans      INTEGER NOT NULL DEFAULT 0,
			analyses   INTEGER NOT NULL DEFAULT 0,
			reports    INTEGER NOT NULL DEFAULT 0,
			food_waste REAL NOT NULL DEFAULT 0,
			fertilizer REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, period)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating usage tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS app_data (
			user_id       TEXT PRIMARY KEY,
			default_units TEXT NOT NULL DEFAULT 'metric',
			auto_save     INTEGER NOT NULL DEFAULT 1,
			sync_enabled  INTEGER NOT NULL DEFAULT 1,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS scans (
			id                   TEXT PRIMARY KEY,
			user_id              TEXT NOT NULL,
			timestamp            DATETIME NOT NULL,
			food_type            TEXT NOT NULL DEFAULT '',
			weight               REAL NOT NULL DEFAULT 0,
			nutrients            TEXT NOT NULL DEFAULT '{}',
			fertilizer_potential REAL NOT NULL DEFAULT 0,
			image                TEXT NOT NULL DEFAULT '',
			location             TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS analyses (
			id        TEXT PRIMARY KEY,
			user_id   TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			scan_id   TEXT NOT NULL DEFAULT '',
			summary   TEXT NOT NULL DEFAULT '',
			score     REAL NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS reports (
			id        TEXT PRIMARY KEY,
			user_id   TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			title     TEXT NOT NULL DEFAULT '',
			summary   TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_scans_user_id ON scans(user_id);
		CREATE INDEX IF NOT EXISTS idx_analyses_user_id ON analyses(user_id);
		CREATE INDEX IF NOT EXISTS idx_reports_user_id ON reports(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating activity tables: %w", err)
	}

	return db.ensureSchemaVersion()
}

// ensureSchemaVersion records the schema version on first run and is the
// hook point for future migrations. A database with no version row is a
// fresh or legacy (version 0) file; either way the tables above are valid
// for version 1, so we just stamp it.
func (db *DB) ensureSchemaVersion() error {
	_, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	err = db.conn.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&current)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.conn.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("stamping schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	case current > schemaVersion:
		return fmt.Errorf("database schema version %d is newer than this binary supports (%d)", current, schemaVersion)
	case current < schemaVersion:
		if _, err := db.conn.Exec(`UPDATE schema_version SET version = ?`, schemaVersion); err != nil {
			return fmt.Errorf("updating schema version: %w", err)
		}
	}

	return nil
}

// encodeJSON marshals v for storage in a JSON text column.
// The value types we store (structs and string-keyed maps) cannot fail to
// marshal, so a failure degrades to an empty object rather than an error.
func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// decodeJSON unmarshals a JSON text column into v. A corrupt or empty
// value leaves v at its zero value — reads must survive damaged rows.
func decodeJSON(raw string, v any) {
	if raw == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw), v)
}
