package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"mention-bot/utils"

	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Store is the data-access handle for the tracking configuration and the mention ledger.
// One Store is opened at start-up and passed to every component that needs it.
type Store struct {
	db *sql.DB
}

// Open initializes the database connection. The file and its directory are created
// if they don't exist, and the schema is migrated.
func Open(dbPath string) (*Store, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("dir", dir))
	}

	// Foreign keys are off by default in sqlite; the thread cascade depends on them.
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", dbPath))
	}
	// A single connection serialises writers, so concurrent backfills never hit SQLITE_BUSY
	// on lock upgrade.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to connect to database", goerr.V("path", dbPath))
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	utils.Logger().Infow("Successfully connected to the database", "path", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS guilds (
        guild_id TEXT PRIMARY KEY,
        name TEXT NOT NULL DEFAULT ''
    );`,
		`CREATE TABLE IF NOT EXISTS tracked_channels (
        channel_id TEXT PRIMARY KEY,
        guild_id TEXT NOT NULL,
        name TEXT NOT NULL DEFAULT '',
        kind TEXT NOT NULL DEFAULT 'text',
        is_intensive BOOLEAN NOT NULL DEFAULT FALSE,
        last_stored_at INTEGER
    );`,
		`CREATE TABLE IF NOT EXISTS tracked_roles (
        guild_id TEXT NOT NULL,
        role_id TEXT NOT NULL,
        UNIQUE(guild_id, role_id)
    );`,
		`CREATE TABLE IF NOT EXISTS user_contexts (
        user_id TEXT PRIMARY KEY,
        guild_id TEXT NOT NULL
    );`,
		`CREATE TABLE IF NOT EXISTS threads (
        thread_id TEXT PRIMARY KEY,
        name TEXT NOT NULL DEFAULT '',
        parent_id TEXT NOT NULL,
        created_at INTEGER NOT NULL
    );`,
		`CREATE TABLE IF NOT EXISTS mentions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        guild_id TEXT NOT NULL,
        channel_id TEXT NOT NULL,
        thread_id TEXT REFERENCES threads(thread_id) ON DELETE CASCADE,
        message_id TEXT NOT NULL,
        mentioned_id TEXT NOT NULL,
        mentioned_name TEXT NOT NULL DEFAULT '',
        author_id TEXT NOT NULL,
        author_name TEXT NOT NULL DEFAULT '',
        created_at INTEGER NOT NULL,
        responded_at INTEGER,
        closed_response_message_id TEXT,
        UNIQUE(message_id, guild_id),
        CHECK (responded_at IS NULL OR responded_at >= created_at)
    );`,
	}
	for _, query := range tables {
		if _, err := s.db.Exec(query); err != nil {
			return goerr.Wrap(err, "failed to create table")
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_tracked_channels_guild ON tracked_channels(guild_id);",
		"CREATE INDEX IF NOT EXISTS idx_mentions_open ON mentions(guild_id, channel_id, mentioned_id, responded_at, created_at);",
		"CREATE INDEX IF NOT EXISTS idx_mentions_thread ON mentions(thread_id);",
		"CREATE INDEX IF NOT EXISTS idx_mentions_guild_created ON mentions(guild_id, created_at);",
	}
	for _, indexQuery := range indexes {
		if _, err := s.db.Exec(indexQuery); err != nil {
			utils.Logger().Warnw("failed to create index", "error", err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// Timestamps are stored as unix milliseconds so ordering survives sub-second gaps.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullableMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
