package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the core.Store interface
type SQLiteStore struct {
	sqlStore
}

var _ core.Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	personal_email TEXT NOT NULL,
	telegram_chat_id TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	focus_areas TEXT NOT NULL DEFAULT '[]',
	digest_day TEXT NOT NULL DEFAULT 'Sunday',
	digest_time TEXT NOT NULL DEFAULT '09:00'
);
CREATE TABLE IF NOT EXISTS raw_emails (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	sender TEXT NOT NULL,
	subject TEXT NOT NULL,
	body_plain TEXT NOT NULL,
	body_html TEXT NOT NULL DEFAULT '',
	received_at TEXT NOT NULL,
	processing_status TEXT NOT NULL DEFAULT 'pending'
);
CREATE INDEX IF NOT EXISTS idx_raw_emails_user_status ON raw_emails(user_id, processing_status);
CREATE TABLE IF NOT EXISTS email_summaries (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	source_email_id TEXT NOT NULL UNIQUE,
	topic TEXT NOT NULL,
	summary TEXT NOT NULL,
	category TEXT NOT NULL,
	importance INTEGER NOT NULL,
	digest_id TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_summaries_unclaimed ON email_summaries(user_id, digest_id, importance);
CREATE TABLE IF NOT EXISTS digests (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	user_email TEXT NOT NULL,
	summary_text TEXT NOT NULL,
	content TEXT NOT NULL,
	period_start TEXT NOT NULL,
	period_end TEXT NOT NULL,
	is_sent INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS subscriptions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	sender_email TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_sender ON subscriptions(sender_email, is_active);
CREATE TABLE IF NOT EXISTS run_logs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	status TEXT NOT NULL,
	emails_processed INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	ran_at TEXT NOT NULL
);
`

// NewSQLiteStore opens (and if needed creates) a SQLite-backed store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{sqlStore{db: db, logger: logger}}, nil
}
