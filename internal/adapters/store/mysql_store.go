package store

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the core.Store interface
type MySQLStore struct {
	sqlStore
}

var _ core.Store = (*MySQLStore)(nil)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id VARCHAR(64) PRIMARY KEY,
		personal_email VARCHAR(255) NOT NULL,
		telegram_chat_id VARCHAR(64) NOT NULL DEFAULT '',
		role VARCHAR(255) NOT NULL DEFAULT '',
		focus_areas TEXT NOT NULL,
		digest_day VARCHAR(16) NOT NULL DEFAULT 'Sunday',
		digest_time VARCHAR(8) NOT NULL DEFAULT '09:00'
	)`,
	`CREATE TABLE IF NOT EXISTS raw_emails (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		sender VARCHAR(255) NOT NULL,
		subject TEXT NOT NULL,
		body_plain MEDIUMTEXT NOT NULL,
		body_html MEDIUMTEXT NOT NULL,
		received_at VARCHAR(40) NOT NULL,
		processing_status VARCHAR(16) NOT NULL DEFAULT 'pending',
		INDEX idx_raw_emails_user_status (user_id, processing_status)
	)`,
	`CREATE TABLE IF NOT EXISTS email_summaries (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		source_email_id VARCHAR(64) NOT NULL UNIQUE,
		topic VARCHAR(255) NOT NULL,
		summary TEXT NOT NULL,
		category VARCHAR(32) NOT NULL,
		importance INT NOT NULL,
		digest_id VARCHAR(64),
		created_at VARCHAR(40) NOT NULL,
		INDEX idx_summaries_unclaimed (user_id, digest_id, importance)
	)`,
	`CREATE TABLE IF NOT EXISTS digests (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		user_email VARCHAR(255) NOT NULL,
		summary_text TEXT NOT NULL,
		content MEDIUMTEXT NOT NULL,
		period_start VARCHAR(40) NOT NULL,
		period_end VARCHAR(40) NOT NULL,
		is_sent TINYINT NOT NULL DEFAULT 0,
		created_at VARCHAR(40) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		sender_email VARCHAR(255) NOT NULL,
		is_active TINYINT NOT NULL DEFAULT 1,
		INDEX idx_subscriptions_sender (sender_email, is_active)
	)`,
	`CREATE TABLE IF NOT EXISTS run_logs (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL,
		emails_processed INT NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL,
		ran_at VARCHAR(40) NOT NULL
	)`,
}

// NewMySQLStore opens a MySQL-backed store and ensures the schema exists
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	for _, stmt := range mysqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &MySQLStore{sqlStore{db: db, logger: logger}}, nil
}
