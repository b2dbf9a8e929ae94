package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"marketchat/internal/domain"
)

// Open opens a SQLite database with the given DSN.
//
// SQLite allows a single writer, so the pool is pinned to one connection.
// That also keeps ":memory:" databases alive for the lifetime of the pool
// and makes the per-connection pragmas below stick.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

// Migrate creates the marketchat schema. All statements are idempotent.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			shop_name VARCHAR(100) DEFAULT NULL,
			role VARCHAR(16) NOT NULL DEFAULT 'buyer',
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			image TEXT DEFAULT NULL,
			seller_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (seller_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			participant_a INTEGER NOT NULL,
			participant_b INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			pair_key TEXT NOT NULL UNIQUE,
			last_message TEXT DEFAULT NULL,
			last_message_time DATETIME DEFAULT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			sender_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			seen BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_participant_a ON conversations(participant_a);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_participant_b ON conversations(participant_b);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_id ON messages(conversation_id, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_products_seller ON products(seller_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

// wrapUnique maps a unique constraint violation to domain.ErrConflict.
func wrapUnique(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
