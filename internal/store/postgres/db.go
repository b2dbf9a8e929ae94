package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"marketchat/internal/domain"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the marketchat schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id               BIGSERIAL    PRIMARY KEY,
			name             VARCHAR(100) NOT NULL,
			email            VARCHAR(255) UNIQUE NOT NULL,
			hashed_password  VARCHAR(255) NOT NULL,
			shop_name        VARCHAR(100),
			role             VARCHAR(16)  NOT NULL DEFAULT 'buyer',
			created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS products (
			id         BIGSERIAL    PRIMARY KEY,
			name       VARCHAR(200) NOT NULL,
			image      TEXT,
			seller_id  BIGINT       NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id                TEXT        PRIMARY KEY,
			participant_a     BIGINT      NOT NULL,
			participant_b     BIGINT      NOT NULL,
			product_id        BIGINT      NOT NULL,
			pair_key          TEXT        NOT NULL UNIQUE,
			last_message      TEXT,
			last_message_time TIMESTAMPTZ,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id              BIGSERIAL   PRIMARY KEY,
			conversation_id TEXT        NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender_id       BIGINT      NOT NULL,
			text            TEXT        NOT NULL,
			seen            BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_conversations_participant_a ON conversations(participant_a)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_participant_b ON conversations(participant_b)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_id ON messages(conversation_id, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_products_seller ON products(seller_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// wrapUnique maps a unique_violation to domain.ErrConflict.
func wrapUnique(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
