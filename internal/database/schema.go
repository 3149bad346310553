package database

import (
	"context"
	"database/sql"
	"fmt"
)

// mysqlSchema is applied statement by statement because the driver does
// not enable multiStatements.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		name          VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'user',
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME(6)  NOT NULL,
		updated_at    DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_users_email (email),
		CONSTRAINT chk_users_role CHECK (role IN ('user', 'admin'))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)    NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS events (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title       VARCHAR(255)  NOT NULL,
		description TEXT          NULL,
		date        VARCHAR(10)   NOT NULL,
		start_time  VARCHAR(5)    NOT NULL,
		end_time    VARCHAR(5)    NOT NULL,
		location    VARCHAR(255)  NOT NULL,
		capacity    INT           NOT NULL,
		price       DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		image_url   VARCHAR(2048) NULL,
		created_by  BIGINT UNSIGNED NOT NULL,
		created_at  DATETIME(6)   NOT NULL,
		KEY idx_events_schedule (date, start_time, id),
		CONSTRAINT fk_events_creator FOREIGN KEY (created_by) REFERENCES users (id),
		CONSTRAINT chk_events_capacity CHECK (capacity > 0),
		CONSTRAINT chk_events_price CHECK (price >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		event_id       BIGINT UNSIGNED NOT NULL,
		user_id        BIGINT UNSIGNED NOT NULL,
		attendee_name  VARCHAR(255) NOT NULL,
		attendee_email VARCHAR(255) NOT NULL,
		attendee_phone VARCHAR(32)  NULL,
		quantity       INT          NOT NULL DEFAULT 1,
		status         VARCHAR(16)  NOT NULL DEFAULT 'confirmed',
		booking_date   DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_bookings_event_user (event_id, user_id),
		KEY idx_bookings_event_status (event_id, status),
		KEY idx_bookings_user (user_id, booking_date),
		CONSTRAINT fk_bookings_event FOREIGN KEY (event_id) REFERENCES events (id),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT chk_bookings_quantity CHECK (quantity > 0),
		CONSTRAINT chk_bookings_status CHECK (status IN ('confirmed', 'cancelled'))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name          TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
		is_active     INTEGER NOT NULL DEFAULT 1,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		title       TEXT NOT NULL,
		description TEXT,
		date        TEXT NOT NULL,
		start_time  TEXT NOT NULL,
		end_time    TEXT NOT NULL,
		location    TEXT NOT NULL,
		capacity    INTEGER NOT NULL CHECK (capacity > 0),
		price       REAL NOT NULL DEFAULT 0 CHECK (price >= 0),
		image_url   TEXT,
		created_by  INTEGER NOT NULL REFERENCES users (id),
		created_at  DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_schedule ON events (date, start_time, id)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id       INTEGER NOT NULL REFERENCES events (id),
		user_id        INTEGER NOT NULL REFERENCES users (id),
		attendee_name  TEXT NOT NULL,
		attendee_email TEXT NOT NULL,
		attendee_phone TEXT,
		quantity       INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
		status         TEXT NOT NULL DEFAULT 'confirmed' CHECK (status IN ('confirmed', 'cancelled')),
		booking_date   DATETIME NOT NULL,
		UNIQUE (event_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_event_status ON bookings (event_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings (user_id, booking_date)`,
}

// Migrate creates any missing tables and indexes for the dialect.  It is
// safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	stmts := mysqlSchema
	if dialect == SQLite {
		stmts = sqliteSchema
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
