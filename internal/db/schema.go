package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS conductors (
    id         INTEGER PRIMARY KEY,
    owner_id   INTEGER NOT NULL REFERENCES users(id),
    name       TEXT NOT NULL,
    zone       TEXT NOT NULL DEFAULT '',
    active     INTEGER NOT NULL DEFAULT 1 CHECK (active IN (0, 1)),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_conductors_owner ON conductors(owner_id);

CREATE TABLE IF NOT EXISTS packages (
    id            INTEGER PRIMARY KEY,
    conductor_id  INTEGER NOT NULL REFERENCES conductors(id),
    tracking      TEXT NOT NULL,
    category      TEXT NOT NULL CHECK (category IN ('prepago', 'contraentrega')),
    state         INTEGER NOT NULL DEFAULT 0 CHECK (state IN (0, 1, 2)),
    delivery_date TEXT NOT NULL,
    value         REAL,
    proof         BLOB,
    proof_mime    TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_packages_conductor ON packages(conductor_id);
CREATE INDEX IF NOT EXISTS idx_packages_tracking ON packages(tracking);

CREATE TABLE IF NOT EXISTS operations (
    id               INTEGER PRIMARY KEY,
    tenant_id        INTEGER NOT NULL REFERENCES users(id),
    operation_type   TEXT NOT NULL,
    description      TEXT NOT NULL,
    details          TEXT NOT NULL DEFAULT '{}',
    affected_records INTEGER NOT NULL DEFAULT 0,
    can_undo         INTEGER NOT NULL DEFAULT 0 CHECK (can_undo IN (0, 1)),
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    undone_at        DATETIME
);

CREATE INDEX IF NOT EXISTS idx_operations_tenant_created
    ON operations(tenant_id, created_at DESC);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
