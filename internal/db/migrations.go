package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: packages created before zones were introduced carry NULL;
	// normalize to empty string so handlers can treat zone as plain text.
	`UPDATE conductors SET zone = '' WHERE zone IS NULL`,
}

// Migrate ensures the schema exists and runs the database migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
