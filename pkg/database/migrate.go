package database

import (
	"database/sql"
	"fmt"
	"os"
)

// Migrate applies docs/schema.sql. Override the schema location with
// EPIDASH_SCHEMA_PATH when running a binary outside the repo root.
func Migrate(db *sql.DB) error {
	path := os.Getenv("EPIDASH_SCHEMA_PATH")
	if path == "" {
		path = "docs/schema.sql"
	}
	return MigrateFrom(db, path)
}

func MigrateFrom(db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
