package main

import (
	"database/sql"
	"fmt"
)

func initDB(db *sql.DB) error {
	var dbVersion int
	err := db.QueryRow("SELECT version FROM db_version WHERE name='gcalmirror'").Scan(&dbVersion)
	if err != nil {
		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS db_version (
			name TEXT PRIMARY KEY,
			version INTEGER
		)`); err != nil {
			return fmt.Errorf("creating db_version table: %w", err)
		}
		if _, err := db.Exec(`INSERT OR IGNORE INTO db_version (name, version) VALUES ('gcalmirror', 0)`); err != nil {
			return fmt.Errorf("initializing db_version table: %w", err)
		}
		dbVersion = 0
	}

	if dbVersion == 0 {
		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS tokens (
			account_name TEXT PRIMARY KEY,
			token TEXT)`); err != nil {
			return fmt.Errorf("creating tokens table: %w", err)
		}

		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sync_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			source_events INTEGER NOT NULL,
			mirror_events INTEGER NOT NULL,
			created INTEGER NOT NULL,
			deleted INTEGER NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '')`); err != nil {
			return fmt.Errorf("creating sync_history table: %w", err)
		}

		if _, err := db.Exec(`UPDATE db_version SET version = 1 WHERE name = 'gcalmirror'`); err != nil {
			return fmt.Errorf("updating db_version table: %w", err)
		}
	}

	return nil
}
