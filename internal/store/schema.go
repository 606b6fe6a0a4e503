package store

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS release_counts (
			genre TEXT NOT NULL,
			year INTEGER NOT NULL,
			count INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (genre, year)
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, currentSchemaVersion)
	return err
}
