package db

import (
	"context"
	"fmt"
)

// migrate repairs rows written before the current storage conventions.
func (db *DB) migrate() error {
	return db.fixTimeFormats()
}

// fixTimeFormats rewrites timestamps stored with a zone suffix.
// modernc.org/sqlite stores time.Time values in a format SQLite's date
// functions do not understand.
func (db *DB) fixTimeFormats() error {
	query := `UPDATE api_calls
		 SET timestamp = SUBSTR(timestamp, 1, 19)
		 WHERE length(timestamp) > 19 AND timestamp LIKE '% UTC'`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to fix time formats: %w", err)
	}
	return nil
}
