package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store manages the grabcast SQLite database: download history, the client
// server registry and persisted settings.
type Store struct {
	DB *sql.DB
}

// NewStore opens the database from the given directory.
// Creates the directory and tables if they don't exist.
func NewStore(storeDir string) (*Store, error) {
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %v", err)
	}

	dbPath := filepath.Join(storeDir, "grabcast.db")
	database, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	_, err = database.Exec(`
		CREATE TABLE IF NOT EXISTS downloads (
			file_key TEXT PRIMARY KEY,
			url TEXT,
			title TEXT,
			ext TEXT,
			media_type TEXT,
			size INTEGER,
			download_url TEXT,
			created_at TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS servers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			auth_method TEXT NOT NULL,
			token TEXT,
			phone TEXT,
			active BOOLEAN NOT NULL DEFAULT 0,
			enabled BOOLEAN NOT NULL DEFAULT 1,
			added_at TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT
		);
	`)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &Store{DB: database}, nil
}

// Close closes the database connection.
func (s *Store) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}
