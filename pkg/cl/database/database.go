package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when the database file does not exist.
var ErrNotFound = errors.New("database file not found")

// Mode selects how a database file is opened.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// Open opens the SQLite database at path and checks the connection.
// ReadOnly connections never create the file.
func Open(ctx context.Context, path string, mode Mode) (*sql.DB, error) {
	if mode == ReadOnly {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
			}
			return nil, fmt.Errorf("cannot stat database: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	if mode == ReadOnly {
		dsn += "&mode=ro"
	} else {
		dsn += "&_journal_mode=WAL&_foreign_keys=ON"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot ping database: %w", err)
	}

	return db, nil
}
