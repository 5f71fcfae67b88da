// Package journal records bootstrap runs and their step outcomes in a
// SQLite database so past runs can be inspected with "botstrap history".
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "journal.db"
)

// Journal is a handle on the run journal database.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultPath returns the journal location in the user data directory:
// $XDG_DATA_HOME/botstrap/journal.db, falling back to ~/.local/share.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "botstrap", defaultDBFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("journal: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "botstrap", defaultDBFile), nil
}

// Open opens (creating if needed) the journal at path and migrates its
// schema. The database runs in WAL mode with a 5 s busy timeout and a
// single connection.
func Open(ctx context.Context, path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("journal: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set busy_timeout: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Journal{db: db, now: time.Now}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
