// Package sqliterepo stores credentials in a local SQLite database.
package sqliterepo

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jrsteele09/go-auth-gateway/credentials"
)

var _ credentials.Repo = (*Repo)(nil)

type Repo struct {
	db *sql.DB
}

// Open opens (creating when needed) the database at dsn and applies the schema.
func Open(dsn string) (*Repo, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	repo, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// New uses an already opened database.
func New(db *sql.DB) (*Repo, error) {
	if err := initSchema(db); err != nil {
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", credentials.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (r *Repo) Put(key, value string) error {
	_, err := r.db.Exec(`
INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, datetime('now'))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (r *Repo) Delete(key string) error {
	if _, err := r.db.Exec(`DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}
