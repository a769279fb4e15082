package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // CGO-less SQLite driver

	"github.com/muurk/netsetup/internal/logging"
)

// Credentials are the station credentials the device joins with once set up.
type Credentials struct {
	SSID      string
	Password  string
	UpdatedAt time.Time
}

// Store persists the device's single credential record. A device with a
// stored record is "set up" and skips the portal on boot.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the credential store at dsn.
func OpenStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure credential store: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS credentials (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			ssid       TEXT NOT NULL,
			password   TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create credential table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored credentials. ok is false when the device has
// not been set up.
func (s *Store) Load(ctx context.Context) (creds Credentials, ok bool, err error) {
	var updated string
	err = s.db.QueryRowContext(ctx,
		`SELECT ssid, password, updated_at FROM credentials WHERE id = 1`,
	).Scan(&creds.SSID, &creds.Password, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		// The credentials are still usable; only the timestamp is lost.
		logging.Warn("Stored credentials have an invalid timestamp",
			zap.String("updated_at", updated),
			zap.Error(err),
		)
		creds.UpdatedAt = time.Time{}
	}
	return creds, true, nil
}

// Save replaces the stored credentials.
func (s *Store) Save(ctx context.Context, ssid, password string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, ssid, password, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ssid = excluded.ssid, password = excluded.password, updated_at = excluded.updated_at
	`, ssid, password, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Clear removes the stored credentials, returning the device to setup mode.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// IsSetup reports whether credentials are stored.
func (s *Store) IsSetup(ctx context.Context) (bool, error) {
	_, ok, err := s.Load(ctx)
	return ok, err
}
