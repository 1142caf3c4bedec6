package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/rsapq/rsapq-go/internal/cert"
)

const createCertificates = `
CREATE TABLE IF NOT EXISTS certificates (
	serial_number TEXT PRIMARY KEY,
	subject TEXT NOT NULL,
	issuer TEXT NOT NULL,
	not_after TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	body TEXT NOT NULL
);`

// SQLite is a Store backed by a SQLite database. The full certificate is kept
// as JSON in the body column; the other columns are informational.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dsn. ":memory:" gives
// a private in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createCertificates); err != nil {
		db.Close()
		return nil, fmt.Errorf("create certificates table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Put inserts c.
func (s *SQLite) Put(ctx context.Context, c *cert.Certificate) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal certificate: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO certificates (serial_number, subject, issuer, not_after, fingerprint, body) VALUES (?, ?, ?, ?, ?, ?)",
		c.SerialNumber, c.Subject, c.Issuer, c.NotAfter, c.Fingerprint, string(body))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: %s", ErrDuplicateSerial, c.SerialNumber)
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

// Get loads the certificate stored under serial.
func (s *SQLite) Get(ctx context.Context, serial string) (*cert.Certificate, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM certificates WHERE serial_number = ?", serial).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, serial)
	}
	if err != nil {
		return nil, fmt.Errorf("query certificate: %w", err)
	}
	return unmarshalCertificate(body)
}

// List loads every certificate in insertion order.
func (s *SQLite) List(ctx context.Context) ([]*cert.Certificate, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT body FROM certificates ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	var out []*cert.Certificate
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		c, err := unmarshalCertificate(body)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func unmarshalCertificate(body string) (*cert.Certificate, error) {
	var c cert.Certificate
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return nil, fmt.Errorf("unmarshal certificate: %w", err)
	}
	return &c, nil
}
