// Package store keeps issued certificates keyed by serial number.
//
// Records are append-only: a serial is written once and never updated.
// Both implementations are safe for concurrent use.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rsapq/rsapq-go/internal/cert"
)

var (
	// ErrNotFound is returned when no certificate has the requested serial.
	ErrNotFound = errors.New("certificate not found")

	// ErrDuplicateSerial is returned when a serial is already stored.
	ErrDuplicateSerial = errors.New("duplicate serial number")
)

// Store is a certificate table.
type Store interface {
	// Put inserts c under c.SerialNumber.
	Put(ctx context.Context, c *cert.Certificate) error
	// Get returns the certificate stored under serial.
	Get(ctx context.Context, serial string) (*cert.Certificate, error)
	// List returns every stored certificate in insertion order.
	List(ctx context.Context) ([]*cert.Certificate, error)
	// Close releases resources held by the store.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// ErrUnknownDriver is returned by Open for unsupported driver names.
var ErrUnknownDriver = errors.New("unknown store driver")

// Open returns the store named by driver. An empty driver selects memory.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, "sqlite3":
		if dsn == "" {
			dsn = ":memory:"
		}
		return OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
