package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rsapq/rsapq-go/internal/cert"
)

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	bySN   map[string]*cert.Certificate
	serial []string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{bySN: make(map[string]*cert.Certificate)}
}

// Put stores a copy of c.
func (m *Memory) Put(ctx context.Context, c *cert.Certificate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bySN[c.SerialNumber]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSerial, c.SerialNumber)
	}
	cp := *c
	m.bySN[c.SerialNumber] = &cp
	m.serial = append(m.serial, c.SerialNumber)
	return nil
}

// Get returns a copy of the stored certificate.
func (m *Memory) Get(ctx context.Context, serial string) (*cert.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.bySN[serial]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, serial)
	}
	cp := *c
	return &cp, nil
}

// List returns copies of all certificates in insertion order.
func (m *Memory) List(ctx context.Context) ([]*cert.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*cert.Certificate, 0, len(m.serial))
	for _, sn := range m.serial {
		cp := *m.bySN[sn]
		out = append(out, &cp)
	}
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
