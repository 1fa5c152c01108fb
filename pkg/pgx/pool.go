package pgx

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultPool is the name used when a resource does not name a pool.
const DefaultPool = "default"

var (
	ErrPoolNotFound      = errors.New("connection pool not found")
	ErrPoolAlreadyExists = errors.New("connection pool already exists")
)

// PoolManager holds named *pgxpool.Pool's so that resources backed by
// different databases can share one process.
type PoolManager struct {
	pools map[string]*pgxpool.Pool
	mu    sync.RWMutex
}

// NewPoolManager returns an empty manager.
func NewPoolManager() *PoolManager {
	return &PoolManager{pools: make(map[string]*pgxpool.Pool)}
}

// Add connects to connString, pings it and registers the pool under name.
func (m *PoolManager) Add(ctx context.Context, name, connString string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pools[name]; ok {
		return fmt.Errorf("pgx: %q: %w", name, ErrPoolAlreadyExists)
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return fmt.Errorf("pgx: creating pool %q: %w", name, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pgx: ping %q: %w", name, err)
	}

	m.pools[name] = pool
	return nil
}

// Get returns the pool registered under name.
func (m *PoolManager) Get(name string) (*pgxpool.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pool, ok := m.pools[name]
	if !ok {
		return nil, fmt.Errorf("pgx: %q: %w", name, ErrPoolNotFound)
	}
	return pool, nil
}

// DB returns a statement executor for the named pool. An empty name selects
// DefaultPool.
func (m *PoolManager) DB(name string) (*DB, error) {
	if name == "" {
		name = DefaultPool
	}
	pool, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return NewDB(pool), nil
}

// List returns the registered pool names in sorted order.
func (m *PoolManager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.pools))
	for name := range m.pools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close closes all pools.
func (m *PoolManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.pools {
		p.Close()
	}
	m.pools = make(map[string]*pgxpool.Pool)
}
