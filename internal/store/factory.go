package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formship/formship/internal/db"
)

// Backend bundles a Store with the postgres pool behind it, when one exists.
// The pool is exposed so components that want durable storage of their own
// (the audit sink) reuse the same connections instead of opening a second
// pool. Pool is nil for the memory backend.
type Backend struct {
	Store Store
	Pool  *pgxpool.Pool
}

// Open builds the storage backend named by storeType ("memory" or
// "postgres"). The postgres backend is pinged before it is returned, so a
// non-nil Backend is ready for traffic.
func Open(ctx context.Context, storeType, dbDSN string) (Backend, error) {
	switch storeType {
	case "memory":
		return Backend{Store: NewMemoryStore()}, nil
	case "postgres":
		pool, err := db.NewPool(ctx, dbDSN)
		if err != nil {
			return Backend{}, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return Backend{}, fmt.Errorf("database unreachable: %w", err)
		}
		return Backend{Store: NewPostgresStore(pool), Pool: pool}, nil
	default:
		return Backend{}, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
