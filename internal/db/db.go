package db

import (
	"context"
	"time"
)

// Row is a single result row keyed by column name.
type Row map[string]any

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Querier runs a parameterized statement and returns its rows.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)
}

// SQLStore is the relational store facade.
type SQLStore interface {
	Pinger
	Querier
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CacheStore is the shared cache facade.
type CacheStore interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}
