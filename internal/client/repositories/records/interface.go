// Package records persists opaque, already-encoded values by string key.
// It knows nothing about what the bytes mean; the store layer owns encoding,
// sealing and caching.
package records

import (
	"context"
	"time"
)

type Record struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// Repository is implemented over a dbx.DBTX so the same code runs inside and
// outside a transaction. Get returns common.ErrorNotFound for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) (*Record, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Clear(ctx context.Context) error
}
