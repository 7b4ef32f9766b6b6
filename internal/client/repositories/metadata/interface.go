// Package metadata stores small device-level values (store salt, passphrase
// verifier) that must survive a wipe of the record store.
package metadata

import (
	"context"
)

// Repository reads and writes a handful of keys at a time. Values are opaque
// bytes; keys absent from the table are absent from Lookup's result.
type Repository interface {
	Lookup(ctx context.Context, keys ...string) (map[string][]byte, error)
	Put(ctx context.Context, values map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
}
