// Package storetest opens throwaway stores for tests in other packages.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/companion/internal/client/client"
	"github.com/dmitrijs2005/companion/internal/client/store"
)

// New returns a store over a fresh SQLite file in t.TempDir().
func New(t testing.TB, opts ...store.Option) *store.Store {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "companion.db"))
	if err != nil {
		t.Fatalf("init database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return store.New(db, opts...)
}
