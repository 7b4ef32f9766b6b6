// Package unlock turns a user passphrase into the sealer that protects the
// local store at rest.
//
// The first Open on a fresh database generates a salt and stores it with a
// verifier of the derived key in the metadata table. Later calls derive the
// key again and compare verifiers, so a wrong passphrase is rejected before
// any record is opened.
package unlock

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/companion/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/cryptox"
	"github.com/dmitrijs2005/companion/internal/dbx"
)

const (
	metaSalt     = "store_salt"
	metaVerifier = "store_verifier"
)

// Initialized reports whether a passphrase was already set up for db.
func Initialized(ctx context.Context, db *sql.DB) (bool, error) {
	found, err := metadata.NewSQLiteRepository(db).Lookup(ctx, metaSalt)
	if err != nil {
		return false, err
	}
	return found[metaSalt] != nil, nil
}

// Open returns a sealer keyed by passphrase, or cryptox.ErrWrongPassphrase.
func Open(ctx context.Context, db *sql.DB, passphrase []byte) (*cryptox.AEADSealer, error) {
	found, err := metadata.NewSQLiteRepository(db).Lookup(ctx, metaSalt, metaVerifier)
	if err != nil {
		return nil, err
	}
	salt, verifier := found[metaSalt], found[metaVerifier]

	if salt == nil || verifier == nil {
		return initialize(ctx, db, passphrase)
	}

	key := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(key)

	if subtle.ConstantTimeCompare(verifier, cryptox.MakeVerifier(key)) == 0 {
		return nil, cryptox.ErrWrongPassphrase
	}
	return cryptox.NewSealer(key)
}

func initialize(ctx context.Context, db *sql.DB, passphrase []byte) (*cryptox.AEADSealer, error) {
	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	key := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(key)

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Put(ctx, map[string][]byte{
			metaSalt:     salt,
			metaVerifier: cryptox.MakeVerifier(key),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save passphrase verifier: %w", err)
	}
	return cryptox.NewSealer(key)
}

// Forget drops the stored salt and verifier. Records sealed with the old key
// become unreadable, so callers wipe the store first.
func Forget(ctx context.Context, db *sql.DB) error {
	return metadata.NewSQLiteRepository(db).Remove(ctx, metaSalt, metaVerifier)
}
