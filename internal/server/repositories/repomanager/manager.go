package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/companion/internal/dbx"
	"github.com/dmitrijs2005/companion/internal/server/repositories/records"
)

type RepositoryManager interface {
	// RunMigrations brings the schema up to the latest embedded version.
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
}
