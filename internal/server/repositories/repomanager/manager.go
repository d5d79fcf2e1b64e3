package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fieldkeeper/internal/dbx"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/repositories/curators"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/repositories/records"
)

// RepositoryManager vends repositories bound to a *sql.DB or a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Curators(db dbx.DBTX) curators.Repository
	Records(db dbx.DBTX) records.Repository
}
