package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/metadata"
	_ "modernc.org/sqlite"
)

// Repositories bundles the local stores opened on one database.
type Repositories struct {
	DB       *sql.DB
	Metadata metadata.Repository
	Entities *entities.SQLiteStore
}

// Close releases the underlying database.
func (r *Repositories) Close() error {
	return r.DB.Close()
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrations.Up(ctx, db)
}

// InitDatabase opens the SQLite database at dsn and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer keeps read-modify-write transitions serialized
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate local database: %w", err)
	}

	return &Repositories{
		DB:       db,
		Metadata: metadata.NewSQLiteRepository(db),
		Entities: entities.NewSQLiteStore(db),
	}, nil
}
