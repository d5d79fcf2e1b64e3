// Package records stores the remote copies of curated entities in
// PostgreSQL. Deletes are soft; listings only return live rows.
package records

import (
	"context"

	"github.com/dmitrijs2005/fieldkeeper/internal/server/models"
)

type Repository interface {
	// List returns up to limit live records with id greater than afterID,
	// ordered by id.
	List(ctx context.Context, afterID string, limit int) ([]*models.Record, error)
	// Get returns the record, deleted or not.
	Get(ctx context.Context, id string) (*models.Record, error)
	// Create inserts r. A live record with the same shared group and owner
	// yields common.ErrAlreadyExists.
	Create(ctx context.Context, r *models.Record) error
	// Update rewrites name and payload of a live record.
	Update(ctx context.Context, r *models.Record) (*models.Record, error)
	SoftDelete(ctx context.Context, id string) error
}
