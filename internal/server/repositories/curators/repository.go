// Package curators stores curator accounts in PostgreSQL.
package curators

import (
	"context"

	"github.com/dmitrijs2005/fieldkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts c; a taken username yields common.ErrAlreadyExists.
	Create(ctx context.Context, c *models.Curator) (*models.Curator, error)
	GetByUsername(ctx context.Context, username string) (*models.Curator, error)
}
