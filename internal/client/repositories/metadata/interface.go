package metadata

import (
	"context"
)

// Repository stores opaque values by key. Get returns nil for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var _ Repository = (*SQLiteRepository)(nil)
