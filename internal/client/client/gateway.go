package client

import (
	"context"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
)

// Gateway is the narrow contract the reconciliation engine uses to reach the
// remote store.
type Gateway interface {
	// List returns the full listing of live remote records.
	List(ctx context.Context) ([]models.RemoteEntity, error)
	// Create submits a batch. The ack carries counts and rejected indexes only.
	Create(ctx context.Context, records []models.RemoteEntity) (*models.BatchAck, error)
	Update(ctx context.Context, remoteID string, record models.RemoteEntity) (*models.RemoteEntity, error)
	// Delete removes a remote record; an unknown id yields common.ErrRemoteRejected.
	Delete(ctx context.Context, remoteID string) error
	Ping(ctx context.Context) error
}

// Client is the full remote surface used by the CLI.
type Client interface {
	Gateway
	Register(ctx context.Context, username, password string) (curatorID string, err error)
	Login(ctx context.Context, username, password string) (curatorID, accessToken string, err error)
	// SetAccessToken restores a session persisted from an earlier login.
	SetAccessToken(token string)
	PresignAttachment(ctx context.Context, recordID, fileName, method string) (key, url string, err error)
	Close() error
}
