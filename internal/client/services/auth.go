// Package services contains the curator-facing application services of the
// FieldKeeper client. This file defines the authentication service: register,
// login, session restore and logout, with the session kept in local metadata
// so curators keep working while offline.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/client"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/dbx"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
)

// Session identifies the logged-in curator.
type Session struct {
	CuratorID string
	Username  string
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register: create a curator on the server.
//   - Login: authenticate, persist the session and arm the client with the token.
//   - Restore: reload a persisted session without contacting the server.
//   - Logout: forget the session locally. Entities stay in the local store.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Register(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	Restore(ctx context.Context) (*Session, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	logger logging.Logger
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB, logger logging.Logger) AuthService {
	return &authService{client: client, db: db, logger: logger.With("module", "auth")}
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is empty", common.ErrValidation)
	}
	if password == "" {
		return fmt.Errorf("%w: password is empty", common.ErrValidation)
	}
	return nil
}

// Register creates a curator and returns its id. It does not log in.
func (a *authService) Register(ctx context.Context, username, password string) (string, error) {
	if err := validateCredentials(username, password); err != nil {
		return "", err
	}
	id, err := a.client.Register(ctx, username, password)
	if err != nil {
		return "", fmt.Errorf("register error: %w", err)
	}
	a.logger.Info(ctx, "curator registered", "curator_id", id, "username", username)
	return id, nil
}

func (a *authService) Login(ctx context.Context, username, password string) (*Session, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	curatorID, token, err := a.client.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := metadata.SetString(ctx, repo, common.MetaCuratorID, curatorID); err != nil {
			return err
		}
		if err := metadata.SetString(ctx, repo, common.MetaUsername, username); err != nil {
			return err
		}
		return metadata.SetString(ctx, repo, common.MetaAccessToken, token)
	})
	if err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}

	a.client.SetAccessToken(token)
	a.logger.Info(ctx, "logged in", "curator_id", curatorID)
	return &Session{CuratorID: curatorID, Username: username}, nil
}

// Restore returns client.ErrNotLoggedIn when no session was persisted.
func (a *authService) Restore(ctx context.Context) (*Session, error) {
	repo := metadata.NewSQLiteRepository(a.db)
	curatorID, err := metadata.GetString(ctx, repo, common.MetaCuratorID)
	if err != nil {
		return nil, err
	}
	if curatorID == "" {
		return nil, client.ErrNotLoggedIn
	}
	username, err := metadata.GetString(ctx, repo, common.MetaUsername)
	if err != nil {
		return nil, err
	}
	token, err := metadata.GetString(ctx, repo, common.MetaAccessToken)
	if err != nil {
		return nil, err
	}

	a.client.SetAccessToken(token)
	return &Session{CuratorID: curatorID, Username: username}, nil
}

func (a *authService) Logout(ctx context.Context) error {
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		var errs []error
		for _, k := range []string{common.MetaCuratorID, common.MetaUsername, common.MetaAccessToken} {
			errs = append(errs, repo.Delete(ctx, k))
		}
		return errors.Join(errs...)
	})
	if err != nil {
		return fmt.Errorf("logout error: %w", err)
	}
	a.client.SetAccessToken("")
	return nil
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
