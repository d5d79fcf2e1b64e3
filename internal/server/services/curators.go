package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/cryptox"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/auth"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/config"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const minPasswordLen = 6

// Session is what a successful login hands back to the caller.
type Session struct {
	CuratorID   string
	AccessToken string
}

// CuratorService registers curators and logs them in.
type CuratorService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewCuratorService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *CuratorService {
	return &CuratorService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register stores a new curator with an argon2id password hash and returns
// its id.
func (s *CuratorService) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: username is empty", common.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return "", fmt.Errorf("%w: password shorter than %d characters", common.ErrValidation, minPasswordLen)
	}

	salt, err := cryptox.NewSalt()
	if err != nil {
		return "", err
	}
	c := &models.Curator{
		ID:           uuid.NewString(),
		Username:     username,
		Salt:         salt,
		PasswordHash: cryptox.HashPassword([]byte(password), salt),
	}

	c, err = s.repomanager.Curators(s.db).Create(ctx, c)
	if err != nil {
		return "", fmt.Errorf("error creating curator: %w", err)
	}
	return c.ID, nil
}

// Login checks the password and mints an access token. Unknown usernames
// and wrong passwords both yield common.ErrUnauthorized.
func (s *CuratorService) Login(ctx context.Context, username, password string) (*Session, error) {
	c, err := s.repomanager.Curators(s.db).GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("error looking up curator: %w", err)
	}
	if !cryptox.VerifyPassword([]byte(password), c.Salt, c.PasswordHash) {
		return nil, common.ErrUnauthorized
	}

	token, err := auth.GenerateToken(c.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}
	return &Session{CuratorID: c.ID, AccessToken: token}, nil
}
