// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login and friend code allocation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/codes"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/cryptox"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/logging"
	"github.com/dmitrijs2005/playkeeper/internal/server/auth"
	"github.com/dmitrijs2005/playkeeper/internal/server/config"
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/repomanager"
)

// UserService provides account operations:
// - Register: create the user and try to mint a friend code
// - Login: verify credentials and issue an access token
// - AllocateCode: mint the friend code registration could not
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	allocator                   *codes.Allocator
	logger                      logging.Logger
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	codeLength                  int
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		allocator:                   codes.NewAllocator(m.CodeIndex(db), cfg.CodeMaxAttempts),
		logger:                      logger.With("module", "users"),
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		codeLength:                  cfg.CodeLength,
	}
}

// Register creates the account. The friend code is allocated after the
// account is committed; when that fails the account stays and the code is
// empty, to be retried through AllocateCode.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", fmt.Errorf("%w: username and password are required", common.ErrInvalidArgument)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(tx).Create(ctx, &models.User{UserName: username, PasswordHash: hash})
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("error creating user: %w", err)
	}

	code, err := s.allocator.Allocate(ctx, user.ID, s.codeLength)
	if err != nil {
		s.logger.Warn(ctx, "friend code allocation failed", "user_id", user.ID, "error", err)
		return user, "", nil
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, code, nil
}

// Login returns the user id and a fresh access token. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (string, string, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", "", common.ErrorUnauthorized
		}
		return "", "", common.ErrorInternal
	}

	ok, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored password hash is unreadable", "user_id", user.ID, "error", err)
		return "", "", common.ErrorInternal
	}
	if !ok {
		return "", "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", "", common.ErrorInternal
	}
	return user.ID, token, nil
}

// AllocateCode returns the user's friend code, minting one if the profile
// has none yet.
func (s *UserService) AllocateCode(ctx context.Context, userID string) (string, error) {
	profile, err := s.repomanager.Users(s.db).GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	if profile.FriendCode != "" {
		return profile.FriendCode, nil
	}
	return s.allocator.Allocate(ctx, userID, s.codeLength)
}
