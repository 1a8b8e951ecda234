// Package services contains application services for the PlayKeeper client.
// This file defines the authentication service: register, login, restoring a
// saved session and logout. The signed-in identity and its access token are
// kept in the local metadata table so that the engine can run offline.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
)

// AuthClient is the part of the remote adapter the auth service needs.
type AuthClient interface {
	Register(ctx context.Context, username, password string) (userID, friendCode string, err error)
	Login(ctx context.Context, username, password string) (userID string, err error)
	AccessToken() string
	SetAccessToken(token string)
	Ping(ctx context.Context) error
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register: create a user on the server and return its friend code.
//   - Login: authenticate and persist identity and token locally.
//   - Restore: load a saved session into the client; ErrorUnauthorized if none.
//   - Logout: forget the saved session. Local records are kept.
//   - Identity: the saved identity, "" when signed out.
type AuthService interface {
	Register(ctx context.Context, username string, password []byte) (friendCode string, err error)
	Login(ctx context.Context, username string, password []byte) (identity string, err error)
	Restore(ctx context.Context) (identity string, err error)
	Logout(ctx context.Context) error
	Identity(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}

type authService struct {
	client AuthClient
	db     *sql.DB
	meta   *metadata.SQLiteRepository
}

func NewAuthService(client AuthClient, db *sql.DB) AuthService {
	return &authService{client: client, db: db, meta: metadata.NewSQLiteRepository(db)}
}

func (a *authService) Register(ctx context.Context, username string, password []byte) (string, error) {
	if username == "" || len(password) == 0 {
		return "", fmt.Errorf("%w: username and password are required", common.ErrInvalidArgument)
	}
	_, code, err := a.client.Register(ctx, username, string(password))
	if err != nil {
		return "", fmt.Errorf("register error: %w", err)
	}
	return code, nil
}

// Login authenticates against the server and saves identity and token in a
// single transaction.
func (a *authService) Login(ctx context.Context, username string, password []byte) (string, error) {
	userID, err := a.client.Login(ctx, username, string(password))
	if err != nil {
		return "", fmt.Errorf("login error: %w", err)
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := a.meta.Set(ctx, metadata.KeyIdentity, []byte(userID)); err != nil {
			return err
		}
		return a.meta.Set(ctx, metadata.KeyAccessToken, []byte(a.client.AccessToken()))
	})
	if err != nil {
		return "", fmt.Errorf("session saving error: %w", err)
	}
	return userID, nil
}

func (a *authService) Restore(ctx context.Context) (string, error) {
	identity, err := a.meta.Get(ctx, metadata.KeyIdentity)
	if err != nil {
		return "", err
	}
	token, err := a.meta.Get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return "", err
	}
	if len(identity) == 0 || len(token) == 0 {
		return "", common.ErrorUnauthorized
	}
	a.client.SetAccessToken(string(token))
	return string(identity), nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.client.SetAccessToken("")
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := a.meta.Delete(ctx, metadata.KeyAccessToken); err != nil {
			return err
		}
		return a.meta.Delete(ctx, metadata.KeyIdentity)
	})
}

func (a *authService) Identity(ctx context.Context) (string, error) {
	v, err := a.meta.Get(ctx, metadata.KeyIdentity)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
