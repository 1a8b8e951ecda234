package users

import (
	"context"

	"github.com/dmitrijs2005/playkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts the user and an empty profile. A taken username fails
	// with common.ErrAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	GetProfileByCode(ctx context.Context, code string) (*models.Profile, error)
}
