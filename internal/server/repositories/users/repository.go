package users

import (
	"context"

	"github.com/dmitrijs2005/bookshelf/internal/server/models"
)

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UsedStorage(ctx context.Context, userID string) (int64, error)
}
