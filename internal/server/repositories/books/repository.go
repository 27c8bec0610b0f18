package books

import (
	"context"

	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Book, error)
	ListTagLinks(ctx context.Context, userID string) (map[uuid.UUID][]uuid.UUID, error)
	Exists(ctx context.Context, userID string, id uuid.UUID) (bool, error)
	Create(ctx context.Context, book *models.Book) error
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	ReplaceTags(ctx context.Context, userID string, bookID uuid.UUID, tagIDs []uuid.UUID) error
}
