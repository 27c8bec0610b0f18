package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/dbx"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
)

// PostgresRepository reads user rows over a dbx.DBTX (*sql.DB or *sql.Tx).
// Users are provisioned by the identity service; this repository never
// creates them.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByEmail returns the user row without books or tags.
// Returns common.ErrorNotFound when no user has that email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, storage_limit, created_at FROM users
		 WHERE email = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.StorageLimit, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// UsedStorage sums content and cover bytes over all of the user's books.
func (r *PostgresRepository) UsedStorage(ctx context.Context, userID string) (int64, error) {
	query :=
		`SELECT COALESCE(SUM(file_size + cover_size), 0) FROM books
		 WHERE user_id = $1
		 `

	var used int64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&used); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return used, nil
}
