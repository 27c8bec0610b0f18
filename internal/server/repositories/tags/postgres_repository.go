package tags

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/dbx"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListByUser returns the user's tag arena in creation order.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Tag, error) {
	query := `SELECT id, user_id, name, created_at FROM tags WHERE user_id=$1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tags: %w", err)
	}
	defer rows.Close()

	var result []*models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Tag) error {
	query := `INSERT INTO tags (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := r.db.ExecContext(ctx, query, t.ID, t.UserID, t.Name, t.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Rename updates the name of an existing tag.
func (r *PostgresRepository) Rename(ctx context.Context, t *models.Tag) error {
	query := `UPDATE tags SET name=$3 WHERE user_id=$1 AND id=$2`

	res, err := r.db.ExecContext(ctx, query, t.UserID, t.ID, t.Name)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
