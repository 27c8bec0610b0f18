package books

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/dbx"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements book storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const bookColumns = `id, user_id, title, authors, creator, language, format, extension,
		page_count, current_page, project_gutenberg_id, color_theme, file_hash, creation_date,
		added_to_library, last_opened, last_modified, cover_last_modified,
		has_cover, file_size, cover_size`

// ListByUser returns all books of the user ordered by the time they were
// added. Tag references are not filled in; see ListTagLinks.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books
		WHERE user_id=$1
		ORDER BY added_to_library, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select books: %w", err)
	}
	defer rows.Close()

	var result []*models.Book
	for rows.Next() {
		var (
			b                                           models.Book
			lastOpened, lastModified, coverLastModified sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.Authors, &b.Creator, &b.Language, &b.Format, &b.Extension,
			&b.PageCount, &b.CurrentPage, &b.ProjectGutenbergID, &b.ColorTheme, &b.FileHash, &b.CreationDate,
			&b.AddedToLibrary, &lastOpened, &lastModified, &coverLastModified,
			&b.HasCover, &b.FileSize, &b.CoverSize); err != nil {
			return nil, err
		}
		b.LastOpened = lastOpened.Time
		b.LastModified = lastModified.Time
		b.CoverLastModified = coverLastModified.Time
		result = append(result, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListTagLinks returns book id -> referenced tag ids for all books of the user.
func (r *PostgresRepository) ListTagLinks(ctx context.Context, userID string) (map[uuid.UUID][]uuid.UUID, error) {
	query := `SELECT book_id, tag_id FROM book_tags WHERE user_id=$1 ORDER BY book_id, tag_id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select book tags: %w", err)
	}
	defer rows.Close()

	links := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var bookID, tagID uuid.UUID
		if err := rows.Scan(&bookID, &tagID); err != nil {
			return nil, err
		}
		links[bookID] = append(links[bookID], tagID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

// Exists reports whether the user already has a book with the given id.
func (r *PostgresRepository) Exists(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM books WHERE user_id=$1 AND id=$2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Create inserts a new book row. Tag references are written separately
// with ReplaceTags.
func (r *PostgresRepository) Create(ctx context.Context, b *models.Book) error {
	query := `INSERT INTO books (` + bookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.UserID, b.Title, b.Authors, b.Creator, b.Language, b.Format, b.Extension,
		b.PageCount, b.CurrentPage, b.ProjectGutenbergID, b.ColorTheme, b.FileHash, b.CreationDate,
		b.AddedToLibrary, nullTime(b.LastOpened), nullTime(b.LastModified), nullTime(b.CoverLastModified),
		b.HasCover, b.FileSize, b.CoverSize)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update rewrites every metadata column of an existing book.
// Returns common.ErrorNotFound when the row does not exist.
func (r *PostgresRepository) Update(ctx context.Context, b *models.Book) error {
	query := `UPDATE books SET
			title=$3, authors=$4, creator=$5, language=$6, format=$7, extension=$8,
			page_count=$9, current_page=$10, project_gutenberg_id=$11, color_theme=$12, file_hash=$13, creation_date=$14,
			added_to_library=$15, last_opened=$16, last_modified=$17, cover_last_modified=$18,
			has_cover=$19, file_size=$20, cover_size=$21
		WHERE user_id=$1 AND id=$2`

	res, err := r.db.ExecContext(ctx, query,
		b.UserID, b.ID, b.Title, b.Authors, b.Creator, b.Language, b.Format, b.Extension,
		b.PageCount, b.CurrentPage, b.ProjectGutenbergID, b.ColorTheme, b.FileHash, b.CreationDate,
		b.AddedToLibrary, nullTime(b.LastOpened), nullTime(b.LastModified), nullTime(b.CoverLastModified),
		b.HasCover, b.FileSize, b.CoverSize)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

// Delete removes the book row; its tag links go with it (ON DELETE CASCADE).
// Returns common.ErrorNotFound when the row does not exist.
func (r *PostgresRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	query := `DELETE FROM books WHERE user_id=$1 AND id=$2`

	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return expectOneRow(res)
}

// ReplaceTags makes tagIDs the complete set of tags the book references.
// Meant to run inside a transaction.
func (r *PostgresRepository) ReplaceTags(ctx context.Context, userID string, bookID uuid.UUID, tagIDs []uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM book_tags WHERE user_id=$1 AND book_id=$2`, userID, bookID); err != nil {
		return fmt.Errorf("failed to clear book tags: %w", err)
	}

	for _, tagID := range tagIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO book_tags (user_id, book_id, tag_id) VALUES ($1, $2, $3)`,
			userID, bookID, tagID); err != nil {
			return fmt.Errorf("failed to link tag %s: %w", tagID, err)
		}
	}
	return nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// nullTime stores zero times as NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
