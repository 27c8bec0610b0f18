package tags

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestListByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, user_id, name, created_at FROM tags WHERE user_id=\$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "created_at"}).
			AddRow(id.String(), "u-1", "Fantasy", created))

	got, err := repo.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, &models.Tag{ID: id, UserID: "u-1", Name: "Fantasy", CreatedAt: created}, got[0])
}

func TestListByUser_Error(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("boom"))

	_, err := repo.ListByUser(context.Background(), "u-1")
	assert.ErrorContains(t, err, "failed to select tags")
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	tag := &models.Tag{ID: uuid.New(), UserID: "u-1", Name: "Fantasy", CreatedAt: time.Now().UTC()}
	mock.ExpectExec(`INSERT INTO tags`).
		WithArgs(tag.ID, "u-1", "Fantasy", tag.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), tag))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRename(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	tag := &models.Tag{ID: uuid.New(), UserID: "u-1", Name: "SciFi"}
	mock.ExpectExec(`UPDATE tags SET name=\$3`).
		WithArgs("u-1", tag.ID, "SciFi").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Rename(context.Background(), tag))
}

func TestRename_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE tags`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Rename(context.Background(), &models.Tag{ID: uuid.New(), UserID: "u-1"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
