package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bookshelf/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const getByEmailQuery = `(?s)^SELECT\s+id,\s*email,\s*storage_limit,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "email", "storage_limit", "created_at"}).
		AddRow("u-1", "alice@example.com", int64(1_000_000), created)
	mock.ExpectQuery(getByEmailQuery).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "u-1" || got.Email != "alice@example.com" || got.StorageLimit != 1_000_000 || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.Tracked() {
		t.Fatalf("repository must not track users")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getByEmailQuery).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByEmail_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getByEmailQuery).
		WithArgs("alice@example.com").
		WillReturnError(errors.New("db err"))

	_, err := repo.GetByEmail(context.Background(), "alice@example.com")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

const usedStorageQuery = `(?s)^SELECT\s+COALESCE\(SUM\(file_size\s*\+\s*cover_size\),\s*0\)\s+FROM\s+books\s+WHERE\s+user_id\s*=\s*\$1\s*$`

func TestUsedStorage_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(usedStorageQuery).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(400_000)))

	got, err := repo.UsedStorage(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("UsedStorage error: %v", err)
	}
	if got != 400_000 {
		t.Fatalf("unexpected used storage: %d", got)
	}
}

func TestUsedStorage_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(usedStorageQuery).
		WithArgs("u-1").
		WillReturnError(errors.New("db err"))

	_, err := repo.UsedStorage(context.Background(), "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
