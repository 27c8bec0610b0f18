package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bookshelf/internal/dbx"
	"github.com/dmitrijs2005/bookshelf/internal/server/repositories/books"
	"github.com/dmitrijs2005/bookshelf/internal/server/repositories/tags"
	"github.com/dmitrijs2005/bookshelf/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Books(db dbx.DBTX) books.Repository
	Tags(db dbx.DBTX) tags.Repository
}
