// Package dbx lets the book, tag and user repositories run either on the
// pool or inside the metadata store's transaction: a user's books, tag
// links and tags are loaded and saved as one unit.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is what a repository needs from database/sql. *sql.DB and *sql.Tx
// both satisfy it, so repomanager can bind a repository to either.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn in a transaction. It commits when fn returns nil and rolls
// back when fn fails or panics; the panic is re-raised after the rollback.
//
// SQLStore.Save uses it to persist one user's change set:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    return repos.Books(tx).Create(ctx, book)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// WithReadTx is WithTx with a read-only transaction, used for untracked
// user loads so books, tag links and tags come from one snapshot.
func WithReadTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, db, &sql.TxOptions{ReadOnly: true}, fn)
}
