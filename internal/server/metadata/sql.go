package metadata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/dbx"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/dmitrijs2005/bookshelf/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// SQLStore implements Store on top of the repositories vended by a
// RepositoryManager. Multi-statement reads and saves run in one transaction.
type SQLStore struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
}

func NewSQLStore(db *sql.DB, repos repomanager.RepositoryManager) *SQLStore {
	return &SQLStore{db: db, repos: repos}
}

func (s *SQLStore) GetUser(ctx context.Context, email string, mode ReadMode) (*models.User, error) {
	var u *models.User

	load := func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		u, err = s.repos.Users(tx).GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		bookRepo := s.repos.Books(tx)
		if u.Books, err = bookRepo.ListByUser(ctx, u.ID); err != nil {
			return err
		}
		links, err := bookRepo.ListTagLinks(ctx, u.ID)
		if err != nil {
			return err
		}
		for _, b := range u.Books {
			b.TagIDs = links[b.ID]
		}

		u.Tags, err = s.repos.Tags(tx).ListByUser(ctx, u.ID)
		return err
	}

	var err error
	if mode == Tracked {
		err = dbx.WithTx(ctx, s.db, nil, load)
	} else {
		err = dbx.WithReadTx(ctx, s.db, load)
	}
	if err != nil {
		return nil, err
	}

	if mode == Tracked {
		u.Track()
	}
	return u, nil
}

func (s *SQLStore) BookExists(ctx context.Context, userID string, bookID uuid.UUID) (bool, error) {
	return s.repos.Books(s.db).Exists(ctx, userID, bookID)
}

func (s *SQLStore) UsedStorage(ctx context.Context, userID string) (int64, error) {
	return s.repos.Users(s.db).UsedStorage(ctx, userID)
}

// Save writes the user's change set in dependency order: tags before the
// books that reference them, rows before their tag links.
func (s *SQLStore) Save(ctx context.Context, u *models.User) (int, error) {
	if !u.Tracked() {
		return 0, common.ErrorUntracked
	}

	cs := u.Changes()
	if cs.Empty() {
		return 0, nil
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tagRepo := s.repos.Tags(tx)
		for _, t := range cs.NewTags {
			if err := tagRepo.Create(ctx, t); err != nil {
				return fmt.Errorf("create tag %s: %w", t.ID, err)
			}
		}
		for _, t := range cs.RenamedTags {
			if err := tagRepo.Rename(ctx, t); err != nil {
				return fmt.Errorf("rename tag %s: %w", t.ID, err)
			}
		}

		bookRepo := s.repos.Books(tx)
		for _, b := range cs.NewBooks {
			if err := bookRepo.Create(ctx, b); err != nil {
				return fmt.Errorf("create book %s: %w", b.ID, err)
			}
		}
		for _, b := range cs.UpdatedBooks {
			if err := bookRepo.Update(ctx, b); err != nil {
				return fmt.Errorf("update book %s: %w", b.ID, err)
			}
		}
		for _, b := range cs.RetaggedBooks {
			if err := bookRepo.ReplaceTags(ctx, u.ID, b.ID, b.TagIDs); err != nil {
				return fmt.Errorf("retag book %s: %w", b.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	u.Track()
	return cs.Len(), nil
}

func (s *SQLStore) DeleteBook(ctx context.Context, u *models.User, bookID uuid.UUID) error {
	if err := s.repos.Books(s.db).Delete(ctx, u.ID, bookID); err != nil {
		return err
	}
	u.RemoveBook(bookID)
	return nil
}
