// Package metadata is the capability interface over the relational store
// holding users, books and tags, with an explicit tracked/untracked read mode.
package metadata

import (
	"context"

	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/google/uuid"
)

// ReadMode selects whether a loaded user can be persisted with Save.
type ReadMode int

const (
	// Untracked reads are read-only; Save rejects the result.
	Untracked ReadMode = iota
	// Tracked reads snapshot the loaded state so Save persists what changed.
	Tracked
)

func (m ReadMode) String() string {
	if m == Tracked {
		return "tracked"
	}
	return "untracked"
}

type Store interface {
	// GetUser loads the user with all books and the complete tag arena.
	// Returns common.ErrorNotFound if no such user exists.
	GetUser(ctx context.Context, email string, mode ReadMode) (*models.User, error)
	BookExists(ctx context.Context, userID string, bookID uuid.UUID) (bool, error)
	UsedStorage(ctx context.Context, userID string) (int64, error)
	// Save persists every change made to a tracked user since it was loaded
	// or last saved and returns the number of persisted changes.
	Save(ctx context.Context, u *models.User) (int, error)
	// DeleteBook removes the book record and drops it from u.
	DeleteBook(ctx context.Context, u *models.User, bookID uuid.UUID) error
}
