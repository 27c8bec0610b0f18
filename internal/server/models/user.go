// Package models defines the server-side domain entities persisted in the
// metadata store: users, their books and their tag arena.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User owns a collection of books and the universe of tags those books may
// reference.
type User struct {
	ID           string
	Email        string
	StorageLimit int64
	CreatedAt    time.Time

	Books []*Book
	Tags  []*Tag

	snapshot *snapshot
}

// FindBook returns the user's book with the given id, or nil.
func (u *User) FindBook(id uuid.UUID) *Book {
	for _, b := range u.Books {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// FindTag returns the tag with the given id from the user's arena, or nil.
func (u *User) FindTag(id uuid.UUID) *Tag {
	for _, t := range u.Tags {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// AddBook appends b to the user's collection and sets its owner.
func (u *User) AddBook(b *Book) {
	b.UserID = u.ID
	u.Books = append(u.Books, b)
}

// AddTag appends t to the user's arena and sets its owner.
func (u *User) AddTag(t *Tag) {
	t.UserID = u.ID
	u.Tags = append(u.Tags, t)
}

// RemoveBook drops the book from the collection and, for tracked users,
// from the snapshot, so the removal is not reported as a pending change.
// It reports whether the book was present.
func (u *User) RemoveBook(id uuid.UUID) bool {
	for i, b := range u.Books {
		if b.ID == id {
			u.Books = append(u.Books[:i], u.Books[i+1:]...)
			if u.snapshot != nil {
				delete(u.snapshot.books, id)
			}
			return true
		}
	}
	return false
}

// TagsOf resolves the book's tag references against the user's arena, in
// the order the book references them. Dangling ids are skipped.
func (u *User) TagsOf(b *Book) []*Tag {
	tags := make([]*Tag, 0, len(b.TagIDs))
	for _, id := range b.TagIDs {
		if t := u.FindTag(id); t != nil {
			tags = append(tags, t)
		}
	}
	return tags
}

// UsedStorage sums the stored content and cover bytes of all books.
func (u *User) UsedStorage() int64 {
	var total int64
	for _, b := range u.Books {
		total += b.FileSize + b.CoverSize
	}
	return total
}
