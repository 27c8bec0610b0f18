package models

import (
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Book is the metadata record of one e-book. The binary content and cover
// live in the blob store under the book's ID.
type Book struct {
	ID                 uuid.UUID
	UserID             string
	Title              string
	Authors            string
	Creator            string
	Language           string
	Format             string
	Extension          string
	PageCount          int
	CurrentPage        int
	ProjectGutenbergID int
	ColorTheme         string
	FileHash           string
	CreationDate       string
	AddedToLibrary     time.Time
	LastOpened         time.Time
	LastModified       time.Time
	CoverLastModified  time.Time
	HasCover           bool
	FileSize           int64
	CoverSize          int64

	// TagIDs reference tags in the owner's arena.
	TagIDs []uuid.UUID
}

// HasTag reports whether the book references the tag.
func (b *Book) HasTag(id uuid.UUID) bool {
	return slices.Contains(b.TagIDs, id)
}

// AttachTag adds a reference unless it is already present.
func (b *Book) AttachTag(id uuid.UUID) {
	if !b.HasTag(id) {
		b.TagIDs = append(b.TagIDs, id)
	}
}

// Clone returns a deep copy of the book.
func (b *Book) Clone() *Book {
	c := *b
	c.TagIDs = slices.Clone(b.TagIDs)
	return &c
}

// sameFields compares every metadata field except the tag references.
func sameFields(a, b *Book) bool {
	x, y := *a, *b
	x.TagIDs, y.TagIDs = nil, nil
	return reflect.DeepEqual(x, y)
}

// sameTags compares tag references regardless of order.
func sameTags(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	for _, id := range a {
		if !slices.Contains(b, id) {
			return false
		}
	}
	return true
}
