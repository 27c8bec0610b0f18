// Package dto holds the request and response shapes of the book API and
// the pure transforms between them and the domain models.
package dto

import (
	"time"

	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/google/uuid"
)

// TagIn is a desired tag of a book: an existing tag is matched by ID,
// an unknown ID creates a new tag.
type TagIn struct {
	ID   uuid.UUID `json:"guid" validate:"required"`
	Name string    `json:"name" validate:"required,max=200"`
}

// BookIn is the body of a create request. Storage counters and the cover
// flag are managed by the server and cannot be set here.
type BookIn struct {
	ID                 uuid.UUID `json:"guid" validate:"required"`
	Title              string    `json:"title" validate:"required,max=2000"`
	Authors            string    `json:"authors" validate:"max=2000"`
	Creator            string    `json:"creator" validate:"max=2000"`
	Language           string    `json:"language" validate:"max=100"`
	Format             string    `json:"format" validate:"max=100"`
	Extension          string    `json:"extension" validate:"max=100"`
	PageCount          int       `json:"pageCount" validate:"gte=0"`
	CurrentPage        int       `json:"currentPage" validate:"gte=0"`
	ProjectGutenbergID int       `json:"projectGutenbergId" validate:"gte=0"`
	ColorTheme         string    `json:"colorTheme" validate:"max=100"`
	FileHash           string    `json:"fileHash" validate:"max=200"`
	CreationDate       string    `json:"creationDate" validate:"max=100"`
	AddedToLibrary     time.Time `json:"addedToLibrary"`
	LastOpened         time.Time `json:"lastOpened"`
	LastModified       time.Time `json:"lastModified"`
	Tags               []TagIn   `json:"tags" validate:"dive"`
}

// ToModel builds a book without tag references; those are applied by tag
// reconciliation against the owner's arena.
func (in *BookIn) ToModel() *models.Book {
	return &models.Book{
		ID:                 in.ID,
		Title:              in.Title,
		Authors:            in.Authors,
		Creator:            in.Creator,
		Language:           in.Language,
		Format:             in.Format,
		Extension:          in.Extension,
		PageCount:          in.PageCount,
		CurrentPage:        in.CurrentPage,
		ProjectGutenbergID: in.ProjectGutenbergID,
		ColorTheme:         in.ColorTheme,
		FileHash:           in.FileHash,
		CreationDate:       in.CreationDate,
		AddedToLibrary:     in.AddedToLibrary,
		LastOpened:         in.LastOpened,
		LastModified:       in.LastModified,
	}
}

type Tag struct {
	ID   uuid.UUID `json:"guid"`
	Name string    `json:"name"`
}

// Book is the list/read projection of a book with its resolved tags.
type Book struct {
	ID                 uuid.UUID  `json:"guid"`
	Title              string     `json:"title"`
	Authors            string     `json:"authors"`
	Creator            string     `json:"creator"`
	Language           string     `json:"language"`
	Format             string     `json:"format"`
	Extension          string     `json:"extension"`
	PageCount          int        `json:"pageCount"`
	CurrentPage        int        `json:"currentPage"`
	ProjectGutenbergID int        `json:"projectGutenbergId"`
	ColorTheme         string     `json:"colorTheme"`
	FileHash           string     `json:"fileHash"`
	CreationDate       string     `json:"creationDate"`
	AddedToLibrary     time.Time  `json:"addedToLibrary"`
	LastOpened         *time.Time `json:"lastOpened,omitempty"`
	LastModified       *time.Time `json:"lastModified,omitempty"`
	CoverLastModified  *time.Time `json:"coverLastModified,omitempty"`
	HasCover           bool       `json:"hasCover"`
	FileSize           int64      `json:"fileSize"`
	CoverSize          int64      `json:"coverSize"`
	Tags               []Tag      `json:"tags"`
}

// BookFromModel projects b with the given resolved tags.
func BookFromModel(b *models.Book, tags []*models.Tag) Book {
	out := Book{
		ID:                 b.ID,
		Title:              b.Title,
		Authors:            b.Authors,
		Creator:            b.Creator,
		Language:           b.Language,
		Format:             b.Format,
		Extension:          b.Extension,
		PageCount:          b.PageCount,
		CurrentPage:        b.CurrentPage,
		ProjectGutenbergID: b.ProjectGutenbergID,
		ColorTheme:         b.ColorTheme,
		FileHash:           b.FileHash,
		CreationDate:       b.CreationDate,
		AddedToLibrary:     b.AddedToLibrary,
		LastOpened:         optionalTime(b.LastOpened),
		LastModified:       optionalTime(b.LastModified),
		CoverLastModified:  optionalTime(b.CoverLastModified),
		HasCover:           b.HasCover,
		FileSize:           b.FileSize,
		CoverSize:          b.CoverSize,
		Tags:               make([]Tag, 0, len(tags)),
	}
	for _, t := range tags {
		out.Tags = append(out.Tags, Tag{ID: t.ID, Name: t.Name})
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// StorageInfo reports a user's quota usage in bytes.
type StorageInfo struct {
	Used  int64 `json:"usedStorage"`
	Limit int64 `json:"storageLimit"`
}
