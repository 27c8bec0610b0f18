package services

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/server/dto"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/go-playground/validator/v10"
)

// UpdateDocument is a sparse book update: only the keys present are
// applied. Keys are the JSON names of dto.Book.
type UpdateDocument map[string]json.RawMessage

type fieldSetter func(b *models.Book, raw json.RawMessage) error

var validate = validator.New(validator.WithRequiredStructEnabled())

// field decodes raw into T, checks it against rule (validator syntax, the
// same rules dto.BookIn carries) and hands it to set. JSON null decodes to
// the zero value, which must pass rule too.
func field[T any](rule string, set func(b *models.Book, v T)) fieldSetter {
	return func(b *models.Book, raw json.RawMessage) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if rule != "" {
			if err := validate.Var(v, rule); err != nil {
				return err
			}
		}
		set(b, v)
		return nil
	}
}

const tagsField = "tags"

var bookFields = map[string]fieldSetter{
	"title":              field("required,max=2000", func(b *models.Book, v string) { b.Title = v }),
	"authors":            field("max=2000", func(b *models.Book, v string) { b.Authors = v }),
	"creator":            field("max=2000", func(b *models.Book, v string) { b.Creator = v }),
	"language":           field("max=100", func(b *models.Book, v string) { b.Language = v }),
	"format":             field("max=100", func(b *models.Book, v string) { b.Format = v }),
	"extension":          field("max=100", func(b *models.Book, v string) { b.Extension = v }),
	"pageCount":          field("gte=0", func(b *models.Book, v int) { b.PageCount = v }),
	"currentPage":        field("gte=0", func(b *models.Book, v int) { b.CurrentPage = v }),
	"projectGutenbergId": field("gte=0", func(b *models.Book, v int) { b.ProjectGutenbergID = v }),
	"colorTheme":         field("max=100", func(b *models.Book, v string) { b.ColorTheme = v }),
	"fileHash":           field("max=200", func(b *models.Book, v string) { b.FileHash = v }),
	"creationDate":       field("max=100", func(b *models.Book, v string) { b.CreationDate = v }),
	"lastOpened":         field("", func(b *models.Book, v time.Time) { b.LastOpened = v }),
	"lastModified":       field("", func(b *models.Book, v time.Time) { b.LastModified = v }),
	"coverLastModified":  field("", func(b *models.Book, v time.Time) { b.CoverLastModified = v }),
	"hasCover":           field("", func(b *models.Book, v bool) { b.HasCover = v }),
}

// ignoredFields are accepted but never applied: the identifier is
// immutable and storage counters are owned by the server.
var ignoredFields = map[string]struct{}{
	"guid":           {},
	"fileSize":       {},
	"coverSize":      {},
	"addedToLibrary": {},
}

// ApplyUpdate applies the fields present in doc onto book. Every key is
// checked before anything is assigned, so an unknown field leaves book as
// it was.
func ApplyUpdate(book *models.Book, doc UpdateDocument, user *models.User) error {
	keys := slices.Sorted(maps.Keys(doc))

	for _, k := range keys {
		if _, ok := bookFields[k]; ok || k == tagsField {
			continue
		}
		if _, ok := ignoredFields[k]; ok {
			continue
		}
		return common.ErrUnknownField.WithMessage(fmt.Sprintf("book has no field %q", k))
	}

	for _, k := range keys {
		if k == tagsField {
			tags, err := decodeTags(doc[k])
			if err != nil {
				return err
			}
			if err := ReconcileTags(book, tags, user); err != nil {
				return err
			}
			continue
		}

		set, ok := bookFields[k]
		if !ok {
			continue
		}
		if err := set(book, doc[k]); err != nil {
			return common.ErrInvalidParameter.
				WithMessage(fmt.Sprintf("invalid value for %q", k)).
				WithCause(err)
		}
	}

	return nil
}

func decodeTags(raw json.RawMessage) ([]dto.TagIn, error) {
	var tags []dto.TagIn
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, common.ErrInvalidParameter.WithMessage(`invalid value for "tags"`).WithCause(err)
	}
	for _, t := range tags {
		if err := validate.Struct(t); err != nil {
			return nil, common.ErrInvalidParameter.WithMessage("tags need a guid and a name of at most 200 characters").WithCause(err)
		}
	}
	return tags, nil
}
