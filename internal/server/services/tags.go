package services

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/server/dto"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/google/uuid"
)

// ReconcileTags makes book reference exactly the tags listed in desired.
//
// Tags dropped from the book stay in the user's arena. A desired tag the
// book already references is renamed in place, which every other book
// referencing it observes. A tag known to the arena is attached. Anything
// else is a new tag and is created unless the book already carries a tag
// with the same name.
func ReconcileTags(book *models.Book, desired []dto.TagIn, user *models.User) error {
	wanted := make(map[uuid.UUID]struct{}, len(desired))
	for _, d := range desired {
		wanted[d.ID] = struct{}{}
	}

	// Removal must run before the merge: a new tag may reuse the name of a
	// tag that is being detached.
	kept := make([]uuid.UUID, 0, len(book.TagIDs))
	for _, id := range book.TagIDs {
		if _, ok := wanted[id]; ok {
			kept = append(kept, id)
		}
	}
	book.TagIDs = kept

	for _, d := range desired {
		if book.HasTag(d.ID) {
			if t := user.FindTag(d.ID); t != nil {
				t.Name = d.Name
				continue
			}
			// dangling reference, recreate the arena entry below
		} else if user.FindTag(d.ID) != nil {
			book.AttachTag(d.ID)
			continue
		}

		if clash := tagNamed(user, book, d.Name, d.ID); clash != nil {
			return common.ErrDuplicateName.WithMessage(
				fmt.Sprintf("book %s already has tag %q (%s)", book.ID, d.Name, clash.ID))
		}
		user.AddTag(&models.Tag{ID: d.ID, Name: d.Name, CreatedAt: time.Now().UTC()})
		book.AttachTag(d.ID)
	}

	return nil
}

// tagNamed returns a tag on book other than except that is called name.
func tagNamed(user *models.User, book *models.Book, name string, except uuid.UUID) *models.Tag {
	for _, t := range user.TagsOf(book) {
		if t.ID != except && t.Name == name {
			return t
		}
	}
	return nil
}
