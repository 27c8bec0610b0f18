package models

import "github.com/google/uuid"

// snapshot is the state of a tracked user as it was last loaded or saved.
type snapshot struct {
	books map[uuid.UUID]*Book
	tags  map[uuid.UUID]string
}

// ChangeSet lists what differs between a tracked user and its snapshot.
// Removals are not tracked: books are deleted explicitly through the store
// and tags are never deleted by the core.
type ChangeSet struct {
	NewTags     []*Tag
	RenamedTags []*Tag

	NewBooks     []*Book
	UpdatedBooks []*Book

	// RetaggedBooks have a different set of tag references than before,
	// new books with at least one tag included.
	RetaggedBooks []*Book
}

// Len is the number of entity changes a save will persist.
func (c ChangeSet) Len() int {
	return len(c.NewTags) + len(c.RenamedTags) + len(c.NewBooks) + len(c.UpdatedBooks) + len(c.RetaggedBooks)
}

// Empty reports whether there is nothing to persist.
func (c ChangeSet) Empty() bool {
	return c.Len() == 0
}

// Track records the current state as the baseline for Changes. Stores call
// it after a tracked load and after every successful save.
func (u *User) Track() {
	s := &snapshot{
		books: make(map[uuid.UUID]*Book, len(u.Books)),
		tags:  make(map[uuid.UUID]string, len(u.Tags)),
	}
	for _, b := range u.Books {
		s.books[b.ID] = b.Clone()
	}
	for _, t := range u.Tags {
		s.tags[t.ID] = t.Name
	}
	u.snapshot = s
}

// Tracked reports whether mutations of u can be persisted.
func (u *User) Tracked() bool {
	return u.snapshot != nil
}

// Changes diffs the user against its snapshot. An untracked user reports
// an empty change set.
func (u *User) Changes() ChangeSet {
	var cs ChangeSet
	if u.snapshot == nil {
		return cs
	}

	for _, t := range u.Tags {
		name, ok := u.snapshot.tags[t.ID]
		switch {
		case !ok:
			cs.NewTags = append(cs.NewTags, t)
		case name != t.Name:
			cs.RenamedTags = append(cs.RenamedTags, t)
		}
	}

	for _, b := range u.Books {
		old, ok := u.snapshot.books[b.ID]
		if !ok {
			cs.NewBooks = append(cs.NewBooks, b)
			if len(b.TagIDs) > 0 {
				cs.RetaggedBooks = append(cs.RetaggedBooks, b)
			}
			continue
		}
		if !sameFields(old, b) {
			cs.UpdatedBooks = append(cs.UpdatedBooks, b)
		}
		if !sameTags(old.TagIDs, b.TagIDs) {
			cs.RetaggedBooks = append(cs.RetaggedBooks, b)
		}
	}

	return cs
}
