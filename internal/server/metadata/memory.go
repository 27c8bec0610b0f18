package metadata

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Callers always get deep copies, so
// changes become visible to other readers only through Save.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*models.User)}
}

// AddUser provisions a user. An empty ID is replaced with a fresh UUID.
func (s *MemoryStore) AddUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cloneUser(u)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.users[c.Email] = c
}

func (s *MemoryStore) GetUser(ctx context.Context, email string, mode ReadMode) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.users[email]
	if !ok {
		return nil, common.ErrorNotFound
	}

	u := cloneUser(stored)
	if mode == Tracked {
		u.Track()
	}
	return u, nil
}

func (s *MemoryStore) BookExists(ctx context.Context, userID string, bookID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.byID(userID)
	if u == nil {
		return false, nil
	}
	return u.FindBook(bookID) != nil, nil
}

func (s *MemoryStore) UsedStorage(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.byID(userID)
	if u == nil {
		return 0, nil
	}
	return u.UsedStorage(), nil
}

func (s *MemoryStore) Save(ctx context.Context, u *models.User) (int, error) {
	if !u.Tracked() {
		return 0, common.ErrorUntracked
	}

	cs := u.Changes()
	if cs.Empty() {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[u.Email]
	if !ok {
		return 0, common.ErrorNotFound
	}

	for _, t := range append(cs.NewTags, cs.RenamedTags...) {
		c := *t
		if existing := stored.FindTag(t.ID); existing != nil {
			*existing = c
		} else {
			stored.Tags = append(stored.Tags, &c)
		}
	}

	changed := append(append(cs.NewBooks, cs.UpdatedBooks...), cs.RetaggedBooks...)
	for _, b := range changed {
		c := b.Clone()
		if existing := stored.FindBook(b.ID); existing != nil {
			*existing = *c
		} else {
			stored.Books = append(stored.Books, c)
		}
	}

	u.Track()
	return cs.Len(), nil
}

func (s *MemoryStore) DeleteBook(ctx context.Context, u *models.User, bookID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[u.Email]
	if !ok || !stored.RemoveBook(bookID) {
		return common.ErrorNotFound
	}
	u.RemoveBook(bookID)
	return nil
}

func (s *MemoryStore) byID(userID string) *models.User {
	for _, u := range s.users {
		if u.ID == userID {
			return u
		}
	}
	return nil
}

func cloneUser(u *models.User) *models.User {
	c := &models.User{
		ID:           u.ID,
		Email:        u.Email,
		StorageLimit: u.StorageLimit,
		CreatedAt:    u.CreatedAt,
	}
	for _, b := range u.Books {
		c.Books = append(c.Books, b.Clone())
	}
	for _, t := range u.Tags {
		tc := *t
		c.Tags = append(c.Tags, &tc)
	}
	return c
}
