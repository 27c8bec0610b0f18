package models

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a named label owned by a user and shared by reference between the
// user's books.
type Tag struct {
	ID        uuid.UUID
	UserID    string
	Name      string
	CreatedAt time.Time
}
