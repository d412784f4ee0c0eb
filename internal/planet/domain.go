// internal/planet/domain.go

package planet

import (
	"time"

	"github.com/google/uuid"
)

// Planet represents a community group. It always has exactly one owner,
// who also always holds an approved owner membership.
type Planet struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Published   bool      `json:"published"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Article is content posted inside a planet. Deleting a planet deletes its
// articles in the same transaction.
type Article struct {
	ID        uuid.UUID `json:"id"`
	PlanetID  uuid.UUID `json:"planet_id"`
	AuthorID  int64     `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Bookmark is a user's saved reference to a planet, independent of
// membership.
type Bookmark struct {
	UserID    int64     `json:"user_id"`
	PlanetID  uuid.UUID `json:"planet_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Update carries the partial attributes of a planet update. Nil fields are
// left untouched.
type Update struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Published   *bool   `json:"published"`
}
