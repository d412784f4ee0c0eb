// internal/planet/service.go

package planet

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the planet lifecycle service.
type Service interface {
	// Create inserts the planet and the creator's owner membership in one
	// transaction.
	Create(ctx context.Context, ownerID int64, name, description string, published bool) (*Planet, error)

	Get(ctx context.Context, id uuid.UUID) (*Planet, error)
	List(ctx context.Context) ([]*Planet, error)

	// Update applies partial attributes, gated by the update policy.
	Update(ctx context.Context, actorID int64, id uuid.UUID, upd Update) (*Planet, error)

	// Delete removes the planet and everything hanging off it in one
	// transaction. superuser bypasses the owner check.
	Delete(ctx context.Context, actorID int64, superuser bool, id uuid.UUID) error

	CreateArticle(ctx context.Context, authorID int64, planetID uuid.UUID, title, body string) (*Article, error)
	ListArticles(ctx context.Context, planetID uuid.UUID) ([]*Article, error)

	AddBookmark(ctx context.Context, userID int64, planetID uuid.UUID) (*Bookmark, error)
	RemoveBookmark(ctx context.Context, userID int64, planetID uuid.UUID) error
	ListBookmarks(ctx context.Context, userID int64) ([]*Planet, error)
}
