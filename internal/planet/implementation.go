// internal/planet/implementation.go

package planet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"planethub/internal/membership"
	"planethub/internal/platform/apperrors"
)

var tracer = otel.Tracer("planethub/internal/planet")

// service implements the Service interface.
type service struct {
	db          *sql.DB
	memberships membership.Service
}

// NewService creates a new planet service instance.
func NewService(db *sql.DB, memberships membership.Service) Service {
	return &service{
		db:          db,
		memberships: memberships,
	}
}

// Create inserts the planet row and the creator's owner membership in the
// same transaction. Both writes succeed or neither does.
func (s *service) Create(ctx context.Context, ownerID int64, name, description string, published bool) (*Planet, error) {
	ctx, span := tracer.Start(ctx, "planet.Create")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New()
	query := `
		INSERT INTO planets (id, name, description, published, owner_id)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, query, id, name, description, published, ownerID); err != nil {
		return nil, fmt.Errorf("insert planet: %w", err)
	}

	if err := membership.BootstrapOwner(ctx, tx, id, ownerID); err != nil {
		return nil, fmt.Errorf("bootstrap owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &Planet{
		ID:          id,
		Name:        name,
		Description: description,
		Published:   published,
		OwnerID:     ownerID,
	}, nil
}

// Get retrieves a planet by its ID.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Planet, error) {
	query := `
		SELECT id, name, description, published, owner_id, created_at, updated_at
		FROM planets
		WHERE id = $1
	`
	p := &Planet{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Published,
		&p.OwnerID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("planet %s not found", id)
		}
		return nil, fmt.Errorf("get planet: %w", err)
	}
	return p, nil
}

// List returns all published planets.
func (s *service) List(ctx context.Context) ([]*Planet, error) {
	query := `
		SELECT id, name, description, published, owner_id, created_at, updated_at
		FROM planets
		WHERE published = TRUE
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list planets: %w", err)
	}
	defer rows.Close()

	return scanPlanets(rows)
}

// Update merges partial attributes into the planet. Allowed for the owner
// and approved admins.
func (s *service) Update(ctx context.Context, actorID int64, id uuid.UUID, upd Update) (*Planet, error) {
	ctx, span := tracer.Start(ctx, "planet.Update")
	defer span.End()

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := s.memberships.Get(ctx, id, actorID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if !membership.CanUpdatePlanet(p.OwnerID, actorID, m) {
		return nil, apperrors.Forbidden("user %d may not update planet %s", actorID, id)
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Published != nil {
		p.Published = *upd.Published
	}

	query := `
		UPDATE planets
		SET name = $1, description = $2, published = $3, updated_at = NOW()
		WHERE id = $4
	`
	if _, err := s.db.ExecContext(ctx, query, p.Name, p.Description, p.Published, id); err != nil {
		return nil, fmt.Errorf("update planet: %w", err)
	}
	return p, nil
}

// Delete removes the planet and all dependent content in one transaction.
// A failure partway through leaves everything in place.
func (s *service) Delete(ctx context.Context, actorID int64, superuser bool, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "planet.Delete")
	defer span.End()

	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !membership.CanDeletePlanet(p.OwnerID, actorID, superuser) {
		return apperrors.Forbidden("user %d may not delete planet %s", actorID, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		name  string
		query string
	}{
		{"delete articles", `DELETE FROM articles WHERE planet_id = $1`},
		{"delete bookmarks", `DELETE FROM bookmarks WHERE planet_id = $1`},
		{"delete memberships", `DELETE FROM memberships WHERE planet_id = $1`},
		{"delete planet", `DELETE FROM planets WHERE id = $1`},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CreateArticle posts an article into a planet. Only approved members may
// post.
func (s *service) CreateArticle(ctx context.Context, authorID int64, planetID uuid.UUID, title, body string) (*Article, error) {
	ctx, span := tracer.Start(ctx, "planet.CreateArticle")
	defer span.End()

	p, err := s.Get(ctx, planetID)
	if err != nil {
		return nil, err
	}

	m, err := s.memberships.Get(ctx, planetID, authorID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if membership.EffectiveRole(p.OwnerID, authorID, m) == "" {
		return nil, apperrors.Forbidden("user %d is not an approved member of planet %s", authorID, planetID)
	}

	a := &Article{
		ID:       uuid.New(),
		PlanetID: planetID,
		AuthorID: authorID,
		Title:    title,
		Body:     body,
	}
	query := `
		INSERT INTO articles (id, planet_id, author_id, title, body)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query, a.ID, a.PlanetID, a.AuthorID, a.Title, a.Body); err != nil {
		return nil, fmt.Errorf("insert article: %w", err)
	}
	return a, nil
}

// ListArticles returns the articles of a planet, newest first.
func (s *service) ListArticles(ctx context.Context, planetID uuid.UUID) ([]*Article, error) {
	query := `
		SELECT id, planet_id, author_id, title, body, created_at
		FROM articles
		WHERE planet_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, planetID)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []*Article
	for rows.Next() {
		a := &Article{}
		if err := rows.Scan(&a.ID, &a.PlanetID, &a.AuthorID, &a.Title, &a.Body, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// AddBookmark saves a planet for a user. Duplicate bookmarks fail Conflict
// on the composite primary key.
func (s *service) AddBookmark(ctx context.Context, userID int64, planetID uuid.UUID) (*Bookmark, error) {
	ctx, span := tracer.Start(ctx, "planet.AddBookmark")
	defer span.End()

	if _, err := s.Get(ctx, planetID); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO bookmarks (user_id, planet_id)
		VALUES ($1, $2)
	`
	if _, err := s.db.ExecContext(ctx, query, userID, planetID); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("user %d already bookmarked planet %s", userID, planetID)
		}
		return nil, fmt.Errorf("insert bookmark: %w", err)
	}
	return &Bookmark{UserID: userID, PlanetID: planetID}, nil
}

// RemoveBookmark deletes a bookmark.
func (s *service) RemoveBookmark(ctx context.Context, userID int64, planetID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "planet.RemoveBookmark")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE user_id = $1 AND planet_id = $2`, userID, planetID)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("user %d has no bookmark for planet %s", userID, planetID)
	}
	return nil
}

// ListBookmarks returns the planets a user has bookmarked.
func (s *service) ListBookmarks(ctx context.Context, userID int64) ([]*Planet, error) {
	query := `
		SELECT p.id, p.name, p.description, p.published, p.owner_id, p.created_at, p.updated_at
		FROM bookmarks b
		JOIN planets p ON p.id = b.planet_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	return scanPlanets(rows)
}

func scanPlanets(rows *sql.Rows) ([]*Planet, error) {
	var planets []*Planet
	for rows.Next() {
		p := &Planet{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Published, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan planet: %w", err)
		}
		planets = append(planets, p)
	}
	return planets, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
