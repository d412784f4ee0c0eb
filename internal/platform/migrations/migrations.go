// internal/platform/migrations/migrations.go

// Package migrations holds the relational schema for the planets service.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// The composite primary key on memberships is load-bearing: it is the
// constraint that linearizes concurrent join requests for the same
// (planet, user) pair. The same applies to bookmarks.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS planets (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		published BOOLEAN NOT NULL DEFAULT FALSE,
		owner_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS memberships (
		planet_id UUID NOT NULL,
		user_id BIGINT NOT NULL,
		status TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (planet_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id UUID PRIMARY KEY,
		planet_id UUID NOT NULL,
		author_id BIGINT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS bookmarks (
		user_id BIGINT NOT NULL,
		planet_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, planet_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_planet ON articles (planet_id)`,
}

// Apply executes every schema statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
