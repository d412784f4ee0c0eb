// internal/membership/implementation.go

package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"planethub/internal/platform/apperrors"
)

var tracer = otel.Tracer("planethub/internal/membership")

// service implements the Service interface against a relational store. It
// holds no mutable state between requests; the database is the sole point
// of serialization.
type service struct {
	db          *sql.DB
	joinLimiter *rate.Limiter
}

// NewService creates a new membership service instance.
func NewService(db *sql.DB) Service {
	return &service{
		db:          db,
		joinLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

// Join records a membership application for a planet. Every join starts as
// pending regardless of planet visibility; an admin has to approve it. A
// prior record for the pair, whatever its status, denies the join with a
// status-specific message.
func (s *service) Join(ctx context.Context, userID int64, planetID uuid.UUID) (Status, error) {
	ctx, span := tracer.Start(ctx, "membership.Join")
	defer span.End()

	if !s.joinLimiter.Allow() {
		return "", fmt.Errorf("join rate limit exceeded")
	}

	if _, err := s.planetOwner(ctx, planetID); err != nil {
		return "", err
	}

	existing, err := s.Get(ctx, planetID, userID)
	if err != nil && !apperrors.IsNotFound(err) {
		return "", err
	}
	if existing != nil {
		switch existing.Status {
		case StatusApproved:
			return "", apperrors.Conflict("user %d is already a member of planet %s", userID, planetID)
		case StatusPending:
			return "", apperrors.Conflict("user %d already has a pending application for planet %s", userID, planetID)
		default:
			return "", apperrors.Conflict("user %d was rejected from planet %s and must re-apply", userID, planetID)
		}
	}

	m := &Membership{
		PlanetID: planetID,
		UserID:   userID,
		Status:   StatusPending,
		Role:     RoleMember,
	}
	if err := m.Validate(); err != nil {
		return "", err
	}

	query := `
		INSERT INTO memberships (planet_id, user_id, status, role)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, m.PlanetID, m.UserID, m.Status, m.Role); err != nil {
		// A concurrent join for the same pair loses the race on the
		// composite primary key.
		if isUniqueViolation(err) {
			return "", apperrors.Conflict("user %d already has a membership record for planet %s", userID, planetID)
		}
		return "", fmt.Errorf("insert membership: %w", err)
	}

	return StatusPending, nil
}

// Approve transitions a pending application to approved.
func (s *service) Approve(ctx context.Context, actorID int64, planetID uuid.UUID, targetID int64) (*Membership, error) {
	ctx, span := tracer.Start(ctx, "membership.Approve")
	defer span.End()
	return s.decide(ctx, actorID, planetID, targetID, StatusApproved)
}

// Reject transitions a pending application to rejected. The record stays
// behind; the user must delete and re-create it to apply again.
func (s *service) Reject(ctx context.Context, actorID int64, planetID uuid.UUID, targetID int64) (*Membership, error) {
	ctx, span := tracer.Start(ctx, "membership.Reject")
	defer span.End()
	return s.decide(ctx, actorID, planetID, targetID, StatusRejected)
}

func (s *service) decide(ctx context.Context, actorID int64, planetID uuid.UUID, targetID int64, verdict Status) (*Membership, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ownerID, err := s.planetOwnerForUpdate(ctx, tx, planetID)
	if err != nil {
		return nil, err
	}

	actor, err := s.getTx(ctx, tx, planetID, actorID, false)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if !CanDecideJoin(ownerID, actorID, actor) {
		return nil, apperrors.Forbidden("user %d may not decide applications for planet %s", actorID, planetID)
	}

	target, err := s.getTx(ctx, tx, planetID, targetID, true)
	if err != nil {
		return nil, err
	}
	if target.Status != StatusPending {
		return nil, apperrors.NotFound("no pending application for user %d in planet %s", targetID, planetID)
	}

	query := `
		UPDATE memberships
		SET status = $1, updated_at = NOW()
		WHERE planet_id = $2 AND user_id = $3
	`
	if _, err := tx.ExecContext(ctx, query, verdict, planetID, targetID); err != nil {
		return nil, fmt.Errorf("update membership status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	target.Status = verdict
	return target, nil
}

// Leave deletes the caller's membership record. Status and role are
// discarded, not archived, which is what allows a rejected user to apply
// again from a clean slate.
func (s *service) Leave(ctx context.Context, userID int64, planetID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "membership.Leave")
	defer span.End()

	ownerID, err := s.planetOwner(ctx, planetID)
	if err != nil {
		return err
	}
	if !CanLeave(ownerID, userID) {
		return apperrors.Forbidden("the owner cannot leave planet %s; transfer ownership first", planetID)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM memberships WHERE planet_id = $1 AND user_id = $2`, planetID, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("user %d has no membership in planet %s", userID, planetID)
	}
	return nil
}

// Kick removes another member. Authorization aside, it is the same
// deletion path as Leave, so the owner can never be the target.
func (s *service) Kick(ctx context.Context, actorID int64, planetID uuid.UUID, targetID int64) error {
	ctx, span := tracer.Start(ctx, "membership.Kick")
	defer span.End()

	ownerID, err := s.planetOwner(ctx, planetID)
	if err != nil {
		return err
	}

	actor, err := s.Get(ctx, planetID, actorID)
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}
	if !CanKick(ownerID, actorID, actor) {
		return apperrors.Forbidden("user %d may not remove members from planet %s", actorID, planetID)
	}

	return s.Leave(ctx, targetID, planetID)
}

// UpdateRole promotes or demotes a member. Only admin and member are
// assignable; the owner role moves exclusively through TransferOwnership.
func (s *service) UpdateRole(ctx context.Context, actorID int64, planetID uuid.UUID, targetID int64, role Role) (*Membership, error) {
	ctx, span := tracer.Start(ctx, "membership.UpdateRole")
	defer span.End()

	if !role.Assignable() {
		return nil, apperrors.Forbidden("role %q cannot be assigned directly", role)
	}

	ownerID, err := s.planetOwner(ctx, planetID)
	if err != nil {
		return nil, err
	}
	if !CanChangeRole(ownerID, actorID, targetID) {
		return nil, apperrors.Forbidden("user %d may not change roles in planet %s", actorID, planetID)
	}

	target, err := s.Get(ctx, planetID, targetID)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE memberships
		SET role = $1, updated_at = NOW()
		WHERE planet_id = $2 AND user_id = $3
	`
	if _, err := s.db.ExecContext(ctx, query, role, planetID, targetID); err != nil {
		return nil, fmt.Errorf("update membership role: %w", err)
	}

	target.Role = role
	return target, nil
}

// TransferOwnership hands the planet over to an existing member. The
// planet's owner id, the new owner's membership, and the old owner's
// membership move in one transaction: the new owner becomes an approved
// owner, the old owner steps down to admin but keeps access.
func (s *service) TransferOwnership(ctx context.Context, actorID int64, planetID uuid.UUID, newOwnerID int64) error {
	ctx, span := tracer.Start(ctx, "membership.TransferOwnership")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ownerID, err := s.planetOwnerForUpdate(ctx, tx, planetID)
	if err != nil {
		return err
	}
	if !CanTransferOwnership(ownerID, actorID) {
		return apperrors.Forbidden("user %d is not the owner of planet %s", actorID, planetID)
	}
	if newOwnerID == ownerID {
		return nil
	}

	// The new owner must already hold a membership, whatever its status.
	if _, err := s.getTx(ctx, tx, planetID, newOwnerID, true); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE planets SET owner_id = $1, updated_at = NOW() WHERE id = $2`, newOwnerID, planetID); err != nil {
		return fmt.Errorf("update planet owner: %w", err)
	}

	promote := `
		UPDATE memberships
		SET status = $1, role = $2, updated_at = NOW()
		WHERE planet_id = $3 AND user_id = $4
	`
	if _, err := tx.ExecContext(ctx, promote, StatusApproved, RoleOwner, planetID, newOwnerID); err != nil {
		return fmt.Errorf("promote new owner: %w", err)
	}

	demote := `
		UPDATE memberships
		SET role = $1, updated_at = NOW()
		WHERE planet_id = $2 AND user_id = $3
	`
	if _, err := tx.ExecContext(ctx, demote, RoleAdmin, planetID, ownerID); err != nil {
		return fmt.Errorf("demote old owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves the membership for a (planet, user) pair.
func (s *service) Get(ctx context.Context, planetID uuid.UUID, userID int64) (*Membership, error) {
	query := `
		SELECT planet_id, user_id, status, role, created_at, updated_at
		FROM memberships
		WHERE planet_id = $1 AND user_id = $2
	`
	m := &Membership{}
	err := s.db.QueryRowContext(ctx, query, planetID, userID).Scan(
		&m.PlanetID,
		&m.UserID,
		&m.Status,
		&m.Role,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user %d has no membership in planet %s", userID, planetID)
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// ListMembers returns the memberships of a planet, optionally filtered by
// status. An empty status lists everyone.
func (s *service) ListMembers(ctx context.Context, planetID uuid.UUID, status Status) ([]*Membership, error) {
	query := `
		SELECT planet_id, user_id, status, role, created_at, updated_at
		FROM memberships
		WHERE planet_id = $1
		ORDER BY created_at
	`
	args := []any{planetID}
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("invalid status filter %q", status)
		}
		query = `
			SELECT planet_id, user_id, status, role, created_at, updated_at
			FROM memberships
			WHERE planet_id = $1 AND status = $2
			ORDER BY created_at
		`
		args = append(args, status)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		m := &Membership{}
		if err := rows.Scan(&m.PlanetID, &m.UserID, &m.Status, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CheckOwnerInvariant audits the cross-entity invariant: exactly one
// membership with role owner, approved, and matching the planet's owner id.
func (s *service) CheckOwnerInvariant(ctx context.Context, planetID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "membership.CheckOwnerInvariant")
	defer span.End()

	ownerID, err := s.planetOwner(ctx, planetID)
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT user_id, status FROM memberships WHERE planet_id = $1 AND role = $2`, planetID, RoleOwner)
	if err != nil {
		return fmt.Errorf("query owner memberships: %w", err)
	}
	defer rows.Close()

	type ownerRow struct {
		userID int64
		status Status
	}
	var owners []ownerRow
	for rows.Next() {
		var row ownerRow
		if err := rows.Scan(&row.userID, &row.status); err != nil {
			return fmt.Errorf("scan owner membership: %w", err)
		}
		owners = append(owners, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(owners) != 1 {
		return fmt.Errorf("planet %s has %d owner memberships, want exactly 1", planetID, len(owners))
	}
	if owners[0].userID != ownerID {
		return fmt.Errorf("planet %s owner membership belongs to user %d, planet owner is %d", planetID, owners[0].userID, ownerID)
	}
	if owners[0].status != StatusApproved {
		return fmt.Errorf("planet %s owner membership has status %q, want approved", planetID, owners[0].status)
	}
	return nil
}

// BootstrapOwner inserts the creator's owner membership inside the caller's
// transaction. Planet creation must go through here so the owner invariant
// is established in the same atomic unit as the planet row.
func BootstrapOwner(ctx context.Context, tx *sql.Tx, planetID uuid.UUID, ownerID int64) error {
	m := &Membership{
		PlanetID: planetID,
		UserID:   ownerID,
		Status:   StatusApproved,
		Role:     RoleOwner,
	}
	if err := m.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO memberships (planet_id, user_id, status, role)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.ExecContext(ctx, query, m.PlanetID, m.UserID, m.Status, m.Role); err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("user %d already has a membership record for planet %s", ownerID, planetID)
		}
		return fmt.Errorf("insert owner membership: %w", err)
	}
	return nil
}

// planetOwner looks up the owner of a planet, proving the planet exists.
func (s *service) planetOwner(ctx context.Context, planetID uuid.UUID) (int64, error) {
	var ownerID int64
	err := s.db.QueryRowContext(ctx, `SELECT owner_id FROM planets WHERE id = $1`, planetID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.NotFound("planet %s not found", planetID)
		}
		return 0, fmt.Errorf("get planet owner: %w", err)
	}
	return ownerID, nil
}

// planetOwnerForUpdate is planetOwner with a row lock, pinning the owner id
// for the duration of the caller's transaction.
func (s *service) planetOwnerForUpdate(ctx context.Context, tx *sql.Tx, planetID uuid.UUID) (int64, error) {
	var ownerID int64
	err := tx.QueryRowContext(ctx, `SELECT owner_id FROM planets WHERE id = $1 FOR UPDATE`, planetID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.NotFound("planet %s not found", planetID)
		}
		return 0, fmt.Errorf("get planet owner: %w", err)
	}
	return ownerID, nil
}

func (s *service) getTx(ctx context.Context, tx *sql.Tx, planetID uuid.UUID, userID int64, forUpdate bool) (*Membership, error) {
	query := `
		SELECT planet_id, user_id, status, role, created_at, updated_at
		FROM memberships
		WHERE planet_id = $1 AND user_id = $2
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	m := &Membership{}
	err := tx.QueryRowContext(ctx, query, planetID, userID).Scan(
		&m.PlanetID,
		&m.UserID,
		&m.Status,
		&m.Role,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user %d has no membership in planet %s", userID, planetID)
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
