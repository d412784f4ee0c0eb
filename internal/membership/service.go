// internal/membership/service.go

package membership

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the membership lifecycle service.
type Service interface {
	// Join records a membership application. Every join starts as pending;
	// the returned status lets callers report the outcome explicitly.
	Join(ctx context.Context, userID int64, planetID uuid.UUID) (Status, error)

	// Approve and Reject decide a pending application. Both fail NotFound
	// when the application is missing or already decided.
	Approve(ctx context.Context, actorID int64, planetID uuid.UUID, targetID int64) (*Membership, error)
	Reject(ctx context.Context, actorID int64, planetID uuid.UUID, targetID int64) (*Membership, error)

	// Leave deletes the caller's membership. The owner cannot leave.
	Leave(ctx context.Context, userID int64, planetID uuid.UUID) error

	// Kick removes another member through the same deletion path as Leave.
	Kick(ctx context.Context, actorID int64, planetID uuid.UUID, targetID int64) error

	// UpdateRole promotes or demotes a member between admin and member.
	UpdateRole(ctx context.Context, actorID int64, planetID uuid.UUID, targetID int64, role Role) (*Membership, error)

	// TransferOwnership hands the planet to an existing member, promoting
	// the new owner's membership and demoting the old owner to admin in the
	// same transaction.
	TransferOwnership(ctx context.Context, actorID int64, planetID uuid.UUID, newOwnerID int64) error

	Get(ctx context.Context, planetID uuid.UUID, userID int64) (*Membership, error)
	ListMembers(ctx context.Context, planetID uuid.UUID, status Status) ([]*Membership, error)

	// CheckOwnerInvariant verifies that exactly one approved owner
	// membership exists and that it matches the planet's owner id.
	CheckOwnerInvariant(ctx context.Context, planetID uuid.UUID) error
}
