// internal/membership/policy.go

package membership

// Authorization policy for every planet mutation. All functions here are
// pure: they consume records the caller already fetched and return an
// allow/deny decision. Callers translate a deny into a Forbidden error,
// never a NotFound, so "resource absent" and "access denied" stay
// distinguishable.

// EffectiveRole returns the authority a user holds inside a planet. The
// planet's owner id always wins over whatever the membership row says; for
// everyone else the stored role only counts once the membership is
// approved.
func EffectiveRole(ownerID, userID int64, m *Membership) Role {
	if ownerID == userID {
		return RoleOwner
	}
	if m == nil || m.Status != StatusApproved {
		return ""
	}
	return m.Role
}

// CanUpdatePlanet allows the owner and approved admins to edit planet
// metadata.
func CanUpdatePlanet(ownerID, actorID int64, m *Membership) bool {
	switch EffectiveRole(ownerID, actorID, m) {
	case RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// CanDeletePlanet allows the owner, or a platform superuser regardless of
// membership.
func CanDeletePlanet(ownerID, actorID int64, superuser bool) bool {
	return superuser || ownerID == actorID
}

// CanDecideJoin covers both approving and rejecting a pending application.
func CanDecideJoin(ownerID, actorID int64, m *Membership) bool {
	switch EffectiveRole(ownerID, actorID, m) {
	case RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// CanKick allows the owner and approved admins to remove a member. The
// owner itself can never be the removed party; the shared deletion path
// rejects it.
func CanKick(ownerID, actorID int64, m *Membership) bool {
	switch EffectiveRole(ownerID, actorID, m) {
	case RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// CanChangeRole allows only the current owner to promote or demote, and
// never against the owner itself.
func CanChangeRole(ownerID, actorID, targetID int64) bool {
	return ownerID == actorID && targetID != ownerID
}

// CanTransferOwnership allows only the current owner to hand the planet
// over.
func CanTransferOwnership(ownerID, actorID int64) bool {
	return ownerID == actorID
}

// CanLeave forbids the owner from leaving; ownership must be transferred
// first.
func CanLeave(ownerID, userID int64) bool {
	return ownerID != userID
}
