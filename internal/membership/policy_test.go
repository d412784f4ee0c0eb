package membership

import (
	"testing"

	"pgregory.net/rapid"
)

func approvedAs(role Role) *Membership {
	return &Membership{Status: StatusApproved, Role: role}
}

func pendingMember() *Membership {
	return &Membership{Status: StatusPending, Role: RoleMember}
}

func TestEffectiveRole(t *testing.T) {
	cases := []struct {
		name    string
		ownerID int64
		userID  int64
		m       *Membership
		want    Role
	}{
		{"owner id always wins", 1, 1, nil, RoleOwner},
		{"owner id overrides stored role", 1, 1, approvedAs(RoleMember), RoleOwner},
		{"approved admin", 1, 2, approvedAs(RoleAdmin), RoleAdmin},
		{"approved member", 1, 2, approvedAs(RoleMember), RoleMember},
		{"pending member has no authority", 1, 2, pendingMember(), ""},
		{"rejected member has no authority", 1, 2, &Membership{Status: StatusRejected, Role: RoleMember}, ""},
		{"no membership", 1, 2, nil, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := EffectiveRole(c.ownerID, c.userID, c.m); got != c.want {
				t.Fatalf("EffectiveRole = %q, want %q", got, c.want)
			}
		})
	}
}

func TestUpdateAndDecisionRules(t *testing.T) {
	ownerID := int64(1)

	if !CanUpdatePlanet(ownerID, ownerID, nil) {
		t.Error("owner must be able to update the planet")
	}
	if !CanUpdatePlanet(ownerID, 2, approvedAs(RoleAdmin)) {
		t.Error("approved admin must be able to update the planet")
	}
	if CanUpdatePlanet(ownerID, 2, approvedAs(RoleMember)) {
		t.Error("plain member must not update the planet")
	}
	if CanUpdatePlanet(ownerID, 2, pendingMember()) {
		t.Error("pending member must not update the planet")
	}
	if CanUpdatePlanet(ownerID, 2, nil) {
		t.Error("non-member must not update the planet")
	}

	if !CanDecideJoin(ownerID, ownerID, nil) || !CanDecideJoin(ownerID, 2, approvedAs(RoleAdmin)) {
		t.Error("owner and admins decide join applications")
	}
	if CanDecideJoin(ownerID, 2, approvedAs(RoleMember)) {
		t.Error("plain member must not decide join applications")
	}

	if !CanKick(ownerID, 2, approvedAs(RoleAdmin)) || !CanKick(ownerID, ownerID, nil) {
		t.Error("owner and admins may kick")
	}
	if CanKick(ownerID, 2, approvedAs(RoleMember)) {
		t.Error("plain member must not kick")
	}
}

func TestDeleteRule(t *testing.T) {
	if !CanDeletePlanet(1, 1, false) {
		t.Error("owner may delete")
	}
	if CanDeletePlanet(1, 2, false) {
		t.Error("non-owner may not delete")
	}
	if !CanDeletePlanet(1, 2, true) {
		t.Error("superuser override must bypass the owner check")
	}
}

func TestRoleChangeAndTransferRules(t *testing.T) {
	if !CanChangeRole(1, 1, 2) {
		t.Error("owner may change a member's role")
	}
	if CanChangeRole(1, 2, 3) {
		t.Error("non-owner may not change roles")
	}
	if CanChangeRole(1, 1, 1) {
		t.Error("the owner's own role is immutable via role change")
	}

	if !CanTransferOwnership(1, 1) || CanTransferOwnership(1, 2) {
		t.Error("only the current owner may transfer ownership")
	}

	if CanLeave(1, 1) {
		t.Error("the owner may not leave")
	}
	if !CanLeave(1, 2) {
		t.Error("everyone else may leave")
	}
}

func TestPolicyProperties(t *testing.T) {
	statuses := []Status{StatusPending, StatusApproved, StatusRejected}
	roles := []Role{RoleAdmin, RoleMember}

	drawMembership := func(t *rapid.T) *Membership {
		if rapid.Bool().Draw(t, "absent") {
			return nil
		}
		return &Membership{
			Status: rapid.SampledFrom(statuses).Draw(t, "status"),
			Role:   rapid.SampledFrom(roles).Draw(t, "role"),
		}
	}

	t.Run("owner always has owner authority", rapid.MakeCheck(func(t *rapid.T) {
		ownerID := rapid.Int64Range(1, 1_000).Draw(t, "ownerID")
		m := drawMembership(t)
		if got := EffectiveRole(ownerID, ownerID, m); got != RoleOwner {
			t.Fatalf("EffectiveRole for the owner = %q, want owner", got)
		}
	}))

	t.Run("unapproved memberships grant nothing", rapid.MakeCheck(func(t *rapid.T) {
		ownerID := rapid.Int64Range(1, 1_000).Draw(t, "ownerID")
		userID := rapid.Int64Range(1_001, 2_000).Draw(t, "userID")
		m := drawMembership(t)
		if m == nil || m.Status == StatusApproved {
			t.Skip()
		}
		if got := EffectiveRole(ownerID, userID, m); got != "" {
			t.Fatalf("EffectiveRole = %q for unapproved membership, want none", got)
		}
	}))

	t.Run("no actor but the owner passes transfer or role change", rapid.MakeCheck(func(t *rapid.T) {
		ownerID := rapid.Int64Range(1, 1_000).Draw(t, "ownerID")
		actorID := rapid.Int64Range(1_001, 2_000).Draw(t, "actorID")
		targetID := rapid.Int64Range(1, 2_000).Draw(t, "targetID")
		if CanTransferOwnership(ownerID, actorID) {
			t.Fatalf("non-owner %d passed transfer", actorID)
		}
		if CanChangeRole(ownerID, actorID, targetID) {
			t.Fatalf("non-owner %d passed role change", actorID)
		}
	}))
}
