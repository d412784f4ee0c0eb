// internal/planet/implementation_test.go

package planet

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"planethub/internal/membership"
	"planethub/internal/platform/apperrors"
)

// fakeMemberships satisfies membership.Service for the read paths the
// planet service uses. Only Get is wired; everything else is unreachable
// from these tests.
type fakeMemberships struct {
	membership.Service
	get func(planetID uuid.UUID, userID int64) (*membership.Membership, error)
}

func (f *fakeMemberships) Get(_ context.Context, planetID uuid.UUID, userID int64) (*membership.Membership, error) {
	return f.get(planetID, userID)
}

func noMemberships() *fakeMemberships {
	return &fakeMemberships{get: func(planetID uuid.UUID, userID int64) (*membership.Membership, error) {
		return nil, apperrors.NotFound("user %d has no membership in planet %s", userID, planetID)
	}}
}

func newMockService(t *testing.T, memberships membership.Service) (Service, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	return NewService(db, memberships), mock, func() { db.Close() }
}

func planetRows(id uuid.UUID, ownerID int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "description", "published", "owner_id", "created_at", "updated_at"}).
		AddRow(id.String(), "orbit", "a planet", true, ownerID, now, now)
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateBootstrapsOwnerMembership(t *testing.T) {
	svc, mock, done := newMockService(t, noMemberships())
	defer done()

	ownerID := int64(1)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO planets").
		WithArgs(sqlmock.AnyArg(), "orbit", "a planet", true, ownerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO memberships").
		WithArgs(sqlmock.AnyArg(), ownerID, membership.StatusApproved, membership.RoleOwner).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := svc.Create(context.Background(), ownerID, "orbit", "a planet", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.OwnerID != ownerID {
		t.Fatalf("owner = %d, want %d", p.OwnerID, ownerID)
	}
	expectMet(t, mock)
}

func TestCreateRollsBackWhenBootstrapFails(t *testing.T) {
	svc, mock, done := newMockService(t, noMemberships())
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO planets").
		WithArgs(sqlmock.AnyArg(), "orbit", "", false, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO memberships").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, err := svc.Create(context.Background(), 1, "orbit", "", false); err == nil {
		t.Fatal("expected create to fail when the owner membership insert fails")
	}
	expectMet(t, mock)
}

func TestUpdateByAdmin(t *testing.T) {
	planetID := uuid.New()
	admin := &fakeMemberships{get: func(uuid.UUID, int64) (*membership.Membership, error) {
		return &membership.Membership{
			PlanetID: planetID,
			UserID:   7,
			Status:   membership.StatusApproved,
			Role:     membership.RoleAdmin,
		}, nil
	}}

	svc, mock, done := newMockService(t, admin)
	defer done()

	mock.ExpectQuery("FROM planets").WithArgs(planetID).WillReturnRows(planetRows(planetID, 1))
	mock.ExpectExec("UPDATE planets").
		WithArgs("renamed", "a planet", true, planetID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	name := "renamed"
	p, err := svc.Update(context.Background(), 7, planetID, Update{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Name != "renamed" || p.Description != "a planet" {
		t.Fatalf("merged planet = (%q, %q)", p.Name, p.Description)
	}
	expectMet(t, mock)
}

func TestUpdateByNonMemberForbidden(t *testing.T) {
	svc, mock, done := newMockService(t, noMemberships())
	defer done()

	planetID := uuid.New()
	mock.ExpectQuery("FROM planets").WithArgs(planetID).WillReturnRows(planetRows(planetID, 1))

	name := "renamed"
	_, err := svc.Update(context.Background(), 9, planetID, Update{Name: &name})
	if !apperrors.IsForbidden(err) {
		t.Fatalf("err = %v, want Forbidden", err)
	}
	expectMet(t, mock)
}

func TestUpdateUnknownPlanetNotFound(t *testing.T) {
	svc, mock, done := newMockService(t, noMemberships())
	defer done()

	planetID := uuid.New()
	mock.ExpectQuery("FROM planets").WithArgs(planetID).WillReturnError(sql.ErrNoRows)

	_, err := svc.Update(context.Background(), 1, planetID, Update{})
	if !apperrors.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
	expectMet(t, mock)
}

func TestDeleteCascades(t *testing.T) {
	svc, mock, done := newMockService(t, noMemberships())
	defer done()

	planetID := uuid.New()
	mock.ExpectQuery("FROM planets").WithArgs(planetID).WillReturnRows(planetRows(planetID, 1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM articles").WithArgs(planetID).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM bookmarks").WithArgs(planetID).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM memberships").WithArgs(planetID).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM planets").WithArgs(planetID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.Delete(context.Background(), 1, false, planetID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	expectMet(t, mock)
}

func TestDeleteRollsBackMidCascade(t *testing.T) {
	svc, mock, done := newMockService(t, noMemberships())
	defer done()

	planetID := uuid.New()
	mock.ExpectQuery("FROM planets").WithArgs(planetID).WillReturnRows(planetRows(planetID, 1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM articles").WithArgs(planetID).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM bookmarks").WithArgs(planetID).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if err := svc.Delete(context.Background(), 1, false, planetID); err == nil {
		t.Fatal("expected delete to fail mid-cascade")
	}
	expectMet(t, mock)
}

func TestDeleteByNonOwnerForbidden(t *testing.T) {
	svc, mock, done := newMockService(t, noMemberships())
	defer done()

	planetID := uuid.New()
	mock.ExpectQuery("FROM planets").WithArgs(planetID).WillReturnRows(planetRows(planetID, 1))

	err := svc.Delete(context.Background(), 2, false, planetID)
	if !apperrors.IsForbidden(err) {
		t.Fatalf("err = %v, want Forbidden", err)
	}
	expectMet(t, mock)
}

func TestDeleteSuperuserOverride(t *testing.T) {
	svc, mock, done := newMockService(t, noMemberships())
	defer done()

	planetID := uuid.New()
	mock.ExpectQuery("FROM planets").WithArgs(planetID).WillReturnRows(planetRows(planetID, 1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM articles").WithArgs(planetID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM bookmarks").WithArgs(planetID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM memberships").WithArgs(planetID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM planets").WithArgs(planetID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.Delete(context.Background(), 42, true, planetID); err != nil {
		t.Fatalf("superuser delete: %v", err)
	}
	expectMet(t, mock)
}

func TestAddBookmarkConflictOnDuplicate(t *testing.T) {
	svc, mock, done := newMockService(t, noMemberships())
	defer done()

	planetID := uuid.New()
	mock.ExpectQuery("FROM planets").WithArgs(planetID).WillReturnRows(planetRows(planetID, 1))
	mock.ExpectExec("INSERT INTO bookmarks").
		WithArgs(int64(2), planetID).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := svc.AddBookmark(context.Background(), 2, planetID)
	if !apperrors.IsConflict(err) {
		t.Fatalf("err = %v, want Conflict for a duplicate bookmark", err)
	}
	expectMet(t, mock)
}

func TestRemoveBookmarkNotFound(t *testing.T) {
	svc, mock, done := newMockService(t, noMemberships())
	defer done()

	planetID := uuid.New()
	mock.ExpectExec("DELETE FROM bookmarks").
		WithArgs(int64(2), planetID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.RemoveBookmark(context.Background(), 2, planetID)
	if !apperrors.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
	expectMet(t, mock)
}

func TestCreateArticleRequiresApprovedMembership(t *testing.T) {
	svc, mock, done := newMockService(t, noMemberships())
	defer done()

	planetID := uuid.New()
	mock.ExpectQuery("FROM planets").WithArgs(planetID).WillReturnRows(planetRows(planetID, 1))

	_, err := svc.CreateArticle(context.Background(), 9, planetID, "hello", "world")
	if !apperrors.IsForbidden(err) {
		t.Fatalf("err = %v, want Forbidden for a non-member author", err)
	}
	expectMet(t, mock)
}
