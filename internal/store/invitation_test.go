// ABOUTME: Integration tests for store/invitation.go — create, list, accept, cancel.
package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/healertrix/taskmaster/internal/testutil"
)

func TestInvitation_AcceptFlow(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	admin, _ := s.CreateUser(ctx, "admin@example.com", "Admin", "hash")
	ws, _ := s.CreateWorkspaceWithOwner(ctx, "WS", "blue", "private", admin.ID)

	inv, err := s.CreateInvitation(ctx, ws.ID, "newbie@example.com", "member",
		"abc123token", admin.ID, time.Now().Add(48*time.Hour))
	if err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}
	if inv.AcceptedAt != nil {
		t.Error("AcceptedAt should be nil before acceptance")
	}

	got, err := s.GetInvitationByToken(ctx, "abc123token")
	if err != nil {
		t.Fatalf("GetInvitationByToken: %v", err)
	}
	if got == nil || got.Email != "newbie@example.com" {
		t.Fatalf("unexpected invitation: %+v", got)
	}

	newbie, _ := s.CreateUser(ctx, "newbie@example.com", "Newbie", "hash")
	if err := s.AcceptInvitation(ctx, got, newbie.ID); err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}

	// Membership row created with the invitation's role.
	role, _ := s.GetWorkspaceMemberRole(ctx, ws.ID, newbie.ID)
	if role == nil || *role != "member" {
		t.Errorf("role after accept = %v, want member", role)
	}

	// Invitation marked accepted.
	after, _ := s.GetInvitationByToken(ctx, "abc123token")
	if after.AcceptedAt == nil {
		t.Error("AcceptedAt should be set after acceptance")
	}
}

func TestListInvitations_FiltersExpiredAndAccepted(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	admin, _ := s.CreateUser(ctx, "admin@example.com", "Admin", "hash")
	ws, _ := s.CreateWorkspaceWithOwner(ctx, "WS", "blue", "private", admin.ID)

	_, _ = s.CreateInvitation(ctx, ws.ID, "active@example.com", "member",
		"activetoken", admin.ID, time.Now().Add(48*time.Hour))
	_, _ = s.CreateInvitation(ctx, ws.ID, "expired@example.com", "member",
		"expiredtoken", admin.ID, time.Now().Add(-1*time.Hour))

	list, err := s.ListInvitations(ctx, ws.ID)
	if err != nil {
		t.Fatalf("ListInvitations: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d invitations, want 1", len(list))
	}
	if list[0].Email != "active@example.com" {
		t.Errorf("unexpected invitation: %q", list[0].Email)
	}

	// GetInvitationByToken still returns expired tokens (expiry checked at handler level).
	expired, err := s.GetInvitationByToken(ctx, "expiredtoken")
	if err != nil {
		t.Fatalf("GetInvitationByToken(expired): %v", err)
	}
	if expired == nil {
		t.Error("GetInvitationByToken should return expired invitation")
	}
}

func TestCancelInvitation(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	admin, _ := s.CreateUser(ctx, "admin@example.com", "Admin", "hash")
	ws, _ := s.CreateWorkspaceWithOwner(ctx, "WS", "blue", "private", admin.ID)

	inv, _ := s.CreateInvitation(ctx, ws.ID, "x@example.com", "member",
		"tok", admin.ID, time.Now().Add(48*time.Hour))

	if err := s.CancelInvitation(ctx, ws.ID, inv.ID); err != nil {
		t.Fatalf("CancelInvitation: %v", err)
	}
	gone, _ := s.GetInvitationByToken(ctx, "tok")
	if gone != nil {
		t.Error("invitation should be gone after cancel")
	}
}
