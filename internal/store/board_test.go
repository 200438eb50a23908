// ABOUTME: Integration tests for store/board.go — board CRUD, membership, stars.
// ABOUTME: ListBoardsForUser visibility folding is the interesting case here.
package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/store"
	"github.com/healertrix/taskmaster/internal/testutil"
)

// seedWorkspace creates an owner user and a workspace for board tests.
func seedWorkspace(t *testing.T, s *store.Store) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	owner, err := s.CreateUser(ctx, "owner@example.com", "Owner", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ws, err := s.CreateWorkspaceWithOwner(ctx, "WS", "blue", "private", owner.ID)
	if err != nil {
		t.Fatalf("CreateWorkspaceWithOwner: %v", err)
	}
	return ws.ID, owner.ID
}

func TestCreateAndGetBoard(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	wsID, ownerID := seedWorkspace(t, s)

	b, err := s.CreateBoard(ctx, wsID, ownerID, "Roadmap", "green", "workspace")
	if err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}
	if b.Name != "Roadmap" || b.Visibility != "workspace" {
		t.Errorf("unexpected board: %+v", b)
	}

	got, err := s.GetBoardByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBoardByID: %v", err)
	}
	if got == nil || got.ID != b.ID {
		t.Errorf("GetBoardByID mismatch: %+v", got)
	}

	missing, err := s.GetBoardByID(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetBoardByID(missing): %v", err)
	}
	if missing != nil {
		t.Error("GetBoardByID(missing) should return nil")
	}
}

func TestListBoardsForUser_VisibilityFolding(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	wsID, ownerID := seedWorkspace(t, s)

	viewer, _ := s.CreateUser(ctx, "viewer@example.com", "Viewer", "hash")
	_ = s.AddWorkspaceMember(ctx, wsID, viewer.ID, "member")

	// Workspace-visible: everyone in the workspace sees it.
	wsVisible, _ := s.CreateBoard(ctx, wsID, ownerID, "A WS Visible", "blue", "workspace")
	// Private without membership: hidden from viewer.
	_, _ = s.CreateBoard(ctx, wsID, ownerID, "B Private Hidden", "blue", "private")
	// Private with explicit membership: visible.
	privShared, _ := s.CreateBoard(ctx, wsID, ownerID, "C Private Shared", "blue", "private")
	_ = s.AddBoardMember(ctx, privShared.ID, viewer.ID, "member")

	boards, err := s.ListBoardsForUser(ctx, wsID, viewer.ID)
	if err != nil {
		t.Fatalf("ListBoardsForUser: %v", err)
	}
	if len(boards) != 2 {
		t.Fatalf("got %d boards, want 2", len(boards))
	}
	// Ordered by name.
	if boards[0].ID != wsVisible.ID || boards[1].ID != privShared.ID {
		t.Errorf("unexpected boards: %q, %q", boards[0].Name, boards[1].Name)
	}

	// Owner sees all three.
	all, _ := s.ListBoardsForUser(ctx, wsID, ownerID)
	if len(all) != 3 {
		t.Errorf("owner sees %d boards, want 3", len(all))
	}
}

func TestBoardMembers_AddAndRemove(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	wsID, ownerID := seedWorkspace(t, s)

	b, _ := s.CreateBoard(ctx, wsID, ownerID, "B", "blue", "private")
	user, _ := s.CreateUser(ctx, "member@example.com", "Member", "hash")

	if err := s.AddBoardMember(ctx, b.ID, user.ID, "member"); err != nil {
		t.Fatalf("AddBoardMember: %v", err)
	}
	members, err := s.ListBoardMembers(ctx, b.ID)
	if err != nil {
		t.Fatalf("ListBoardMembers: %v", err)
	}
	if len(members) != 1 || members[0].UserID != user.ID || members[0].Role != "member" {
		t.Errorf("unexpected members: %+v", members)
	}

	if err := s.RemoveBoardMember(ctx, b.ID, user.ID); err != nil {
		t.Fatalf("RemoveBoardMember: %v", err)
	}
	members, _ = s.ListBoardMembers(ctx, b.ID)
	if len(members) != 0 {
		t.Errorf("got %d members after removal, want 0", len(members))
	}
}

func TestStarBoard_Idempotent(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	wsID, ownerID := seedWorkspace(t, s)

	b, _ := s.CreateBoard(ctx, wsID, ownerID, "B", "blue", "workspace")

	if err := s.StarBoard(ctx, b.ID, ownerID); err != nil {
		t.Fatalf("StarBoard: %v", err)
	}
	// Starring twice is a no-op, not an error.
	if err := s.StarBoard(ctx, b.ID, ownerID); err != nil {
		t.Fatalf("StarBoard(again): %v", err)
	}
	if err := s.UnstarBoard(ctx, b.ID, ownerID); err != nil {
		t.Fatalf("UnstarBoard: %v", err)
	}
}

func TestUpdateBoard_PartialFields(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	wsID, ownerID := seedWorkspace(t, s)

	b, _ := s.CreateBoard(ctx, wsID, ownerID, "Old", "blue", "workspace")

	name := "New"
	updated, err := s.UpdateBoard(ctx, b.ID, store.UpdateBoardParams{Name: &name})
	if err != nil {
		t.Fatalf("UpdateBoard: %v", err)
	}
	if updated.Name != "New" {
		t.Errorf("name = %q, want New", updated.Name)
	}
	// Untouched fields survive.
	if updated.Color != "blue" || updated.Visibility != "workspace" {
		t.Errorf("unexpected fields: %+v", updated)
	}
}
