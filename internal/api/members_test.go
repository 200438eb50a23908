// ABOUTME: Integration tests for member management: role changes, removal, last-owner rule.
package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/store"
	"github.com/healertrix/taskmaster/internal/testutil"
)

// addMember inserts a workspace membership row directly through the store.
func addMember(t *testing.T, ctx context.Context, db *store.Store, wsID, userID, role string) {
	t.Helper()
	id, _ := uuid.Parse(wsID)
	uid, _ := uuid.Parse(userID)
	if err := db.AddWorkspaceMember(ctx, id, uid, role); err != nil {
		t.Fatalf("AddWorkspaceMember: %v", err)
	}
}

// twoUserWorkspace registers alice (owner) and bob with the given role, and
// returns (workspace ID, bob's user ID, alice's token, bob's token).
func twoUserWorkspace(t *testing.T, ctx context.Context, db *store.Store, ts *httptest.Server, bobRole string) (string, string, string, string) {
	t.Helper()
	doRegister(t, ctx, ts, "alice@example.com", "password123")
	aliceToken := loginToken(t, ctx, ts, "alice@example.com", "password123")
	wsID := createWorkspace(t, ctx, ts, aliceToken, "WS")

	bobReg := doRegister(t, ctx, ts, "bob@example.com", "password123")
	addMember(t, ctx, db, wsID, bobReg.UserID, bobRole)
	bobToken := loginToken(t, ctx, ts, "bob@example.com", "password123")
	return wsID, bobReg.UserID, aliceToken, bobToken
}

func TestRemoveLastOwner_Denied(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	aliceReg := doRegister(t, ctx, ts, "alice@example.com", "password123")
	token := loginToken(t, ctx, ts, "alice@example.com", "password123")
	wsID := createWorkspace(t, ctx, ts, token, "WS")

	// Even the owner cannot remove themself when they are the only owner.
	resp := doJSON(t, ctx, ts, http.MethodDelete,
		"/api/v1/workspaces/"+wsID+"/members/"+aliceReg.UserID, token, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("got %d, want 403", resp.StatusCode)
	}
	if got := errorBody(t, resp); got != "Cannot remove the last owner from the workspace" {
		t.Errorf("reason = %q", got)
	}
}

func TestRemoveOwner_AllowedWithSecondOwner(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	wsID, _, aliceToken, _ := twoUserWorkspace(t, ctx, db, ts, "owner")

	// With two owners, the creator can leave.
	var aliceID string
	{
		id, _ := uuid.Parse(wsID)
		members, err := db.ListWorkspaceMembers(ctx, id)
		if err != nil {
			t.Fatalf("ListWorkspaceMembers: %v", err)
		}
		for _, m := range members {
			if m.Email == "alice@example.com" {
				aliceID = m.UserID.String()
			}
		}
	}

	resp := doJSON(t, ctx, ts, http.MethodDelete,
		"/api/v1/workspaces/"+wsID+"/members/"+aliceID, aliceToken, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("got %d, want 204", resp.StatusCode)
	}
}

func TestMemberSelfLeave_Allowed(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	wsID, bobID, _, bobToken := twoUserWorkspace(t, ctx, db, ts, "member")

	resp := doJSON(t, ctx, ts, http.MethodDelete,
		"/api/v1/workspaces/"+wsID+"/members/"+bobID, bobToken, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("got %d, want 204", resp.StatusCode)
	}
}

func TestMemberRemoveOther_Denied(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	wsID, _, _, bobToken := twoUserWorkspace(t, ctx, db, ts, "member")

	carolReg := doRegister(t, ctx, ts, "carol@example.com", "password123")
	addMember(t, ctx, db, wsID, carolReg.UserID, "member")

	resp := doJSON(t, ctx, ts, http.MethodDelete,
		"/api/v1/workspaces/"+wsID+"/members/"+carolReg.UserID, bobToken, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("got %d, want 403", resp.StatusCode)
	}
	if got := errorBody(t, resp); got != "Only admins and owner can remove other members" {
		t.Errorf("reason = %q", got)
	}
}

func TestAdminCannotRemoveAdmin(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	wsID, _, _, bobToken := twoUserWorkspace(t, ctx, db, ts, "admin")

	carolReg := doRegister(t, ctx, ts, "carol@example.com", "password123")
	addMember(t, ctx, db, wsID, carolReg.UserID, "admin")

	resp := doJSON(t, ctx, ts, http.MethodDelete,
		"/api/v1/workspaces/"+wsID+"/members/"+carolReg.UserID, bobToken, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("got %d, want 403", resp.StatusCode)
	}
	if got := errorBody(t, resp); got != "Admins cannot remove other admins or the owner" {
		t.Errorf("reason = %q", got)
	}
}

func TestChangeOwnRole_Denied(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	wsID, bobID, _, bobToken := twoUserWorkspace(t, ctx, db, ts, "admin")

	resp := doJSON(t, ctx, ts, http.MethodPatch,
		"/api/v1/workspaces/"+wsID+"/members/"+bobID, bobToken, `{"role":"member"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("got %d, want 403", resp.StatusCode)
	}
	if got := errorBody(t, resp); got != "You cannot change your own role" {
		t.Errorf("reason = %q", got)
	}
}

func TestChangeMemberRole_AdminPromotesMember(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	wsID, _, _, bobToken := twoUserWorkspace(t, ctx, db, ts, "admin")

	carolReg := doRegister(t, ctx, ts, "carol@example.com", "password123")
	addMember(t, ctx, db, wsID, carolReg.UserID, "member")

	resp := doJSON(t, ctx, ts, http.MethodPatch,
		"/api/v1/workspaces/"+wsID+"/members/"+carolReg.UserID, bobToken, `{"role":"admin"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("got %d, want 204", resp.StatusCode)
	}

	id, _ := uuid.Parse(wsID)
	cid, _ := uuid.Parse(carolReg.UserID)
	role, _ := db.GetWorkspaceMemberRole(ctx, id, cid)
	if role == nil || *role != "admin" {
		t.Errorf("carol's role = %v, want admin", role)
	}
}

func TestChangeOwnerRole_Denied(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	wsID, _, _, bobToken := twoUserWorkspace(t, ctx, db, ts, "admin")

	id, _ := uuid.Parse(wsID)
	ws, err := db.GetWorkspaceByID(ctx, id)
	if err != nil || ws == nil {
		t.Fatalf("GetWorkspaceByID: %v", err)
	}

	resp := doJSON(t, ctx, ts, http.MethodPatch,
		"/api/v1/workspaces/"+wsID+"/members/"+ws.OwnerID.String(), bobToken, `{"role":"member"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("got %d, want 403", resp.StatusCode)
	}
	if got := errorBody(t, resp); got != "The workspace owner's role cannot be changed" {
		t.Errorf("reason = %q", got)
	}
}
