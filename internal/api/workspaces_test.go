// ABOUTME: Integration tests for workspace CRUD and the settings endpoints.
// ABOUTME: Verifies normalized settings output and evaluator-gated updates.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/testutil"
)

// createWorkspace creates a workspace via the API and returns its ID.
func createWorkspace(t *testing.T, ctx context.Context, ts *httptest.Server, accessToken, name string) string {
	t.Helper()
	resp := doJSON(t, ctx, ts, http.MethodPost, "/api/v1/workspaces", accessToken,
		`{"name":"`+name+`"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create workspace: got %d, want 201", resp.StatusCode)
	}
	var out struct {
		WorkspaceID string `json:"workspace_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out.WorkspaceID
}

func TestCreateWorkspace_CreatorBecomesOwner(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	reg := doRegister(t, ctx, ts, "alice@example.com", "password123")
	token := loginToken(t, ctx, ts, "alice@example.com", "password123")

	wsID := createWorkspace(t, ctx, ts, token, "Acme")

	id, _ := uuid.Parse(wsID)
	userID, _ := uuid.Parse(reg.UserID)
	role, err := db.GetWorkspaceMemberRole(ctx, id, userID)
	if err != nil {
		t.Fatalf("GetWorkspaceMemberRole: %v", err)
	}
	if role == nil || *role != "owner" {
		t.Errorf("creator role = %v, want owner", role)
	}
}

func TestGetWorkspace_NonMemberGets404(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	doRegister(t, ctx, ts, "alice@example.com", "password123")
	aliceToken := loginToken(t, ctx, ts, "alice@example.com", "password123")
	wsID := createWorkspace(t, ctx, ts, aliceToken, "Private WS")

	doRegister(t, ctx, ts, "bob@example.com", "password123")
	bobToken := loginToken(t, ctx, ts, "bob@example.com", "password123")

	// A private workspace does not exist as far as strangers can tell.
	resp := doJSON(t, ctx, ts, http.MethodGet, "/api/v1/workspaces/"+wsID, bobToken, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got %d, want 404", resp.StatusCode)
	}
}

func TestGetSettings_DefaultsWhenNoRows(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	doRegister(t, ctx, ts, "alice@example.com", "password123")
	token := loginToken(t, ctx, ts, "alice@example.com", "password123")
	wsID := createWorkspace(t, ctx, ts, token, "WS")

	resp := doJSON(t, ctx, ts, http.MethodGet, "/api/v1/workspaces/"+wsID+"/settings", token, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get settings: got %d, want 200", resp.StatusCode)
	}

	var out struct {
		MembershipRestriction string `json:"membership_restriction"`
		BoardCreation         string `json:"board_creation_simplified"`
		BoardDeletion         string `json:"board_deletion_simplified"`
		BoardSharing          string `json:"board_sharing_restriction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.MembershipRestriction != "any_member" || out.BoardCreation != "any_member" ||
		out.BoardDeletion != "any_member" || out.BoardSharing != "any_member" {
		t.Errorf("defaults = %+v, want all any_member", out)
	}
}

func TestUpdateSetting_RoundTrip(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	doRegister(t, ctx, ts, "alice@example.com", "password123")
	token := loginToken(t, ctx, ts, "alice@example.com", "password123")
	wsID := createWorkspace(t, ctx, ts, token, "WS")

	resp := doJSON(t, ctx, ts, http.MethodPut,
		"/api/v1/workspaces/"+wsID+"/settings/board_creation_simplified", token,
		`{"value":"admins_only"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update setting: got %d, want 204", resp.StatusCode)
	}

	get := doJSON(t, ctx, ts, http.MethodGet, "/api/v1/workspaces/"+wsID+"/settings", token, "")
	defer get.Body.Close()
	var out struct {
		BoardCreation string `json:"board_creation_simplified"`
	}
	if err := json.NewDecoder(get.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.BoardCreation != "admins_only" {
		t.Errorf("board_creation = %q, want admins_only", out.BoardCreation)
	}
}

func TestUpdateSetting_LegacySpellingNormalized(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	doRegister(t, ctx, ts, "alice@example.com", "password123")
	token := loginToken(t, ctx, ts, "alice@example.com", "password123")
	wsID := createWorkspace(t, ctx, ts, token, "WS")

	// The legacy "admin_only" spelling is accepted on write and reads back in
	// the current shape.
	resp := doJSON(t, ctx, ts, http.MethodPut,
		"/api/v1/workspaces/"+wsID+"/settings/membership_restriction", token,
		`{"value":"admin_only"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update setting: got %d, want 204", resp.StatusCode)
	}

	get := doJSON(t, ctx, ts, http.MethodGet, "/api/v1/workspaces/"+wsID+"/settings", token, "")
	defer get.Body.Close()
	var out struct {
		MembershipRestriction string `json:"membership_restriction"`
	}
	if err := json.NewDecoder(get.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.MembershipRestriction != "admins_only" {
		t.Errorf("membership_restriction = %q, want admins_only", out.MembershipRestriction)
	}
}

func TestUpdateSetting_MemberDeniedWithReason(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	doRegister(t, ctx, ts, "alice@example.com", "password123")
	aliceToken := loginToken(t, ctx, ts, "alice@example.com", "password123")
	wsID := createWorkspace(t, ctx, ts, aliceToken, "WS")

	bobReg := doRegister(t, ctx, ts, "bob@example.com", "password123")
	id, _ := uuid.Parse(wsID)
	bobID, _ := uuid.Parse(bobReg.UserID)
	if err := db.AddWorkspaceMember(ctx, id, bobID, "member"); err != nil {
		t.Fatalf("AddWorkspaceMember: %v", err)
	}
	bobToken := loginToken(t, ctx, ts, "bob@example.com", "password123")

	resp := doJSON(t, ctx, ts, http.MethodPut,
		"/api/v1/workspaces/"+wsID+"/settings/membership_restriction", bobToken,
		`{"value":"owner_only"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("got %d, want 403", resp.StatusCode)
	}
	if got := errorBody(t, resp); got != "Only admins and owner can update settings" {
		t.Errorf("reason = %q", got)
	}
}

func TestUpdateSetting_InvalidValueRejected(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	doRegister(t, ctx, ts, "alice@example.com", "password123")
	token := loginToken(t, ctx, ts, "alice@example.com", "password123")
	wsID := createWorkspace(t, ctx, ts, token, "WS")

	resp := doJSON(t, ctx, ts, http.MethodPut,
		"/api/v1/workspaces/"+wsID+"/settings/membership_restriction", token,
		`{"value":"everyone_and_their_dog"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got %d, want 400", resp.StatusCode)
	}

	resp2 := doJSON(t, ctx, ts, http.MethodPut,
		"/api/v1/workspaces/"+wsID+"/settings/no_such_setting", token,
		`{"value":"any_member"}`)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown type: got %d, want 400", resp2.StatusCode)
	}
}
