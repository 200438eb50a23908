// ABOUTME: Integration tests for the invitation lifecycle: create, lookup, accept.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/testutil"
)

func TestInvitation_FullLifecycle(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	doRegister(t, ctx, ts, "alice@example.com", "password123")
	aliceToken := loginToken(t, ctx, ts, "alice@example.com", "password123")
	wsID := createWorkspace(t, ctx, ts, aliceToken, "Invite WS")

	resp := doJSON(t, ctx, ts, http.MethodPost, "/api/v1/workspaces/"+wsID+"/invitations",
		aliceToken, `{"email":"carol@example.com","role":"member"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create invitation: got %d, want 201", resp.StatusCode)
	}
	var inv struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&inv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if inv.Email != "carol@example.com" {
		t.Errorf("email = %q", inv.Email)
	}

	// Pull the token straight from the store; the API never exposes it to
	// anyone but the invitee.
	invID, _ := uuid.Parse(inv.ID)
	stored, err := db.GetInvitationByID(ctx, invID)
	if err != nil || stored == nil {
		t.Fatalf("GetInvitationByID: %v", err)
	}

	// Public lookup works without authentication.
	lookupReq, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		ts.URL+"/api/v1/invitations/"+stored.Token, nil)
	lookup, err := ts.Client().Do(lookupReq)
	if err != nil {
		t.Fatalf("lookup request: %v", err)
	}
	defer lookup.Body.Close()
	if lookup.StatusCode != http.StatusOK {
		t.Fatalf("lookup: got %d, want 200", lookup.StatusCode)
	}
	var pub struct {
		WorkspaceName string `json:"workspace_name"`
		Role          string `json:"role"`
	}
	if err := json.NewDecoder(lookup.Body).Decode(&pub); err != nil {
		t.Fatalf("decode lookup: %v", err)
	}
	if pub.WorkspaceName != "Invite WS" || pub.Role != "member" {
		t.Errorf("lookup = %+v", pub)
	}

	// Carol registers and accepts.
	carolReg := doRegister(t, ctx, ts, "carol@example.com", "password123")
	carolToken := loginToken(t, ctx, ts, "carol@example.com", "password123")

	accept := doJSON(t, ctx, ts, http.MethodPost,
		"/api/v1/invitations/"+stored.Token+"/accept", carolToken, "")
	accept.Body.Close()
	if accept.StatusCode != http.StatusOK {
		t.Fatalf("accept: got %d, want 200", accept.StatusCode)
	}

	id, _ := uuid.Parse(wsID)
	carolID, _ := uuid.Parse(carolReg.UserID)
	role, _ := db.GetWorkspaceMemberRole(ctx, id, carolID)
	if role == nil || *role != "member" {
		t.Errorf("carol's role = %v, want member", role)
	}

	// Accepting again is idempotent for an existing member.
	again := doJSON(t, ctx, ts, http.MethodPost,
		"/api/v1/invitations/"+stored.Token+"/accept", carolToken, "")
	again.Body.Close()
	if again.StatusCode != http.StatusOK {
		t.Errorf("second accept: got %d, want 200", again.StatusCode)
	}
}

func TestCreateInvitation_GuestDenied(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	wsID, _, _, bobToken := twoUserWorkspace(t, ctx, db, ts, "guest")

	resp := doJSON(t, ctx, ts, http.MethodPost, "/api/v1/workspaces/"+wsID+"/invitations",
		bobToken, `{"email":"x@example.com"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("got %d, want 403", resp.StatusCode)
	}
	if got := errorBody(t, resp); got != "Only workspace members can invite members" {
		t.Errorf("reason = %q", got)
	}
}

func TestInvitationLookup_ExpiredGets410(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	doRegister(t, ctx, ts, "alice@example.com", "password123")
	aliceToken := loginToken(t, ctx, ts, "alice@example.com", "password123")
	wsID := createWorkspace(t, ctx, ts, aliceToken, "WS")

	id, _ := uuid.Parse(wsID)
	me, _ := db.GetWorkspaceByID(ctx, id)
	_, err := db.CreateInvitation(ctx, id, "late@example.com", "member",
		"expiredtoken", me.OwnerID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		ts.URL+"/api/v1/invitations/expiredtoken", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("lookup request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Errorf("got %d, want 410", resp.StatusCode)
	}
}
