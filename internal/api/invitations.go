// ABOUTME: HTTP handlers for workspace invitations: create, list, cancel, accept.
// ABOUTME: Creation is gated by the membership_restriction setting via the evaluator.
package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/authz"
	"github.com/healertrix/taskmaster/internal/notify"
	"github.com/healertrix/taskmaster/internal/store"
)

// newInvitationToken returns a URL-safe random token.
func newInvitationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// invitationResponseBody is the JSON shape for one invitation.
type invitationResponseBody struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
}

func invitationResponse(inv *store.Invitation) invitationResponseBody {
	return invitationResponseBody{
		ID:        inv.ID.String(),
		Email:     inv.Email,
		Role:      inv.Role,
		CreatedAt: inv.CreatedAt.Format(time.RFC3339),
		ExpiresAt: inv.ExpiresAt.Format(time.RFC3339),
	}
}

// createInvitationBody is the JSON request body for POST /invitations.
type createInvitationBody struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// createInvitationHandler handles POST /api/v1/workspaces/{workspace_id}/invitations.
func (srv *Server) createInvitationHandler(w http.ResponseWriter, r *http.Request) {
	ws, role, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, _ := requestUser(r)

	var req createInvitationBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	invRole := authz.ParseRole(req.Role)
	if invRole == authz.RoleNone {
		invRole = authz.RoleMember
	}
	if invRole == authz.RoleOwner {
		http.Error(w, "cannot invite as owner", http.StatusBadRequest)
		return
	}

	settings, err := srv.loadSettings(r.Context(), ws.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "load settings", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	decision := authz.Evaluate(authz.Request{
		Action:   authz.ActionInviteMember,
		Role:     role,
		Settings: settings,
	})
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	token, err := newInvitationToken()
	if err != nil {
		slog.ErrorContext(r.Context(), "generate invitation token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	inv, err := srv.store.CreateInvitation(r.Context(), ws.ID, req.Email, invRole.String(),
		token, userID, time.Now().Add(srv.cfg.InvitationTTL))
	if err != nil {
		slog.ErrorContext(r.Context(), "create invitation", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Email delivery is async; a queue failure must not lose the invitation.
	if err := srv.store.EnqueueJob(r.Context(), notify.QueueInvitationEmail,
		notify.InvitationEmailJob{InvitationID: inv.ID}); err != nil {
		slog.ErrorContext(r.Context(), "enqueue invitation email", "error", err)
	}

	srv.emitEvent(r.Context(), ws.ID, "invitation.created", map[string]string{
		"invitation_id": inv.ID.String(),
		"email":         inv.Email,
		"role":          inv.Role,
	})

	writeJSON(w, http.StatusCreated, invitationResponse(inv))
}

// listInvitationsHandler handles GET /api/v1/workspaces/{workspace_id}/invitations.
// Admin and above (enforced by RequireWorkspaceRole middleware).
func (srv *Server) listInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	invitations, err := srv.store.ListInvitations(r.Context(), ws.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list invitations", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]invitationResponseBody, 0, len(invitations))
	for i := range invitations {
		out = append(out, invitationResponse(&invitations[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// cancelInvitationHandler handles DELETE /api/v1/workspaces/{workspace_id}/invitations/{id}.
// Admin and above (enforced by RequireWorkspaceRole middleware).
func (srv *Server) cancelInvitationHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid invitation id", http.StatusBadRequest)
		return
	}

	if err := srv.store.CancelInvitation(r.Context(), ws.ID, id); err != nil {
		slog.ErrorContext(r.Context(), "cancel invitation", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getInvitationByTokenResponse is the public invitation lookup response.
// It exposes workspace name, role, and expiry but not workspace ID or email.
type getInvitationByTokenResponse struct {
	WorkspaceName string `json:"workspace_name"`
	Role          string `json:"role"`
	ExpiresAt     string `json:"expires_at"`
}

// getInvitationByTokenHandler handles GET /api/v1/invitations/{token}.
// Public endpoint — no authentication required.
func (srv *Server) getInvitationByTokenHandler(w http.ResponseWriter, r *http.Request) {
	inv, err := srv.store.GetInvitationByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		slog.ErrorContext(r.Context(), "get invitation", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if inv == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if time.Now().After(inv.ExpiresAt) || inv.AcceptedAt != nil {
		http.Error(w, "invitation has expired or has already been used", http.StatusGone)
		return
	}

	ws, err := srv.store.GetWorkspaceByID(r.Context(), inv.WorkspaceID)
	if err != nil || ws == nil {
		slog.ErrorContext(r.Context(), "get invitation workspace", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, getInvitationByTokenResponse{
		WorkspaceName: ws.Name,
		Role:          inv.Role,
		ExpiresAt:     inv.ExpiresAt.Format(time.RFC3339),
	})
}

// acceptInvitationHandler handles POST /api/v1/invitations/{token}/accept.
// Requires authentication. Idempotent — an existing member gets 200.
func (srv *Server) acceptInvitationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	inv, err := srv.store.GetInvitationByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		slog.ErrorContext(r.Context(), "accept invitation: get", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if inv == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if time.Now().After(inv.ExpiresAt) {
		http.Error(w, "invitation has expired", http.StatusGone)
		return
	}

	// Idempotency: if the caller is already a member, return success immediately.
	currentRole, err := srv.store.GetWorkspaceMemberRole(r.Context(), inv.WorkspaceID, userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "accept invitation: check membership", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if currentRole != nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Invitation already accepted by someone else.
	if inv.AcceptedAt != nil {
		http.Error(w, "invitation has already been used", http.StatusGone)
		return
	}

	if err := srv.store.AcceptInvitation(r.Context(), inv, userID); err != nil {
		slog.ErrorContext(r.Context(), "accept invitation", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	srv.emitEvent(r.Context(), inv.WorkspaceID, "member.joined", map[string]string{
		"user_id": userID.String(),
		"role":    inv.Role,
	})

	w.WriteHeader(http.StatusOK)
}
