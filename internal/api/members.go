// ABOUTME: HTTP handlers for workspace member management: list, role change, removal.
// ABOUTME: Mutations run through the permission evaluator; deny reasons go back verbatim.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/authz"
)

// memberResponseBody is the JSON shape for one workspace member.
type memberResponseBody struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	JoinedAt    string `json:"joined_at"`
}

// listMembersHandler handles GET /api/v1/workspaces/{workspace_id}/members.
func (srv *Server) listMembersHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	members, err := srv.store.ListWorkspaceMembers(r.Context(), ws.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list members", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]memberResponseBody, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponseBody{
			UserID:      m.UserID.String(),
			Role:        m.Role,
			Email:       m.Email,
			DisplayName: m.DisplayName,
			JoinedAt:    m.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// changeMemberRoleBody is the JSON request body for PATCH /members/{user_id}.
type changeMemberRoleBody struct {
	Role string `json:"role"`
}

// changeMemberRoleHandler handles PATCH /api/v1/workspaces/{workspace_id}/members/{user_id}.
func (srv *Server) changeMemberRoleHandler(w http.ResponseWriter, r *http.Request) {
	ws, role, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, _ := requestUser(r)

	targetID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	var req changeMemberRoleBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	newRole := authz.ParseRole(req.Role)
	if newRole == authz.RoleNone || newRole == authz.RoleOwner {
		http.Error(w, "role must be admin, member, or guest", http.StatusBadRequest)
		return
	}

	targetRoleStr, err := srv.store.GetWorkspaceMemberRole(r.Context(), ws.ID, targetID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get target role", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if targetRoleStr == nil {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	targetRole := authz.ParseRole(*targetRoleStr)
	if targetID == ws.OwnerID {
		targetRole = authz.RoleOwner
	}

	decision := authz.Evaluate(authz.Request{
		Action:     authz.ActionChangeMemberRole,
		Role:       role,
		IsSelf:     targetID == userID,
		TargetRole: targetRole,
	})
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	if err := srv.store.UpdateWorkspaceMemberRole(r.Context(), ws.ID, targetID, newRole.String()); err != nil {
		slog.ErrorContext(r.Context(), "update member role", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	srv.emitEvent(r.Context(), ws.ID, "member.role_changed", map[string]string{
		"user_id": targetID.String(),
		"role":    newRole.String(),
	})

	w.WriteHeader(http.StatusNoContent)
}

// removeMemberHandler handles DELETE /api/v1/workspaces/{workspace_id}/members/{user_id}.
// Also serves "leave workspace" when the target is the caller.
func (srv *Server) removeMemberHandler(w http.ResponseWriter, r *http.Request) {
	ws, role, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, _ := requestUser(r)

	targetID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	targetRoleStr, err := srv.store.GetWorkspaceMemberRole(r.Context(), ws.ID, targetID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get target role", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if targetRoleStr == nil {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	targetRole := authz.ParseRole(*targetRoleStr)
	if targetID == ws.OwnerID {
		targetRole = authz.RoleOwner
	}

	ownerCount, err := srv.store.CountWorkspaceOwners(r.Context(), ws.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "count owners", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	decision := authz.Evaluate(authz.Request{
		Action:     authz.ActionRemoveMember,
		Role:       role,
		IsSelf:     targetID == userID,
		TargetRole: targetRole,
		OwnerCount: ownerCount,
	})
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	if err := srv.store.RemoveWorkspaceMember(r.Context(), ws.ID, targetID); err != nil {
		slog.ErrorContext(r.Context(), "remove member", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	srv.emitEvent(r.Context(), ws.ID, "member.removed", map[string]string{
		"user_id": targetID.String(),
	})

	w.WriteHeader(http.StatusNoContent)
}
