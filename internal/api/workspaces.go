// ABOUTME: HTTP handlers for workspace management: create, read, update, delete,
// ABOUTME: and the settings endpoints backed by the settings normalizer.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/healertrix/taskmaster/internal/authz"
	"github.com/healertrix/taskmaster/internal/store"
)

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON: encode failed", "error", err)
	}
}

// workspaceResponseBody is the JSON shape for a single workspace.
type workspaceResponseBody struct {
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Visibility  string `json:"visibility"`
	OwnerID     string `json:"owner_id"`
	Role        string `json:"role,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func workspaceResponse(ws *store.Workspace, role authz.Role) workspaceResponseBody {
	body := workspaceResponseBody{
		WorkspaceID: ws.ID.String(),
		Name:        ws.Name,
		Color:       ws.Color,
		Visibility:  ws.Visibility,
		OwnerID:     ws.OwnerID.String(),
		CreatedAt:   ws.CreatedAt.Format(time.RFC3339),
	}
	if role != authz.RoleNone {
		body.Role = role.String()
	}
	return body
}

// createWorkspaceBody is the JSON request body for POST /api/v1/workspaces.
type createWorkspaceBody struct {
	Name       string `json:"name"`
	Color      string `json:"color"`
	Visibility string `json:"visibility"`
}

// createWorkspaceHandler handles POST /api/v1/workspaces.
// Creates a workspace and adds the authenticated user as owner.
func (srv *Server) createWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createWorkspaceBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = "private"
	}
	if visibility != "private" && visibility != "public" {
		http.Error(w, "visibility must be private or public", http.StatusBadRequest)
		return
	}

	ws, err := srv.store.CreateWorkspaceWithOwner(r.Context(), req.Name, req.Color, visibility, userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "create workspace", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, workspaceResponse(ws, authz.RoleOwner))
}

// listWorkspacesHandler handles GET /api/v1/workspaces.
func (srv *Server) listWorkspacesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	workspaces, err := srv.store.ListWorkspacesForUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list workspaces", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]workspaceResponseBody, 0, len(workspaces))
	for i := range workspaces {
		out = append(out, workspaceResponse(&workspaces[i], authz.RoleNone))
	}
	writeJSON(w, http.StatusOK, out)
}

// getWorkspaceHandler handles GET /api/v1/workspaces/{workspace_id}.
func (srv *Server) getWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	ws, role, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, workspaceResponse(ws, role))
}

// updateWorkspaceBody is the JSON request body for PATCH /workspaces/{workspace_id}.
type updateWorkspaceBody struct {
	Name       *string `json:"name"`
	Color      *string `json:"color"`
	Visibility *string `json:"visibility"`
}

// updateWorkspaceHandler handles PATCH /api/v1/workspaces/{workspace_id}.
// Requires at least admin role (enforced by RequireWorkspaceRole middleware).
func (srv *Server) updateWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	ws, role, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var req updateWorkspaceBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name != nil && *req.Name == "" {
		http.Error(w, "name cannot be empty", http.StatusBadRequest)
		return
	}
	if req.Visibility != nil && *req.Visibility != "private" && *req.Visibility != "public" {
		http.Error(w, "visibility must be private or public", http.StatusBadRequest)
		return
	}

	updated, err := srv.store.UpdateWorkspace(r.Context(), ws.ID, store.UpdateWorkspaceParams{
		Name:       req.Name,
		Color:      req.Color,
		Visibility: req.Visibility,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "update workspace", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, workspaceResponse(updated, role))
}

// deleteWorkspaceHandler handles DELETE /api/v1/workspaces/{workspace_id}.
// Owner only (enforced by RequireWorkspaceRole middleware).
func (srv *Server) deleteWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := srv.store.DeleteWorkspace(r.Context(), ws.ID); err != nil {
		slog.ErrorContext(r.Context(), "delete workspace", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// settingsResponseBody is the JSON shape for GET /workspaces/{workspace_id}/settings.
type settingsResponseBody struct {
	MembershipRestriction string `json:"membership_restriction"`
	BoardCreation         string `json:"board_creation_simplified"`
	BoardDeletion         string `json:"board_deletion_simplified"`
	BoardSharing          string `json:"board_sharing_restriction"`
}

// getSettingsHandler handles GET /api/v1/workspaces/{workspace_id}/settings.
// Always returns the normalized, fully-populated view regardless of what raw
// rows exist.
func (srv *Server) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	settings, err := srv.loadSettings(r.Context(), ws.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "load settings", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponseBody{
		MembershipRestriction: settings.MembershipRestriction.String(),
		BoardCreation:         settings.BoardCreation.String(),
		BoardDeletion:         settings.BoardDeletion.String(),
		BoardSharing:          settings.BoardSharing.String(),
	})
}

// updateSettingBody is the JSON request body for PUT /settings/{setting_type}.
type updateSettingBody struct {
	Value string `json:"value"`
}

// updateSettingHandler handles PUT /api/v1/workspaces/{workspace_id}/settings/{setting_type}.
// Gated by the permission evaluator; writes are always in the current shape.
func (srv *Server) updateSettingHandler(w http.ResponseWriter, r *http.Request) {
	ws, role, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	settingType := chi.URLParam(r, "setting_type")
	switch settingType {
	case authz.SettingMembershipRestriction, authz.SettingBoardCreation,
		authz.SettingBoardDeletion, authz.SettingBoardSharing:
	default:
		http.Error(w, "unknown setting type", http.StatusBadRequest)
		return
	}

	var req updateSettingBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, ok := authz.ParseThreshold(req.Value); !ok {
		http.Error(w, "invalid setting value", http.StatusBadRequest)
		return
	}

	decision := authz.Evaluate(authz.Request{
		Action: authz.ActionUpdateSettings,
		Role:   role,
	})
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	raw, err := json.Marshal(req.Value)
	if err != nil {
		http.Error(w, "invalid setting value", http.StatusBadRequest)
		return
	}
	if err := srv.store.UpsertWorkspaceSetting(r.Context(), ws.ID, settingType, raw); err != nil {
		slog.ErrorContext(r.Context(), "upsert setting", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	srv.emitEvent(r.Context(), ws.ID, "workspace.settings_updated", map[string]string{
		"setting_type": settingType,
		"value":        req.Value,
	})

	w.WriteHeader(http.StatusNoContent)
}
