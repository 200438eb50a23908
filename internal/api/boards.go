// ABOUTME: HTTP handlers for boards: creation and deletion gated by workspace
// ABOUTME: settings thresholds, plus membership, stars, and metadata updates.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/authz"
	"github.com/healertrix/taskmaster/internal/store"
)

// boardResponseBody is the JSON shape for one board.
type boardResponseBody struct {
	BoardID     string `json:"board_id"`
	WorkspaceID string `json:"workspace_id"`
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Visibility  string `json:"visibility"`
	CreatedAt   string `json:"created_at"`
}

func boardResponse(b *store.Board) boardResponseBody {
	return boardResponseBody{
		BoardID:     b.ID.String(),
		WorkspaceID: b.WorkspaceID.String(),
		OwnerID:     b.OwnerID.String(),
		Name:        b.Name,
		Color:       b.Color,
		Visibility:  b.Visibility,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
	}
}

// listBoardsHandler handles GET /api/v1/workspaces/{workspace_id}/boards.
// Returns the boards visible to the caller: owned, member of, and
// workspace-visible ones.
func (srv *Server) listBoardsHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, _ := requestUser(r)

	boards, err := srv.store.ListBoardsForUser(r.Context(), ws.ID, userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list boards", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]boardResponseBody, 0, len(boards))
	for i := range boards {
		out = append(out, boardResponse(&boards[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createBoardBody is the JSON request body for POST /workspaces/{workspace_id}/boards.
type createBoardBody struct {
	Name       string `json:"name"`
	Color      string `json:"color"`
	Visibility string `json:"visibility"`
}

// createBoardHandler handles POST /api/v1/workspaces/{workspace_id}/boards.
// Gated by the board_creation setting via the evaluator.
func (srv *Server) createBoardHandler(w http.ResponseWriter, r *http.Request) {
	ws, role, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, _ := requestUser(r)

	var req createBoardBody
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
		visibility = "workspace"
	}
	switch visibility {
	case "private", "workspace", "public":
	default:
		http.Error(w, "visibility must be private, workspace, or public", http.StatusBadRequest)
		return
	}

	settings, err := srv.loadSettings(r.Context(), ws.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "load settings", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	decision := authz.Evaluate(authz.Request{
		Action:   authz.ActionCreateBoard,
		Role:     role,
		Settings: settings,
	})
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	board, err := srv.store.CreateBoard(r.Context(), ws.ID, userID, req.Name, req.Color, visibility)
	if err != nil {
		slog.ErrorContext(r.Context(), "create board", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	srv.emitEvent(r.Context(), ws.ID, "board.created", map[string]string{
		"board_id": board.ID.String(),
		"name":     board.Name,
	})

	writeJSON(w, http.StatusCreated, boardResponse(board))
}

// getBoardHandler handles GET /api/v1/boards/{board_id}.
func (srv *Server) getBoardHandler(w http.ResponseWriter, r *http.Request) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, boardResponse(board))
}

// updateBoardBody is the JSON request body for PATCH /boards/{board_id}.
type updateBoardBody struct {
	Name       *string `json:"name"`
	Color      *string `json:"color"`
	Visibility *string `json:"visibility"`
}

// updateBoardHandler handles PATCH /api/v1/boards/{board_id}.
// Requires a board admin role, or workspace owner.
func (srv *Server) updateBoardHandler(w http.ResponseWriter, r *http.Request) {
	board, access, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	_, wsRole, _ := requestWorkspace(r)

	if access.Role < authz.RoleAdmin && wsRole != authz.RoleOwner {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req updateBoardBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name != nil && *req.Name == "" {
		http.Error(w, "name cannot be empty", http.StatusBadRequest)
		return
	}
	if req.Visibility != nil {
		switch *req.Visibility {
		case "private", "workspace", "public":
		default:
			http.Error(w, "visibility must be private, workspace, or public", http.StatusBadRequest)
			return
		}
	}

	updated, err := srv.store.UpdateBoard(r.Context(), board.ID, store.UpdateBoardParams{
		Name:       req.Name,
		Color:      req.Color,
		Visibility: req.Visibility,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "update board", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, boardResponse(updated))
}

// deleteBoardHandler handles DELETE /api/v1/boards/{board_id}.
// Gated by the board_deletion setting via the evaluator.
func (srv *Server) deleteBoardHandler(w http.ResponseWriter, r *http.Request) {
	board, access, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	_, wsRole, _ := requestWorkspace(r)

	settings, err := srv.loadSettings(r.Context(), board.WorkspaceID)
	if err != nil {
		slog.ErrorContext(r.Context(), "load settings", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	decision := authz.Evaluate(authz.Request{
		Action:        authz.ActionDeleteBoard,
		Role:          access.Role,
		WorkspaceRole: wsRole,
		Settings:      settings,
	})
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	if err := srv.store.DeleteBoard(r.Context(), board.ID); err != nil {
		slog.ErrorContext(r.Context(), "delete board", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	srv.emitEvent(r.Context(), board.WorkspaceID, "board.deleted", map[string]string{
		"board_id": board.ID.String(),
		"name":     board.Name,
	})

	w.WriteHeader(http.StatusNoContent)
}

// starBoardHandler handles POST /api/v1/boards/{board_id}/star.
func (srv *Server) starBoardHandler(w http.ResponseWriter, r *http.Request) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, _ := requestUser(r)

	if err := srv.store.StarBoard(r.Context(), board.ID, userID); err != nil {
		slog.ErrorContext(r.Context(), "star board", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// unstarBoardHandler handles DELETE /api/v1/boards/{board_id}/star.
func (srv *Server) unstarBoardHandler(w http.ResponseWriter, r *http.Request) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, _ := requestUser(r)

	if err := srv.store.UnstarBoard(r.Context(), board.ID, userID); err != nil {
		slog.ErrorContext(r.Context(), "unstar board", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// boardMemberResponseBody is the JSON shape for one board member.
type boardMemberResponseBody struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// listBoardMembersHandler handles GET /api/v1/boards/{board_id}/members.
func (srv *Server) listBoardMembersHandler(w http.ResponseWriter, r *http.Request) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	members, err := srv.store.ListBoardMembers(r.Context(), board.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list board members", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]boardMemberResponseBody, 0, len(members))
	for _, m := range members {
		out = append(out, boardMemberResponseBody{
			UserID:      m.UserID.String(),
			Role:        m.Role,
			Email:       m.Email,
			DisplayName: m.DisplayName,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// addBoardMemberBody is the JSON request body for POST /boards/{board_id}/members.
type addBoardMemberBody struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// addBoardMemberHandler handles POST /api/v1/boards/{board_id}/members.
// Requires a board admin role, or workspace owner.
func (srv *Server) addBoardMemberHandler(w http.ResponseWriter, r *http.Request) {
	board, access, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	_, wsRole, _ := requestWorkspace(r)

	if access.Role < authz.RoleAdmin && wsRole != authz.RoleOwner {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req addBoardMemberBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	memberID, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}
	role := req.Role
	if role == "" {
		role = "member"
	}
	if role != "admin" && role != "member" {
		http.Error(w, "role must be admin or member", http.StatusBadRequest)
		return
	}

	if err := srv.store.AddBoardMember(r.Context(), board.ID, memberID, role); err != nil {
		if pgErrCode(err) == "23505" { // already a member
			http.Error(w, "already a board member", http.StatusConflict)
			return
		}
		slog.ErrorContext(r.Context(), "add board member", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// removeBoardMemberHandler handles DELETE /api/v1/boards/{board_id}/members/{user_id}.
// Board admins remove anyone; members may remove themselves.
func (srv *Server) removeBoardMemberHandler(w http.ResponseWriter, r *http.Request) {
	board, access, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, _ := requestUser(r)
	_, wsRole, _ := requestWorkspace(r)

	targetID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	if access.Role < authz.RoleAdmin && wsRole != authz.RoleOwner && targetID != userID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := srv.store.RemoveBoardMember(r.Context(), board.ID, targetID); err != nil {
		slog.ErrorContext(r.Context(), "remove board member", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
