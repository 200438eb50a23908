// ABOUTME: Workspace and board resolution middleware built on the authz engine.
// ABOUTME: Missing resources map to 404; resolved roles are injected into context.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/authz"
)

// RequireWorkspace resolves the {workspace_id} URL param, loads the workspace,
// and resolves the caller's effective role. A missing workspace is 404; a
// caller with no role on a private workspace also gets 404 so existence is not
// leaked. On success it injects ctxWorkspace and ctxRole.
//
// Must run after RequireAuthenticated.
func (srv *Server) RequireWorkspace() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := requestUser(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			workspaceID, err := uuid.Parse(chi.URLParam(r, "workspace_id"))
			if err != nil {
				http.Error(w, "invalid workspace_id", http.StatusBadRequest)
				return
			}

			ws, err := srv.store.GetWorkspaceByID(r.Context(), workspaceID)
			if err != nil {
				slog.ErrorContext(r.Context(), "resolve workspace", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if ws == nil {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}

			role, err := srv.resolveWorkspaceRole(r.Context(), ws, userID)
			if err != nil {
				slog.ErrorContext(r.Context(), "resolve workspace role", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if role == authz.RoleNone && ws.Visibility != "public" {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}

			ctx := context.WithValue(r.Context(), ctxWorkspace, ws)
			ctx = context.WithValue(ctx, ctxRole, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireWorkspaceRole enforces a minimum effective workspace role. Must run
// after RequireWorkspace.
func (srv *Server) RequireWorkspaceRole(minRole authz.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, role, ok := requestWorkspace(r)
			if !ok {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			if role < minRole {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireBoard resolves the {board_id} URL param, loads the board and its
// workspace, and resolves the caller's board access. A missing board is 404;
// so is a board the caller cannot even view. On success it injects ctxBoard,
// ctxBoardAccess, ctxWorkspace, and ctxRole (the workspace role).
//
// Must run after RequireAuthenticated.
func (srv *Server) RequireBoard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := requestUser(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			boardID, err := uuid.Parse(chi.URLParam(r, "board_id"))
			if err != nil {
				http.Error(w, "invalid board_id", http.StatusBadRequest)
				return
			}

			board, err := srv.store.GetBoardByID(r.Context(), boardID)
			if err != nil {
				slog.ErrorContext(r.Context(), "resolve board", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if board == nil {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}

			ws, err := srv.store.GetWorkspaceByID(r.Context(), board.WorkspaceID)
			if err != nil {
				slog.ErrorContext(r.Context(), "resolve board workspace", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			wsMembers, err := srv.store.ListWorkspaceMembers(r.Context(), board.WorkspaceID)
			if err != nil {
				slog.ErrorContext(r.Context(), "list workspace members", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			boardMembers, err := srv.store.ListBoardMembers(r.Context(), board.ID)
			if err != nil {
				slog.ErrorContext(r.Context(), "list board members", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			access, err := authz.ResolveBoardRole(userID, toAuthzBoard(board), toAuthzWorkspace(ws),
				boardMembersToAuthz(boardMembers), workspaceMembersToAuthz(wsMembers))
			if err != nil {
				// Workspace row vanished under the board; treat as missing.
				http.Error(w, "not found", http.StatusNotFound)
				return
			}

			wsRole, err := authz.ResolveWorkspaceRole(userID, toAuthzWorkspace(ws), workspaceMembersToAuthz(wsMembers))
			if err != nil {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}

			// Workspace admins may manage boards they cannot collaborate on.
			if !access.HasAccess && !access.CanView && wsRole < authz.RoleAdmin {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}

			ctx := context.WithValue(r.Context(), ctxBoard, board)
			ctx = context.WithValue(ctx, ctxBoardAccess, access)
			ctx = context.WithValue(ctx, ctxWorkspace, ws)
			ctx = context.WithValue(ctx, ctxRole, wsRole)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireBoardWrite enforces collaboration access on the board (explicit
// membership, ownership, or implicit workspace-visible access). Viewers of
// public boards are rejected. Must run after RequireBoard.
func (srv *Server) RequireBoardWrite() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, access, ok := requestBoard(r)
			if !ok {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			if !access.HasAccess {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
