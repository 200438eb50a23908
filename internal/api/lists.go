// ABOUTME: HTTP handlers for board lists: create, rename, move, archive.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/store"
)

// listResponseBody is the JSON shape for one list.
type listResponseBody struct {
	ListID   string  `json:"list_id"`
	BoardID  string  `json:"board_id"`
	Name     string  `json:"name"`
	Position float64 `json:"position"`
	Archived bool    `json:"archived"`
}

func listResponse(l *store.List) listResponseBody {
	return listResponseBody{
		ListID:   l.ID.String(),
		BoardID:  l.BoardID.String(),
		Name:     l.Name,
		Position: l.Position,
		Archived: l.Archived,
	}
}

// listListsHandler handles GET /api/v1/boards/{board_id}/lists.
func (srv *Server) listListsHandler(w http.ResponseWriter, r *http.Request) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	lists, err := srv.store.ListListsForBoard(r.Context(), board.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list lists", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]listResponseBody, 0, len(lists))
	for i := range lists {
		out = append(out, listResponse(&lists[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createListBody is the JSON request body for POST /boards/{board_id}/lists.
type createListBody struct {
	Name     string  `json:"name"`
	Position float64 `json:"position"`
}

// createListHandler handles POST /api/v1/boards/{board_id}/lists.
// Collaboration access enforced by RequireBoardWrite middleware.
func (srv *Server) createListHandler(w http.ResponseWriter, r *http.Request) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var req createListBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	list, err := srv.store.CreateList(r.Context(), board.ID, req.Name, req.Position)
	if err != nil {
		slog.ErrorContext(r.Context(), "create list", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, listResponse(list))
}

// updateListBody is the JSON request body for PATCH /lists/{list_id}.
// Any subset of the fields may be present.
type updateListBody struct {
	Name     *string  `json:"name"`
	Position *float64 `json:"position"`
	Archived *bool    `json:"archived"`
}

// updateListHandler handles PATCH /api/v1/boards/{board_id}/lists/{list_id}.
func (srv *Server) updateListHandler(w http.ResponseWriter, r *http.Request) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	listID, err := uuid.Parse(chi.URLParam(r, "list_id"))
	if err != nil {
		http.Error(w, "invalid list_id", http.StatusBadRequest)
		return
	}

	list, err := srv.store.GetListByID(r.Context(), listID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get list", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil || list.BoardID != board.ID {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var req updateListBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			http.Error(w, "name cannot be empty", http.StatusBadRequest)
			return
		}
		if err := srv.store.RenameList(r.Context(), listID, *req.Name); err != nil {
			slog.ErrorContext(r.Context(), "rename list", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	if req.Position != nil {
		if err := srv.store.MoveList(r.Context(), listID, *req.Position); err != nil {
			slog.ErrorContext(r.Context(), "move list", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	if req.Archived != nil {
		if err := srv.store.SetListArchived(r.Context(), listID, *req.Archived); err != nil {
			slog.ErrorContext(r.Context(), "archive list", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	updated, err := srv.store.GetListByID(r.Context(), listID)
	if err != nil || updated == nil {
		slog.ErrorContext(r.Context(), "reload list", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(updated))
}
