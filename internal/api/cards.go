// ABOUTME: HTTP handlers for cards and their satellites: members, labels, checklists.
// ABOUTME: Collaboration mutations run through the evaluator's access rules.
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

// cardResponseBody is the JSON shape for one card.
type cardResponseBody struct {
	CardID      string  `json:"card_id"`
	ListID      string  `json:"list_id"`
	CreatedBy   string  `json:"created_by"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Position    float64 `json:"position"`
	DueAt       string  `json:"due_at,omitempty"`
	Archived    bool    `json:"archived"`
}

func cardResponse(c *store.Card) cardResponseBody {
	body := cardResponseBody{
		CardID:      c.ID.String(),
		ListID:      c.ListID.String(),
		CreatedBy:   c.CreatedBy.String(),
		Title:       c.Title,
		Description: c.Description,
		Position:    c.Position,
		Archived:    c.Archived,
	}
	if c.DueAt != nil {
		body.DueAt = c.DueAt.Format(time.RFC3339)
	}
	return body
}

// cardFromRequest resolves the {card_id} URL param and verifies the card
// belongs to the board already resolved by RequireBoard. Writes the error
// response and returns (nil, false) on failure.
func (srv *Server) cardFromRequest(w http.ResponseWriter, r *http.Request) (*store.Card, bool) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil, false
	}

	cardID, err := uuid.Parse(chi.URLParam(r, "card_id"))
	if err != nil {
		http.Error(w, "invalid card_id", http.StatusBadRequest)
		return nil, false
	}

	card, err := srv.store.GetCardByID(r.Context(), cardID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get card", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if card == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return nil, false
	}

	boardID, err := srv.store.GetBoardIDForCard(r.Context(), cardID)
	if err != nil {
		slog.ErrorContext(r.Context(), "resolve card board", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if boardID == nil || *boardID != board.ID {
		http.Error(w, "not found", http.StatusNotFound)
		return nil, false
	}
	return card, true
}

// collaborationDecision evaluates a collaboration action against the caller's
// resolved board access.
func collaborationDecision(r *http.Request, action authz.Action) authz.Decision {
	_, access, _ := requestBoard(r)
	return authz.Evaluate(authz.Request{
		Action:    action,
		Role:      access.Role,
		HasAccess: access.HasAccess,
	})
}

// listCardsHandler handles GET /api/v1/boards/{board_id}/cards.
func (srv *Server) listCardsHandler(w http.ResponseWriter, r *http.Request) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	cards, err := srv.store.ListCardsForBoard(r.Context(), board.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list cards", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]cardResponseBody, 0, len(cards))
	for i := range cards {
		out = append(out, cardResponse(&cards[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createCardBody is the JSON request body for POST /boards/{board_id}/cards.
type createCardBody struct {
	ListID   string  `json:"list_id"`
	Title    string  `json:"title"`
	Position float64 `json:"position"`
}

// createCardHandler handles POST /api/v1/boards/{board_id}/cards.
// Collaboration access enforced by RequireBoardWrite middleware.
func (srv *Server) createCardHandler(w http.ResponseWriter, r *http.Request) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, _ := requestUser(r)

	var req createCardBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	listID, err := uuid.Parse(req.ListID)
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
		http.Error(w, "list not found", http.StatusNotFound)
		return
	}

	card, err := srv.store.CreateCard(r.Context(), listID, userID, req.Title, req.Position)
	if err != nil {
		slog.ErrorContext(r.Context(), "create card", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, cardResponse(card))
}

// getCardHandler handles GET /api/v1/boards/{board_id}/cards/{card_id}.
func (srv *Server) getCardHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cardResponse(card))
}

// updateCardBody is the JSON request body for PATCH /cards/{card_id}.
type updateCardBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueAt       *string `json:"due_at"`
	Archived    *bool   `json:"archived"`
}

// updateCardHandler handles PATCH /api/v1/boards/{board_id}/cards/{card_id}.
func (srv *Server) updateCardHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}

	var req updateCardBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title != nil && *req.Title == "" {
		http.Error(w, "title cannot be empty", http.StatusBadRequest)
		return
	}

	params := store.UpdateCardParams{
		Title:       req.Title,
		Description: req.Description,
		Archived:    req.Archived,
	}
	if req.DueAt != nil {
		if *req.DueAt == "" {
			params.ClearDueAt = true
		} else {
			t, err := time.Parse(time.RFC3339, *req.DueAt)
			if err != nil {
				http.Error(w, "due_at must be RFC 3339", http.StatusBadRequest)
				return
			}
			params.DueAt = &t
		}
	}

	updated, err := srv.store.UpdateCard(r.Context(), card.ID, params)
	if err != nil {
		slog.ErrorContext(r.Context(), "update card", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cardResponse(updated))
}

// moveCardBody is the JSON request body for POST /cards/{card_id}/move.
type moveCardBody struct {
	ListID   string  `json:"list_id"`
	Position float64 `json:"position"`
}

// moveCardHandler handles POST /api/v1/boards/{board_id}/cards/{card_id}/move.
func (srv *Server) moveCardHandler(w http.ResponseWriter, r *http.Request) {
	board, _, _ := requestBoard(r)
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}

	var req moveCardBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	listID, err := uuid.Parse(req.ListID)
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
		http.Error(w, "list not found", http.StatusNotFound)
		return
	}

	if err := srv.store.MoveCard(r.Context(), card.ID, listID, req.Position); err != nil {
		slog.ErrorContext(r.Context(), "move card", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deleteCardHandler handles DELETE /api/v1/boards/{board_id}/cards/{card_id}.
func (srv *Server) deleteCardHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}
	if err := srv.store.DeleteCard(r.Context(), card.ID); err != nil {
		slog.ErrorContext(r.Context(), "delete card", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addCardMemberBody is the JSON request body for POST /cards/{card_id}/members.
type addCardMemberBody struct {
	UserID string `json:"user_id"`
}

// addCardMemberHandler handles POST /api/v1/boards/{board_id}/cards/{card_id}/members.
// Gated by the add_card_member collaboration rule.
func (srv *Server) addCardMemberHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}

	decision := collaborationDecision(r, authz.ActionAddCardMember)
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	var req addCardMemberBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	memberID, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	if err := srv.store.AddCardMember(r.Context(), card.ID, memberID); err != nil {
		slog.ErrorContext(r.Context(), "add card member", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// removeCardMemberHandler handles DELETE /api/v1/boards/{board_id}/cards/{card_id}/members/{user_id}.
func (srv *Server) removeCardMemberHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}

	decision := collaborationDecision(r, authz.ActionAddCardMember)
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	memberID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	if err := srv.store.RemoveCardMember(r.Context(), card.ID, memberID); err != nil {
		slog.ErrorContext(r.Context(), "remove card member", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// labelResponseBody is the JSON shape for one label.
type labelResponseBody struct {
	LabelID string `json:"label_id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
}

// listLabelsHandler handles GET /api/v1/boards/{board_id}/labels.
func (srv *Server) listLabelsHandler(w http.ResponseWriter, r *http.Request) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	labels, err := srv.store.ListLabelsForBoard(r.Context(), board.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list labels", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]labelResponseBody, 0, len(labels))
	for _, l := range labels {
		out = append(out, labelResponseBody{LabelID: l.ID.String(), Name: l.Name, Color: l.Color})
	}
	writeJSON(w, http.StatusOK, out)
}

// createLabelBody is the JSON request body for POST /boards/{board_id}/labels.
type createLabelBody struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// createLabelHandler handles POST /api/v1/boards/{board_id}/labels.
func (srv *Server) createLabelHandler(w http.ResponseWriter, r *http.Request) {
	board, _, ok := requestBoard(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var req createLabelBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Color == "" {
		http.Error(w, "color is required", http.StatusBadRequest)
		return
	}

	label, err := srv.store.CreateLabel(r.Context(), board.ID, req.Name, req.Color)
	if err != nil {
		slog.ErrorContext(r.Context(), "create label", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, labelResponseBody{
		LabelID: label.ID.String(), Name: label.Name, Color: label.Color,
	})
}

// assignLabelBody is the JSON request body for POST /cards/{card_id}/labels.
type assignLabelBody struct {
	LabelID string `json:"label_id"`
}

// assignLabelHandler handles POST /api/v1/boards/{board_id}/cards/{card_id}/labels.
// Gated by the assign_label collaboration rule.
func (srv *Server) assignLabelHandler(w http.ResponseWriter, r *http.Request) {
	board, _, _ := requestBoard(r)
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}

	decision := collaborationDecision(r, authz.ActionAssignLabel)
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	var req assignLabelBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	labelID, err := uuid.Parse(req.LabelID)
	if err != nil {
		http.Error(w, "invalid label_id", http.StatusBadRequest)
		return
	}

	label, err := srv.store.GetLabelByID(r.Context(), labelID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get label", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if label == nil || label.BoardID != board.ID {
		http.Error(w, "label not found", http.StatusNotFound)
		return
	}

	if err := srv.store.AssignLabel(r.Context(), card.ID, labelID); err != nil {
		slog.ErrorContext(r.Context(), "assign label", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// unassignLabelHandler handles DELETE /api/v1/boards/{board_id}/cards/{card_id}/labels/{label_id}.
func (srv *Server) unassignLabelHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}

	decision := collaborationDecision(r, authz.ActionAssignLabel)
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	labelID, err := uuid.Parse(chi.URLParam(r, "label_id"))
	if err != nil {
		http.Error(w, "invalid label_id", http.StatusBadRequest)
		return
	}

	if err := srv.store.UnassignLabel(r.Context(), card.ID, labelID); err != nil {
		slog.ErrorContext(r.Context(), "unassign label", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// createChecklistBody is the JSON request body for POST /cards/{card_id}/checklists.
type createChecklistBody struct {
	Name     string  `json:"name"`
	Position float64 `json:"position"`
}

// createChecklistHandler handles POST /api/v1/boards/{board_id}/cards/{card_id}/checklists.
func (srv *Server) createChecklistHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}

	var req createChecklistBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	cl, err := srv.store.CreateChecklist(r.Context(), card.ID, req.Name, req.Position)
	if err != nil {
		slog.ErrorContext(r.Context(), "create checklist", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"checklist_id": cl.ID.String()})
}

// addChecklistItemBody is the JSON request body for POST /checklists/{checklist_id}/items.
type addChecklistItemBody struct {
	Title    string  `json:"title"`
	Position float64 `json:"position"`
}

// addChecklistItemHandler handles POST /api/v1/boards/{board_id}/cards/{card_id}/checklists/{checklist_id}/items.
func (srv *Server) addChecklistItemHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}

	checklistID, err := uuid.Parse(chi.URLParam(r, "checklist_id"))
	if err != nil {
		http.Error(w, "invalid checklist_id", http.StatusBadRequest)
		return
	}

	// The checklist must belong to the card in the URL.
	checklists, err := srv.store.ListChecklistsForCard(r.Context(), card.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list checklists", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	found := false
	for _, cl := range checklists {
		if cl.ID == checklistID {
			found = true
			break
		}
	}
	if !found {
		http.Error(w, "checklist not found", http.StatusNotFound)
		return
	}

	var req addChecklistItemBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	item, err := srv.store.AddChecklistItem(r.Context(), checklistID, req.Title, req.Position)
	if err != nil {
		slog.ErrorContext(r.Context(), "add checklist item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"item_id": item.ID.String()})
}

// setChecklistItemBody is the JSON request body for PATCH /checklists/items/{item_id}.
type setChecklistItemBody struct {
	Done bool `json:"done"`
}

// setChecklistItemHandler handles PATCH /api/v1/boards/{board_id}/cards/{card_id}/checklists/items/{item_id}.
func (srv *Server) setChecklistItemHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := srv.cardFromRequest(w, r); !ok {
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "item_id"))
	if err != nil {
		http.Error(w, "invalid item_id", http.StatusBadRequest)
		return
	}

	var req setChecklistItemBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := srv.store.SetChecklistItemDone(r.Context(), itemID, req.Done); err != nil {
		slog.ErrorContext(r.Context(), "set checklist item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
