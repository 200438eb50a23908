// ABOUTME: HTTP handlers for card comments and attachment metadata.
// ABOUTME: Edits and deletions go through the own-content rule (author or admin).
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

// commentResponseBody is the JSON shape for one comment.
type commentResponseBody struct {
	CommentID string `json:"comment_id"`
	AuthorID  string `json:"author_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func commentResponse(c *store.Comment) commentResponseBody {
	return commentResponseBody{
		CommentID: c.ID.String(),
		AuthorID:  c.AuthorID.String(),
		Body:      c.Body,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

// listCommentsHandler handles GET /api/v1/boards/{board_id}/cards/{card_id}/comments.
func (srv *Server) listCommentsHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}

	comments, err := srv.store.ListCommentsForCard(r.Context(), card.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list comments", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]commentResponseBody, 0, len(comments))
	for i := range comments {
		out = append(out, commentResponse(&comments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createCommentBody is the JSON request body for POST /cards/{card_id}/comments.
type createCommentBody struct {
	Body string `json:"body"`
}

// createCommentHandler handles POST /api/v1/boards/{board_id}/cards/{card_id}/comments.
// Gated by the comment collaboration rule.
func (srv *Server) createCommentHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}
	userID, _ := requestUser(r)

	decision := collaborationDecision(r, authz.ActionComment)
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	var req createCommentBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Body == "" {
		http.Error(w, "body is required", http.StatusBadRequest)
		return
	}

	comment, err := srv.store.CreateComment(r.Context(), card.ID, userID, req.Body)
	if err != nil {
		slog.ErrorContext(r.Context(), "create comment", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, commentResponse(comment))
}

// commentFromRequest resolves {comment_id} and verifies the comment belongs to
// the card resolved from the URL.
func (srv *Server) commentFromRequest(w http.ResponseWriter, r *http.Request, card *store.Card) (*store.Comment, bool) {
	commentID, err := uuid.Parse(chi.URLParam(r, "comment_id"))
	if err != nil {
		http.Error(w, "invalid comment_id", http.StatusBadRequest)
		return nil, false
	}

	comment, err := srv.store.GetCommentByID(r.Context(), commentID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get comment", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if comment == nil || comment.CardID != card.ID {
		http.Error(w, "not found", http.StatusNotFound)
		return nil, false
	}
	return comment, true
}

// ownContentDecision evaluates the edit-own-content rule for a resource
// authored by authorID.
func ownContentDecision(r *http.Request, authorID uuid.UUID) authz.Decision {
	userID, _ := requestUser(r)
	_, access, _ := requestBoard(r)
	return authz.Evaluate(authz.Request{
		Action:    authz.ActionEditOwnContent,
		Role:      access.Role,
		HasAccess: access.HasAccess,
		IsSelf:    userID == authorID,
	})
}

// updateCommentBody is the JSON request body for PATCH /comments/{comment_id}.
type updateCommentBody struct {
	Body string `json:"body"`
}

// updateCommentHandler handles PATCH /api/v1/boards/{board_id}/cards/{card_id}/comments/{comment_id}.
func (srv *Server) updateCommentHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}
	comment, ok := srv.commentFromRequest(w, r, card)
	if !ok {
		return
	}

	decision := ownContentDecision(r, comment.AuthorID)
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	var req updateCommentBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Body == "" {
		http.Error(w, "body is required", http.StatusBadRequest)
		return
	}

	updated, err := srv.store.UpdateCommentBody(r.Context(), comment.ID, req.Body)
	if err != nil {
		slog.ErrorContext(r.Context(), "update comment", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, commentResponse(updated))
}

// deleteCommentHandler handles DELETE /api/v1/boards/{board_id}/cards/{card_id}/comments/{comment_id}.
func (srv *Server) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}
	comment, ok := srv.commentFromRequest(w, r, card)
	if !ok {
		return
	}

	decision := ownContentDecision(r, comment.AuthorID)
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	if err := srv.store.DeleteComment(r.Context(), comment.ID); err != nil {
		slog.ErrorContext(r.Context(), "delete comment", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// attachmentResponseBody is the JSON shape for one attachment.
type attachmentResponseBody struct {
	AttachmentID string `json:"attachment_id"`
	AuthorID     string `json:"author_id"`
	FileName     string `json:"file_name"`
	FileURL      string `json:"file_url"`
	FileSize     int64  `json:"file_size"`
	CreatedAt    string `json:"created_at"`
}

func attachmentResponse(a *store.Attachment) attachmentResponseBody {
	return attachmentResponseBody{
		AttachmentID: a.ID.String(),
		AuthorID:     a.AuthorID.String(),
		FileName:     a.FileName,
		FileURL:      a.FileURL,
		FileSize:     a.FileSize,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
	}
}

// listAttachmentsHandler handles GET /api/v1/boards/{board_id}/cards/{card_id}/attachments.
func (srv *Server) listAttachmentsHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}

	attachments, err := srv.store.ListAttachmentsForCard(r.Context(), card.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list attachments", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]attachmentResponseBody, 0, len(attachments))
	for i := range attachments {
		out = append(out, attachmentResponse(&attachments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createAttachmentBody is the JSON request body for POST /cards/{card_id}/attachments.
// Files live elsewhere; only metadata is recorded.
type createAttachmentBody struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
	FileSize int64  `json:"file_size"`
}

// createAttachmentHandler handles POST /api/v1/boards/{board_id}/cards/{card_id}/attachments.
// Collaboration access enforced by RequireBoardWrite middleware.
func (srv *Server) createAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}
	userID, _ := requestUser(r)

	var req createAttachmentBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FileName == "" || req.FileURL == "" {
		http.Error(w, "file_name and file_url are required", http.StatusBadRequest)
		return
	}

	a, err := srv.store.CreateAttachment(r.Context(), card.ID, userID, req.FileName, req.FileURL, req.FileSize)
	if err != nil {
		slog.ErrorContext(r.Context(), "create attachment", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, attachmentResponse(a))
}

// deleteAttachmentHandler handles DELETE /api/v1/boards/{board_id}/cards/{card_id}/attachments/{attachment_id}.
func (srv *Server) deleteAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	card, ok := srv.cardFromRequest(w, r)
	if !ok {
		return
	}

	attachmentID, err := uuid.Parse(chi.URLParam(r, "attachment_id"))
	if err != nil {
		http.Error(w, "invalid attachment_id", http.StatusBadRequest)
		return
	}

	a, err := srv.store.GetAttachmentByID(r.Context(), attachmentID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get attachment", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if a == nil || a.CardID != card.ID {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	decision := ownContentDecision(r, a.AuthorID)
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	if err := srv.store.DeleteAttachment(r.Context(), a.ID); err != nil {
		slog.ErrorContext(r.Context(), "delete attachment", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
