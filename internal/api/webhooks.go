// ABOUTME: HTTP handlers for workspace webhook endpoints.
// ABOUTME: The signing secret is returned once, at creation, and never again.
package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/store"
)

// newSigningSecret returns a hex-encoded 32-byte secret.
func newSigningSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// webhookResponseBody is the JSON shape for one webhook endpoint.
type webhookResponseBody struct {
	WebhookID string `json:"webhook_id"`
	URL       string `json:"url"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	// Secret is only populated in the creation response.
	Secret string `json:"secret,omitempty"`
}

func webhookResponse(wh *store.Webhook) webhookResponseBody {
	return webhookResponseBody{
		WebhookID: wh.ID.String(),
		URL:       wh.URL,
		Active:    wh.Active,
		CreatedAt: wh.CreatedAt.Format(time.RFC3339),
	}
}

// listWebhooksHandler handles GET /api/v1/workspaces/{workspace_id}/webhooks.
// Admin and above (enforced by RequireWorkspaceRole middleware).
func (srv *Server) listWebhooksHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	webhooks, err := srv.store.ListWebhooks(r.Context(), ws.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list webhooks", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]webhookResponseBody, 0, len(webhooks))
	for i := range webhooks {
		out = append(out, webhookResponse(&webhooks[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createWebhookBody is the JSON request body for POST /webhooks.
type createWebhookBody struct {
	URL string `json:"url"`
}

// createWebhookHandler handles POST /api/v1/workspaces/{workspace_id}/webhooks.
func (srv *Server) createWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, _ := requestUser(r)

	var req createWebhookBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme != "https" && u.Scheme != "http" || u.Host == "" {
		http.Error(w, "url must be an absolute http(s) URL", http.StatusBadRequest)
		return
	}

	secret, err := newSigningSecret()
	if err != nil {
		slog.ErrorContext(r.Context(), "generate signing secret", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	wh, err := srv.store.CreateWebhook(r.Context(), ws.ID, req.URL, secret, userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "create webhook", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := webhookResponse(wh)
	resp.Secret = secret
	writeJSON(w, http.StatusCreated, resp)
}

// deleteWebhookHandler handles DELETE /api/v1/workspaces/{workspace_id}/webhooks/{id}.
func (srv *Server) deleteWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := requestWorkspace(r)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid webhook id", http.StatusBadRequest)
		return
	}

	if err := srv.store.DeleteWebhook(r.Context(), ws.ID, id); err != nil {
		slog.ErrorContext(r.Context(), "delete webhook", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
