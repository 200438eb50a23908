// ABOUTME: HTTP server struct, constructor, and handler wiring for TaskMaster.
// ABOUTME: Holds auth dependencies (store, config, argon2 semaphore) used by handlers.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/healertrix/taskmaster/internal/authz"
	"github.com/healertrix/taskmaster/internal/config"
	"github.com/healertrix/taskmaster/internal/notify"
	"github.com/healertrix/taskmaster/internal/store"
)

// Server holds the dependencies for the HTTP layer.
type Server struct {
	store       *store.Store
	cfg         *config.Config
	argon2Sem   chan struct{}
	rateLimiter *ipRateLimiter
}

// NewServer creates a Server.
func NewServer(s *store.Store, cfg *config.Config) *Server {
	sem := make(chan struct{}, cfg.Argon2MaxConcurrent)
	evictTTL := cfg.RateLimitEvictTTL
	if evictTTL == 0 {
		evictTTL = 15 * time.Minute
	}
	// 10 requests per minute, burst of 10.
	rl := newIPRateLimiter(rate.Limit(10.0/60), 10, evictTTL)
	return &Server{
		store:       s,
		cfg:         cfg,
		argon2Sem:   sem,
		rateLimiter: rl,
	}
}

// Handler builds and returns the http.Handler.
func (srv *Server) Handler() http.Handler {
	var db *pgxpool.Pool
	if srv.store != nil {
		db = srv.store.Pool()
	}
	r := chi.NewRouter()

	// ── Security headers ──────────────────────────────────────────────────────
	// Must be first so they appear on every response including errors.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	})

	// ── Standard chi middleware ───────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// 1 MB global body limit — protect against OOM from large request bodies.
	r.Use(middleware.RequestSize(1 << 20))
	r.Use(middleware.Recoverer)
	r.Use(csrfProtect)

	// ── Infrastructure endpoints ──────────────────────────────────────────────
	r.Get("/healthz", healthzHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	// ── API v1 sub-router with huma (OpenAPI 3.1) for auth endpoints ──────────
	apiRouter := chi.NewRouter()
	apiRouter.Group(func(r chi.Router) {
		r.Use(srv.authRateLimit())
		humaConfig := huma.DefaultConfig("TaskMaster API", "0.1.0")
		humaConfig.Info.Description = "Kanban workspace and board management API"
		registerAuthRoutes(humachi.New(r, humaConfig), srv)
	})

	// ── Invitation acceptance (public token lookup + authenticated accept) ────
	apiRouter.Get("/invitations/{token}", srv.getInvitationByTokenHandler)
	apiRouter.With(srv.RequireAuthenticated()).
		Post("/invitations/{token}/accept", srv.acceptInvitationHandler)

	// ── Workspace routes (chi, not huma, for per-group authz middleware) ──────
	apiRouter.Route("/workspaces", func(r chi.Router) {
		r.Use(srv.RequireAuthenticated())
		r.Post("/", srv.createWorkspaceHandler)
		r.Get("/", srv.listWorkspacesHandler)

		r.Route("/{workspace_id}", func(r chi.Router) {
			r.Use(srv.RequireWorkspace())
			r.Get("/", srv.getWorkspaceHandler)
			r.With(srv.RequireWorkspaceRole(authz.RoleAdmin)).Patch("/", srv.updateWorkspaceHandler)
			r.With(srv.RequireWorkspaceRole(authz.RoleOwner)).Delete("/", srv.deleteWorkspaceHandler)

			// Settings
			r.Get("/settings", srv.getSettingsHandler)
			r.Put("/settings/{setting_type}", srv.updateSettingHandler)

			// Member management
			r.Route("/members", func(r chi.Router) {
				r.Get("/", srv.listMembersHandler)
				r.Patch("/{user_id}", srv.changeMemberRoleHandler)
				r.Delete("/{user_id}", srv.removeMemberHandler)
			})

			// Invitation management
			r.Route("/invitations", func(r chi.Router) {
				r.Post("/", srv.createInvitationHandler)
				r.With(srv.RequireWorkspaceRole(authz.RoleAdmin)).Get("/", srv.listInvitationsHandler)
				r.With(srv.RequireWorkspaceRole(authz.RoleAdmin)).Delete("/{id}", srv.cancelInvitationHandler)
			})

			// Boards within the workspace
			r.Get("/boards", srv.listBoardsHandler)
			r.Post("/boards", srv.createBoardHandler)

			// Webhook endpoints
			r.Route("/webhooks", func(r chi.Router) {
				r.Use(srv.RequireWorkspaceRole(authz.RoleAdmin))
				r.Get("/", srv.listWebhooksHandler)
				r.Post("/", srv.createWebhookHandler)
				r.Delete("/{id}", srv.deleteWebhookHandler)
			})
		})
	})

	// ── Board routes ──────────────────────────────────────────────────────────
	apiRouter.Route("/boards/{board_id}", func(r chi.Router) {
		r.Use(srv.RequireAuthenticated())
		r.Use(srv.RequireBoard())

		r.Get("/", srv.getBoardHandler)
		r.Patch("/", srv.updateBoardHandler)
		r.Delete("/", srv.deleteBoardHandler)
		r.Post("/star", srv.starBoardHandler)
		r.Delete("/star", srv.unstarBoardHandler)

		r.Route("/members", func(r chi.Router) {
			r.Get("/", srv.listBoardMembersHandler)
			r.Post("/", srv.addBoardMemberHandler)
			r.Delete("/{user_id}", srv.removeBoardMemberHandler)
		})

		r.Route("/lists", func(r chi.Router) {
			r.Get("/", srv.listListsHandler)
			r.With(srv.RequireBoardWrite()).Post("/", srv.createListHandler)
			r.With(srv.RequireBoardWrite()).Patch("/{list_id}", srv.updateListHandler)
		})

		r.Route("/labels", func(r chi.Router) {
			r.Get("/", srv.listLabelsHandler)
			r.With(srv.RequireBoardWrite()).Post("/", srv.createLabelHandler)
		})

		r.Get("/cards", srv.listCardsHandler)
		r.With(srv.RequireBoardWrite()).Post("/cards", srv.createCardHandler)
		r.Route("/cards/{card_id}", func(r chi.Router) {
			r.Get("/", srv.getCardHandler)
			r.With(srv.RequireBoardWrite()).Patch("/", srv.updateCardHandler)
			r.With(srv.RequireBoardWrite()).Delete("/", srv.deleteCardHandler)
			r.With(srv.RequireBoardWrite()).Post("/move", srv.moveCardHandler)

			r.Post("/members", srv.addCardMemberHandler)
			r.Delete("/members/{user_id}", srv.removeCardMemberHandler)

			r.Post("/labels", srv.assignLabelHandler)
			r.Delete("/labels/{label_id}", srv.unassignLabelHandler)

			r.With(srv.RequireBoardWrite()).Post("/checklists", srv.createChecklistHandler)
			r.With(srv.RequireBoardWrite()).Post("/checklists/{checklist_id}/items", srv.addChecklistItemHandler)
			r.With(srv.RequireBoardWrite()).Patch("/checklists/items/{item_id}", srv.setChecklistItemHandler)

			r.Get("/comments", srv.listCommentsHandler)
			r.Post("/comments", srv.createCommentHandler)
			r.Patch("/comments/{comment_id}", srv.updateCommentHandler)
			r.Delete("/comments/{comment_id}", srv.deleteCommentHandler)

			r.Get("/attachments", srv.listAttachmentsHandler)
			r.With(srv.RequireBoardWrite()).Post("/attachments", srv.createAttachmentHandler)
			r.Delete("/attachments/{attachment_id}", srv.deleteAttachmentHandler)
		})
	})

	r.Mount("/api/v1", apiRouter)

	return r
}

// acquireArgon2 tries to acquire the argon2 semaphore. Returns false if all
// slots are in use — the caller should return 503 immediately (do NOT block).
func (srv *Server) acquireArgon2() bool {
	select {
	case srv.argon2Sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (srv *Server) releaseArgon2() { <-srv.argon2Sem }

// emitEvent enqueues a webhook_event job for the workspace. Failures are
// logged, never surfaced — webhook fanout must not fail the mutation.
func (srv *Server) emitEvent(ctx context.Context, workspaceID uuid.UUID, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "emit event: marshal", "event", event, "error", err)
		return
	}
	if err := srv.store.EnqueueJob(ctx, notify.QueueWebhookEvent, notify.WebhookEventJob{
		WorkspaceID: workspaceID,
		Event:       event,
		Data:        raw,
	}); err != nil {
		slog.ErrorContext(ctx, "emit event: enqueue", "event", event, "error", err)
	}
}

// healthResponse is the JSON body for /healthz.
type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

// healthzHandler returns 200 {"status":"ok"} when the DB is reachable,
// or 503 {"status":"degraded","db":"unavailable"} when it is not.
func healthzHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		statusCode := http.StatusOK

		if db == nil {
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		} else if err := db.Ping(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "healthz: db ping failed", "error", err)
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.ErrorContext(r.Context(), "healthz: failed to encode response", "error", err)
		}
	}
}
