// ABOUTME: Job handlers for the invitation_email and webhook_event queues.
// ABOUTME: Closures over store and delivery config; registered on the worker pool at startup.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/store"
)

// Queue names shared by enqueuers and the worker process.
const (
	QueueInvitationEmail = "invitation_email"
	QueueWebhookEvent    = "webhook_event"
)

// InvitationEmailJob is the payload enqueued when an invitation is created.
type InvitationEmailJob struct {
	InvitationID uuid.UUID `json:"invitation_id"`
}

// WebhookEventJob is the payload enqueued for workspace webhook fanout.
type WebhookEventJob struct {
	WorkspaceID uuid.UUID       `json:"workspace_id"`
	Event       string          `json:"event"`
	Data        json.RawMessage `json:"data"`
}

// webhookEnvelope is the body POSTed to webhook endpoints.
type webhookEnvelope struct {
	Event       string          `json:"event"`
	WorkspaceID uuid.UUID       `json:"workspace_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

// InvitationEmailHandler returns the handler for the invitation_email queue.
// externalURL is the public base URL used to build the accept link.
func InvitationEmailHandler(st *store.Store, smtp SmtpConfig, externalURL string) func(context.Context, json.RawMessage) error {
	return func(ctx context.Context, payload json.RawMessage) error {
		var job InvitationEmailJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return fmt.Errorf("decode invitation email job: %w", err)
		}

		inv, err := st.GetInvitationByID(ctx, job.InvitationID)
		if err != nil {
			return err
		}
		if inv == nil || inv.AcceptedAt != nil || time.Now().After(inv.ExpiresAt) {
			// Cancelled, accepted, or expired since enqueue; nothing to send.
			return nil
		}

		ws, err := st.GetWorkspaceByID(ctx, inv.WorkspaceID)
		if err != nil {
			return err
		}
		if ws == nil {
			return nil
		}

		inviterName := ""
		if inviter, err := st.GetUserByID(ctx, inv.CreatedBy); err != nil {
			return err
		} else if inviter != nil {
			inviterName = inviter.DisplayName
			if inviterName == "" {
				inviterName = inviter.Email
			}
		}

		subject, htmlBody, textBody, err := RenderInvitation(InvitationTemplateData{
			WorkspaceName: ws.Name,
			InviterName:   inviterName,
			Role:          inv.Role,
			AcceptURL:     externalURL + "/invitations/accept?token=" + inv.Token,
			ExpiresAt:     inv.ExpiresAt.Format("January 2, 2006"),
		})
		if err != nil {
			return err
		}

		return EmailSend(ctx, smtp, []string{inv.Email}, subject, htmlBody, textBody)
	}
}

// WebhookEventHandler returns the handler for the webhook_event queue. It fans
// the event out to every active webhook in the workspace; any endpoint failure
// fails the job so the whole fanout is retried.
func WebhookEventHandler(st *store.Store, client *http.Client) func(context.Context, json.RawMessage) error {
	return func(ctx context.Context, payload json.RawMessage) error {
		var job WebhookEventJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return fmt.Errorf("decode webhook event job: %w", err)
		}

		hooks, err := st.ListActiveWebhooks(ctx, job.WorkspaceID)
		if err != nil {
			return err
		}
		if len(hooks) == 0 {
			return nil
		}

		body, err := json.Marshal(webhookEnvelope{
			Event:       job.Event,
			WorkspaceID: job.WorkspaceID,
			OccurredAt:  time.Now().UTC(),
			Data:        job.Data,
		})
		if err != nil {
			return fmt.Errorf("marshal webhook envelope: %w", err)
		}

		for _, h := range hooks {
			if err := Send(ctx, client, WebhookConfig{
				URL:           h.URL,
				SigningSecret: h.SigningSecret,
			}, body); err != nil {
				return fmt.Errorf("webhook %s: %w", h.ID, err)
			}
		}
		return nil
	}
}
