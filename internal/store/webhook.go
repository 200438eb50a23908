// ABOUTME: Store methods for workspace webhook endpoints.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Webhook is one webhooks row.
type Webhook struct {
	ID            uuid.UUID
	WorkspaceID   uuid.UUID
	URL           string
	SigningSecret string
	Active        bool
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
}

const webhookColumns = `id, workspace_id, url, signing_secret, active, created_by, created_at`

func scanWebhook(row pgx.Row) (*Webhook, error) {
	w := &Webhook{}
	err := row.Scan(&w.ID, &w.WorkspaceID, &w.URL, &w.SigningSecret, &w.Active, &w.CreatedBy, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// CreateWebhook registers a webhook endpoint for a workspace.
func (s *Store) CreateWebhook(ctx context.Context, workspaceID uuid.UUID, url, signingSecret string, createdBy uuid.UUID) (*Webhook, error) {
	w, err := scanWebhook(s.pool.QueryRow(ctx, `
		INSERT INTO webhooks (workspace_id, url, signing_secret, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+webhookColumns,
		workspaceID, url, signingSecret, createdBy))
	if err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	return w, nil
}

// ListWebhooks returns all webhooks for the workspace.
func (s *Store) ListWebhooks(ctx context.Context, workspaceID uuid.UUID) ([]Webhook, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+webhookColumns+` FROM webhooks
		WHERE workspace_id = $1 ORDER BY created_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var out []Webhook
	for rows.Next() {
		var w Webhook
		if err := rows.Scan(&w.ID, &w.WorkspaceID, &w.URL, &w.SigningSecret, &w.Active, &w.CreatedBy, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListActiveWebhooks returns the workspace's active webhooks only.
func (s *Store) ListActiveWebhooks(ctx context.Context, workspaceID uuid.UUID) ([]Webhook, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+webhookColumns+` FROM webhooks
		WHERE workspace_id = $1 AND active ORDER BY created_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list active webhooks: %w", err)
	}
	defer rows.Close()

	var out []Webhook
	for rows.Next() {
		var w Webhook
		if err := rows.Scan(&w.ID, &w.WorkspaceID, &w.URL, &w.SigningSecret, &w.Active, &w.CreatedBy, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWebhook removes a webhook by ID within a workspace.
func (s *Store) DeleteWebhook(ctx context.Context, workspaceID, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM webhooks WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}
