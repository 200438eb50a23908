// ABOUTME: Store methods for workspace invitation management.
// ABOUTME: AcceptInvitation atomically adds the member and marks the invitation used.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Invitation is one workspace_invitations row.
type Invitation struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Email       string
	Role        string
	Token       string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	ExpiresAt   time.Time
	AcceptedAt  *time.Time
}

const invitationColumns = `id, workspace_id, email, role, token, created_by, created_at, expires_at, accepted_at`

func scanInvitation(row pgx.Row) (*Invitation, error) {
	inv := &Invitation{}
	err := row.Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.Role, &inv.Token,
		&inv.CreatedBy, &inv.CreatedAt, &inv.ExpiresAt, &inv.AcceptedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateInvitation inserts an invitation record and returns it.
func (s *Store) CreateInvitation(ctx context.Context, workspaceID uuid.UUID, email, role, token string, createdBy uuid.UUID, expiresAt time.Time) (*Invitation, error) {
	inv, err := scanInvitation(s.pool.QueryRow(ctx, `
		INSERT INTO workspace_invitations (workspace_id, email, role, token, created_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+invitationColumns,
		workspaceID, email, role, token, createdBy, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	return inv, nil
}

// GetInvitationByID returns the invitation, or (nil, nil) if not found.
func (s *Store) GetInvitationByID(ctx context.Context, id uuid.UUID) (*Invitation, error) {
	inv, err := scanInvitation(s.pool.QueryRow(ctx, `
		SELECT `+invitationColumns+` FROM workspace_invitations WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// GetInvitationByToken returns the invitation for the given token, or
// (nil, nil) if not found. Callers check expiry and accepted_at.
func (s *Store) GetInvitationByToken(ctx context.Context, token string) (*Invitation, error) {
	inv, err := scanInvitation(s.pool.QueryRow(ctx, `
		SELECT `+invitationColumns+` FROM workspace_invitations WHERE token = $1`, token))
	if err != nil {
		return nil, fmt.Errorf("get invitation by token: %w", err)
	}
	return inv, nil
}

// ListInvitations returns all pending, unexpired invitations for a workspace.
func (s *Store) ListInvitations(ctx context.Context, workspaceID uuid.UUID) ([]Invitation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+invitationColumns+`
		FROM workspace_invitations
		WHERE workspace_id = $1 AND accepted_at IS NULL AND expires_at > now()
		ORDER BY created_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var out []Invitation
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.Role, &inv.Token,
			&inv.CreatedBy, &inv.CreatedAt, &inv.ExpiresAt, &inv.AcceptedAt); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// CancelInvitation deletes an invitation by ID within a workspace.
func (s *Store) CancelInvitation(ctx context.Context, workspaceID, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM workspace_invitations WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	); err != nil {
		return fmt.Errorf("cancel invitation: %w", err)
	}
	return nil
}

// AcceptInvitation atomically creates the membership row and marks the
// invitation accepted.
func (s *Store) AcceptInvitation(ctx context.Context, inv *Invitation, userID uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO workspace_members (workspace_id, user_id, role)
			VALUES ($1, $2, $3)`,
			inv.WorkspaceID, userID, inv.Role,
		); err != nil {
			return fmt.Errorf("insert member from invitation: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE workspace_invitations SET accepted_at = now() WHERE id = $1`,
			inv.ID,
		); err != nil {
			return fmt.Errorf("mark invitation accepted: %w", err)
		}
		return nil
	})
}
