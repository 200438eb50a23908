// ABOUTME: Store methods for workspaces and workspace memberships.
// ABOUTME: CountWorkspaceOwners backs the last-owner protection rule.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Workspace is one workspaces row.
type Workspace struct {
	ID         uuid.UUID
	Name       string
	Color      string
	OwnerID    uuid.UUID
	Visibility string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// WorkspaceMember is one workspace_members row joined with user identity.
type WorkspaceMember struct {
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	Role        string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// CreateWorkspaceWithOwner atomically creates a workspace and an owner-role
// membership row for ownerID.
func (s *Store) CreateWorkspaceWithOwner(ctx context.Context, name, color, visibility string, ownerID uuid.UUID) (*Workspace, error) {
	ws := &Workspace{}
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO workspaces (name, color, owner_id, visibility)
			VALUES ($1, $2, $3, $4)
			RETURNING id, name, color, owner_id, visibility, created_at, updated_at`,
			name, color, ownerID, visibility,
		).Scan(&ws.ID, &ws.Name, &ws.Color, &ws.OwnerID, &ws.Visibility, &ws.CreatedAt, &ws.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert workspace: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO workspace_members (workspace_id, user_id, role)
			VALUES ($1, $2, 'owner')`,
			ws.ID, ownerID,
		); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// GetWorkspaceByID returns the workspace, or (nil, nil) if it does not exist.
func (s *Store) GetWorkspaceByID(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	ws := &Workspace{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, color, owner_id, visibility, created_at, updated_at
		FROM workspaces WHERE id = $1`, id,
	).Scan(&ws.ID, &ws.Name, &ws.Color, &ws.OwnerID, &ws.Visibility, &ws.CreatedAt, &ws.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return ws, nil
}

// UpdateWorkspaceParams holds optional fields for a partial workspace update.
// Nil fields are left unchanged.
type UpdateWorkspaceParams struct {
	Name       *string
	Color      *string
	Visibility *string
}

// UpdateWorkspace applies a partial update. Returns (nil, nil) if the
// workspace does not exist.
func (s *Store) UpdateWorkspace(ctx context.Context, id uuid.UUID, p UpdateWorkspaceParams) (*Workspace, error) {
	b := psql.Update("workspaces").
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, name, color, owner_id, visibility, created_at, updated_at")
	if p.Name != nil {
		b = b.Set("name", *p.Name)
	}
	if p.Color != nil {
		b = b.Set("color", *p.Color)
	}
	if p.Visibility != nil {
		b = b.Set("visibility", *p.Visibility)
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build workspace update: %w", err)
	}

	ws := &Workspace{}
	err = s.pool.QueryRow(ctx, sqlStr, args...).
		Scan(&ws.ID, &ws.Name, &ws.Color, &ws.OwnerID, &ws.Visibility, &ws.CreatedAt, &ws.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update workspace: %w", err)
	}
	return ws, nil
}

// DeleteWorkspace removes the workspace; boards, memberships, settings, and
// invitations cascade in the schema.
func (s *Store) DeleteWorkspace(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	return nil
}

// ListWorkspacesForUser returns all workspaces the user owns or belongs to,
// ordered by name.
func (s *Store) ListWorkspacesForUser(ctx context.Context, userID uuid.UUID) ([]Workspace, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT w.id, w.name, w.color, w.owner_id, w.visibility, w.created_at, w.updated_at
		FROM workspaces w
		LEFT JOIN workspace_members m ON m.workspace_id = w.id
		WHERE w.owner_id = $1 OR m.user_id = $1
		ORDER BY w.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces for user: %w", err)
	}
	defer rows.Close()

	var out []Workspace
	for rows.Next() {
		var ws Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Color, &ws.OwnerID, &ws.Visibility, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// ListWorkspaceMembers returns all membership rows for the workspace with user
// identity joined in, ordered by join time.
func (s *Store) ListWorkspaceMembers(ctx context.Context, workspaceID uuid.UUID) ([]WorkspaceMember, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.workspace_id, m.user_id, m.role, u.email, u.display_name, m.created_at
		FROM workspace_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		ORDER BY m.created_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list workspace members: %w", err)
	}
	defer rows.Close()

	var out []WorkspaceMember
	for rows.Next() {
		var m WorkspaceMember
		if err := rows.Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.Email, &m.DisplayName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetWorkspaceMemberRole returns the stored role of userID in the workspace,
// or (nil, nil) if there is no membership row.
func (s *Store) GetWorkspaceMemberRole(ctx context.Context, workspaceID, userID uuid.UUID) (*string, error) {
	var role string
	err := s.pool.QueryRow(ctx, `
		SELECT role FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID,
	).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace member role: %w", err)
	}
	return &role, nil
}

// AddWorkspaceMember adds userID to the workspace with the given role.
// A duplicate insert surfaces the unique-constraint error to the caller.
func (s *Store) AddWorkspaceMember(ctx context.Context, workspaceID, userID uuid.UUID, role string) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role)
		VALUES ($1, $2, $3)`,
		workspaceID, userID, role,
	); err != nil {
		return fmt.Errorf("add workspace member: %w", err)
	}
	return nil
}

// UpdateWorkspaceMemberRole changes the stored role of userID in the workspace.
func (s *Store) UpdateWorkspaceMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE workspace_members SET role = $3 WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID, role,
	); err != nil {
		return fmt.Errorf("update workspace member role: %w", err)
	}
	return nil
}

// RemoveWorkspaceMember removes userID from the workspace.
func (s *Store) RemoveWorkspaceMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID,
	); err != nil {
		return fmt.Errorf("remove workspace member: %w", err)
	}
	return nil
}

// CountWorkspaceOwners returns the number of owner-equivalent principals in
// the workspace: the owner column plus any explicit owner-role membership
// rows, counted once per distinct user.
func (s *Store) CountWorkspaceOwners(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT owner_id AS user_id FROM workspaces WHERE id = $1
			UNION
			SELECT user_id FROM workspace_members WHERE workspace_id = $1 AND role = 'owner'
		) owners`, workspaceID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count workspace owners: %w", err)
	}
	return n, nil
}
