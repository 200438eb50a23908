// ABOUTME: Store methods for boards, board memberships, and stars.
// ABOUTME: ListBoardsForUser folds in workspace-visible boards alongside explicit ones.
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

// Board is one boards row.
type Board struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Color       string
	Visibility  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BoardMember is one board_members row joined with user identity.
type BoardMember struct {
	BoardID     uuid.UUID
	UserID      uuid.UUID
	Role        string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

const boardColumns = `id, workspace_id, owner_id, name, color, visibility, created_at, updated_at`

func scanBoard(row pgx.Row) (*Board, error) {
	b := &Board{}
	err := row.Scan(&b.ID, &b.WorkspaceID, &b.OwnerID, &b.Name, &b.Color, &b.Visibility, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CreateBoard inserts a board owned by ownerID.
func (s *Store) CreateBoard(ctx context.Context, workspaceID, ownerID uuid.UUID, name, color, visibility string) (*Board, error) {
	b, err := scanBoard(s.pool.QueryRow(ctx, `
		INSERT INTO boards (workspace_id, owner_id, name, color, visibility)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+boardColumns,
		workspaceID, ownerID, name, color, visibility))
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	return b, nil
}

// GetBoardByID returns the board, or (nil, nil) if it does not exist.
func (s *Store) GetBoardByID(ctx context.Context, id uuid.UUID) (*Board, error) {
	b, err := scanBoard(s.pool.QueryRow(ctx,
		`SELECT `+boardColumns+` FROM boards WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return b, nil
}

// UpdateBoardParams holds optional fields for a partial board update.
type UpdateBoardParams struct {
	Name       *string
	Color      *string
	Visibility *string
}

// UpdateBoard applies a partial update. Returns (nil, nil) if the board does
// not exist.
func (s *Store) UpdateBoard(ctx context.Context, id uuid.UUID, p UpdateBoardParams) (*Board, error) {
	b := psql.Update("boards").
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + boardColumns)
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
		return nil, fmt.Errorf("build board update: %w", err)
	}
	board, err := scanBoard(s.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return nil, fmt.Errorf("update board: %w", err)
	}
	return board, nil
}

// DeleteBoard removes the board; lists, cards, and the rest cascade.
func (s *Store) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}

// ListBoardsForUser returns the boards in the workspace visible to userID:
// boards they own, boards they are a member of, and workspace-visible boards.
func (s *Store) ListBoardsForUser(ctx context.Context, workspaceID, userID uuid.UUID) ([]Board, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT b.id, b.workspace_id, b.owner_id, b.name, b.color, b.visibility, b.created_at, b.updated_at
		FROM boards b
		LEFT JOIN board_members bm ON bm.board_id = b.id AND bm.user_id = $2
		WHERE b.workspace_id = $1
		  AND (b.owner_id = $2 OR bm.user_id IS NOT NULL
		       OR b.visibility IN ('workspace', 'public'))
		ORDER BY b.name`, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards for user: %w", err)
	}
	defer rows.Close()

	var out []Board
	for rows.Next() {
		var b Board
		if err := rows.Scan(&b.ID, &b.WorkspaceID, &b.OwnerID, &b.Name, &b.Color, &b.Visibility, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListBoardMembers returns all membership rows for the board with user
// identity joined in.
func (s *Store) ListBoardMembers(ctx context.Context, boardID uuid.UUID) ([]BoardMember, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.board_id, m.user_id, m.role, u.email, u.display_name, m.created_at
		FROM board_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.board_id = $1
		ORDER BY m.created_at`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list board members: %w", err)
	}
	defer rows.Close()

	var out []BoardMember
	for rows.Next() {
		var m BoardMember
		if err := rows.Scan(&m.BoardID, &m.UserID, &m.Role, &m.Email, &m.DisplayName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan board member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddBoardMember adds userID to the board with the given role.
func (s *Store) AddBoardMember(ctx context.Context, boardID, userID uuid.UUID, role string) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO board_members (board_id, user_id, role) VALUES ($1, $2, $3)`,
		boardID, userID, role,
	); err != nil {
		return fmt.Errorf("add board member: %w", err)
	}
	return nil
}

// RemoveBoardMember removes userID from the board.
func (s *Store) RemoveBoardMember(ctx context.Context, boardID, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM board_members WHERE board_id = $1 AND user_id = $2`,
		boardID, userID,
	); err != nil {
		return fmt.Errorf("remove board member: %w", err)
	}
	return nil
}

// StarBoard records userID starring the board; already-starred is a no-op.
func (s *Store) StarBoard(ctx context.Context, boardID, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO board_stars (board_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		boardID, userID,
	); err != nil {
		return fmt.Errorf("star board: %w", err)
	}
	return nil
}

// UnstarBoard removes userID's star from the board.
func (s *Store) UnstarBoard(ctx context.Context, boardID, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM board_stars WHERE board_id = $1 AND user_id = $2`,
		boardID, userID,
	); err != nil {
		return fmt.Errorf("unstar board: %w", err)
	}
	return nil
}
