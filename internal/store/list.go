// ABOUTME: Store methods for lists: CRUD, reordering, archiving.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// List is one lists row.
type List struct {
	ID        uuid.UUID
	BoardID   uuid.UUID
	Name      string
	Position  float64
	Archived  bool
	CreatedAt time.Time
}

// CreateList inserts a list at the given position.
func (s *Store) CreateList(ctx context.Context, boardID uuid.UUID, name string, position float64) (*List, error) {
	l := &List{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO lists (board_id, name, position)
		VALUES ($1, $2, $3)
		RETURNING id, board_id, name, position, archived, created_at`,
		boardID, name, position,
	).Scan(&l.ID, &l.BoardID, &l.Name, &l.Position, &l.Archived, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}
	return l, nil
}

// GetListByID returns the list, or (nil, nil) if it does not exist.
func (s *Store) GetListByID(ctx context.Context, id uuid.UUID) (*List, error) {
	l := &List{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, board_id, name, position, archived, created_at
		FROM lists WHERE id = $1`, id,
	).Scan(&l.ID, &l.BoardID, &l.Name, &l.Position, &l.Archived, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	return l, nil
}

// ListListsForBoard returns the board's non-archived lists in position order.
func (s *Store) ListListsForBoard(ctx context.Context, boardID uuid.UUID) ([]List, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, board_id, name, position, archived, created_at
		FROM lists WHERE board_id = $1 AND NOT archived
		ORDER BY position`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	var out []List
	for rows.Next() {
		var l List
		if err := rows.Scan(&l.ID, &l.BoardID, &l.Name, &l.Position, &l.Archived, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// RenameList updates the list name.
func (s *Store) RenameList(ctx context.Context, id uuid.UUID, name string) error {
	if _, err := s.pool.Exec(ctx, `UPDATE lists SET name = $2 WHERE id = $1`, id, name); err != nil {
		return fmt.Errorf("rename list: %w", err)
	}
	return nil
}

// MoveList updates the list position.
func (s *Store) MoveList(ctx context.Context, id uuid.UUID, position float64) error {
	if _, err := s.pool.Exec(ctx, `UPDATE lists SET position = $2 WHERE id = $1`, id, position); err != nil {
		return fmt.Errorf("move list: %w", err)
	}
	return nil
}

// SetListArchived archives or restores the list.
func (s *Store) SetListArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	if _, err := s.pool.Exec(ctx, `UPDATE lists SET archived = $2 WHERE id = $1`, id, archived); err != nil {
		return fmt.Errorf("set list archived: %w", err)
	}
	return nil
}
