// ABOUTME: Store methods for cards and their satellites: members, labels, checklists.
// ABOUTME: GetBoardIDForCard walks card → list → board for authorization checks.
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

// Card is one cards row.
type Card struct {
	ID          uuid.UUID
	ListID      uuid.UUID
	CreatedBy   uuid.UUID
	Title       string
	Description string
	Position    float64
	DueAt       *time.Time
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Label is one labels row.
type Label struct {
	ID      uuid.UUID
	BoardID uuid.UUID
	Name    string
	Color   string
}

// Checklist is one checklists row with its items.
type Checklist struct {
	ID        uuid.UUID
	CardID    uuid.UUID
	Name      string
	Position  float64
	CreatedAt time.Time
	Items     []ChecklistItem
}

// ChecklistItem is one checklist_items row.
type ChecklistItem struct {
	ID          uuid.UUID
	ChecklistID uuid.UUID
	Title       string
	Done        bool
	Position    float64
	CreatedAt   time.Time
}

const cardColumns = `id, list_id, created_by, title, description, position, due_at, archived, created_at, updated_at`

func scanCard(row pgx.Row) (*Card, error) {
	c := &Card{}
	err := row.Scan(&c.ID, &c.ListID, &c.CreatedBy, &c.Title, &c.Description,
		&c.Position, &c.DueAt, &c.Archived, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCard inserts a card into a list.
func (s *Store) CreateCard(ctx context.Context, listID, createdBy uuid.UUID, title string, position float64) (*Card, error) {
	c, err := scanCard(s.pool.QueryRow(ctx, `
		INSERT INTO cards (list_id, created_by, title, position)
		VALUES ($1, $2, $3, $4)
		RETURNING `+cardColumns,
		listID, createdBy, title, position))
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return c, nil
}

// GetCardByID returns the card, or (nil, nil) if it does not exist.
func (s *Store) GetCardByID(ctx context.Context, id uuid.UUID) (*Card, error) {
	c, err := scanCard(s.pool.QueryRow(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

// GetBoardIDForCard resolves the board a card belongs to, or (nil, nil) if
// the card does not exist.
func (s *Store) GetBoardIDForCard(ctx context.Context, cardID uuid.UUID) (*uuid.UUID, error) {
	var boardID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT l.board_id FROM cards c JOIN lists l ON l.id = c.list_id
		WHERE c.id = $1`, cardID,
	).Scan(&boardID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("board id for card: %w", err)
	}
	return &boardID, nil
}

// ListCardsForBoard returns all non-archived cards on the board, grouped by
// list position then card position.
func (s *Store) ListCardsForBoard(ctx context.Context, boardID uuid.UUID) ([]Card, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.list_id, c.created_by, c.title, c.description, c.position,
		       c.due_at, c.archived, c.created_at, c.updated_at
		FROM cards c
		JOIN lists l ON l.id = c.list_id
		WHERE l.board_id = $1 AND NOT c.archived
		ORDER BY l.position, c.position`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var out []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.ListID, &c.CreatedBy, &c.Title, &c.Description,
			&c.Position, &c.DueAt, &c.Archived, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCardParams holds optional fields for a partial card update.
type UpdateCardParams struct {
	Title       *string
	Description *string
	DueAt       *time.Time
	ClearDueAt  bool
	Archived    *bool
}

// UpdateCard applies a partial update. Returns (nil, nil) if the card does
// not exist.
func (s *Store) UpdateCard(ctx context.Context, id uuid.UUID, p UpdateCardParams) (*Card, error) {
	b := psql.Update("cards").
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + cardColumns)
	if p.Title != nil {
		b = b.Set("title", *p.Title)
	}
	if p.Description != nil {
		b = b.Set("description", *p.Description)
	}
	if p.ClearDueAt {
		b = b.Set("due_at", nil)
	} else if p.DueAt != nil {
		b = b.Set("due_at", *p.DueAt)
	}
	if p.Archived != nil {
		b = b.Set("archived", *p.Archived)
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build card update: %w", err)
	}
	c, err := scanCard(s.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	return c, nil
}

// MoveCard moves the card to a list at a position. The list must belong to the
// same board; the caller verifies that before mutating.
func (s *Store) MoveCard(ctx context.Context, id, listID uuid.UUID, position float64) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE cards SET list_id = $2, position = $3, updated_at = now() WHERE id = $1`,
		id, listID, position,
	); err != nil {
		return fmt.Errorf("move card: %w", err)
	}
	return nil
}

// DeleteCard removes the card; members, labels, checklists, comments cascade.
func (s *Store) DeleteCard(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

// AddCardMember assigns userID to the card; already-assigned is a no-op.
func (s *Store) AddCardMember(ctx context.Context, cardID, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO card_members (card_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		cardID, userID,
	); err != nil {
		return fmt.Errorf("add card member: %w", err)
	}
	return nil
}

// RemoveCardMember unassigns userID from the card.
func (s *Store) RemoveCardMember(ctx context.Context, cardID, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM card_members WHERE card_id = $1 AND user_id = $2`,
		cardID, userID,
	); err != nil {
		return fmt.Errorf("remove card member: %w", err)
	}
	return nil
}

// CreateLabel inserts a board-scoped label.
func (s *Store) CreateLabel(ctx context.Context, boardID uuid.UUID, name, color string) (*Label, error) {
	l := &Label{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO labels (board_id, name, color) VALUES ($1, $2, $3)
		RETURNING id, board_id, name, color`,
		boardID, name, color,
	).Scan(&l.ID, &l.BoardID, &l.Name, &l.Color)
	if err != nil {
		return nil, fmt.Errorf("create label: %w", err)
	}
	return l, nil
}

// GetLabelByID returns the label, or (nil, nil) if it does not exist.
func (s *Store) GetLabelByID(ctx context.Context, id uuid.UUID) (*Label, error) {
	l := &Label{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, board_id, name, color FROM labels WHERE id = $1`, id,
	).Scan(&l.ID, &l.BoardID, &l.Name, &l.Color)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get label: %w", err)
	}
	return l, nil
}

// ListLabelsForBoard returns the board's labels ordered by name.
func (s *Store) ListLabelsForBoard(ctx context.Context, boardID uuid.UUID) ([]Label, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, board_id, name, color FROM labels
		WHERE board_id = $1 ORDER BY name`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	var out []Label
	for rows.Next() {
		var l Label
		if err := rows.Scan(&l.ID, &l.BoardID, &l.Name, &l.Color); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AssignLabel attaches the label to the card; duplicates are a no-op.
func (s *Store) AssignLabel(ctx context.Context, cardID, labelID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO card_labels (card_id, label_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		cardID, labelID,
	); err != nil {
		return fmt.Errorf("assign label: %w", err)
	}
	return nil
}

// UnassignLabel detaches the label from the card.
func (s *Store) UnassignLabel(ctx context.Context, cardID, labelID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM card_labels WHERE card_id = $1 AND label_id = $2`,
		cardID, labelID,
	); err != nil {
		return fmt.Errorf("unassign label: %w", err)
	}
	return nil
}

// CreateChecklist inserts a checklist on a card.
func (s *Store) CreateChecklist(ctx context.Context, cardID uuid.UUID, name string, position float64) (*Checklist, error) {
	cl := &Checklist{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO checklists (card_id, name, position) VALUES ($1, $2, $3)
		RETURNING id, card_id, name, position, created_at`,
		cardID, name, position,
	).Scan(&cl.ID, &cl.CardID, &cl.Name, &cl.Position, &cl.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create checklist: %w", err)
	}
	return cl, nil
}

// AddChecklistItem appends an item to a checklist.
func (s *Store) AddChecklistItem(ctx context.Context, checklistID uuid.UUID, title string, position float64) (*ChecklistItem, error) {
	it := &ChecklistItem{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO checklist_items (checklist_id, title, position) VALUES ($1, $2, $3)
		RETURNING id, checklist_id, title, done, position, created_at`,
		checklistID, title, position,
	).Scan(&it.ID, &it.ChecklistID, &it.Title, &it.Done, &it.Position, &it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add checklist item: %w", err)
	}
	return it, nil
}

// SetChecklistItemDone toggles an item's done flag.
func (s *Store) SetChecklistItemDone(ctx context.Context, itemID uuid.UUID, done bool) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE checklist_items SET done = $2 WHERE id = $1`, itemID, done,
	); err != nil {
		return fmt.Errorf("set checklist item done: %w", err)
	}
	return nil
}

// ListChecklistsForCard returns the card's checklists with items, in position order.
func (s *Store) ListChecklistsForCard(ctx context.Context, cardID uuid.UUID) ([]Checklist, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, card_id, name, position, created_at
		FROM checklists WHERE card_id = $1 ORDER BY position`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list checklists: %w", err)
	}
	defer rows.Close()

	var out []Checklist
	for rows.Next() {
		var cl Checklist
		if err := rows.Scan(&cl.ID, &cl.CardID, &cl.Name, &cl.Position, &cl.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checklist: %w", err)
		}
		out = append(out, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		itemRows, err := s.pool.Query(ctx, `
			SELECT id, checklist_id, title, done, position, created_at
			FROM checklist_items WHERE checklist_id = $1 ORDER BY position`, out[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list checklist items: %w", err)
		}
		for itemRows.Next() {
			var it ChecklistItem
			if err := itemRows.Scan(&it.ID, &it.ChecklistID, &it.Title, &it.Done, &it.Position, &it.CreatedAt); err != nil {
				itemRows.Close()
				return nil, fmt.Errorf("scan checklist item: %w", err)
			}
			out[i].Items = append(out[i].Items, it)
		}
		itemRows.Close()
		if err := itemRows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
