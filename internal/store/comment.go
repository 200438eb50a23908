// ABOUTME: Store methods for card comments and attachment metadata.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Comment is one comments row.
type Comment struct {
	ID        uuid.UUID
	CardID    uuid.UUID
	AuthorID  uuid.UUID
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attachment is one attachments row. Only metadata lives here.
type Attachment struct {
	ID        uuid.UUID
	CardID    uuid.UUID
	AuthorID  uuid.UUID
	FileName  string
	FileURL   string
	FileSize  int64
	CreatedAt time.Time
}

const commentColumns = `id, card_id, author_id, body, created_at, updated_at`

func scanComment(row pgx.Row) (*Comment, error) {
	c := &Comment{}
	err := row.Scan(&c.ID, &c.CardID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateComment inserts a comment on a card.
func (s *Store) CreateComment(ctx context.Context, cardID, authorID uuid.UUID, body string) (*Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx, `
		INSERT INTO comments (card_id, author_id, body) VALUES ($1, $2, $3)
		RETURNING `+commentColumns,
		cardID, authorID, body))
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

// GetCommentByID returns the comment, or (nil, nil) if it does not exist.
func (s *Store) GetCommentByID(ctx context.Context, id uuid.UUID) (*Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// ListCommentsForCard returns the card's comments, oldest first.
func (s *Store) ListCommentsForCard(ctx context.Context, cardID uuid.UUID) ([]Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+commentColumns+` FROM comments
		WHERE card_id = $1 ORDER BY created_at`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.CardID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCommentBody rewrites the comment body.
func (s *Store) UpdateCommentBody(ctx context.Context, id uuid.UUID, body string) (*Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx, `
		UPDATE comments SET body = $2, updated_at = now() WHERE id = $1
		RETURNING `+commentColumns,
		id, body))
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes the comment.
func (s *Store) DeleteComment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// CreateAttachment records attachment metadata on a card.
func (s *Store) CreateAttachment(ctx context.Context, cardID, authorID uuid.UUID, fileName, fileURL string, fileSize int64) (*Attachment, error) {
	a := &Attachment{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO attachments (card_id, author_id, file_name, file_url, file_size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, card_id, author_id, file_name, file_url, file_size, created_at`,
		cardID, authorID, fileName, fileURL, fileSize,
	).Scan(&a.ID, &a.CardID, &a.AuthorID, &a.FileName, &a.FileURL, &a.FileSize, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create attachment: %w", err)
	}
	return a, nil
}

// GetAttachmentByID returns the attachment, or (nil, nil) if it does not exist.
func (s *Store) GetAttachmentByID(ctx context.Context, id uuid.UUID) (*Attachment, error) {
	a := &Attachment{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, card_id, author_id, file_name, file_url, file_size, created_at
		FROM attachments WHERE id = $1`, id,
	).Scan(&a.ID, &a.CardID, &a.AuthorID, &a.FileName, &a.FileURL, &a.FileSize, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return a, nil
}

// ListAttachmentsForCard returns the card's attachments, oldest first.
func (s *Store) ListAttachmentsForCard(ctx context.Context, cardID uuid.UUID) ([]Attachment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, card_id, author_id, file_name, file_url, file_size, created_at
		FROM attachments WHERE card_id = $1 ORDER BY created_at`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.CardID, &a.AuthorID, &a.FileName, &a.FileURL, &a.FileSize, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAttachment removes the attachment metadata row.
func (s *Store) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}
