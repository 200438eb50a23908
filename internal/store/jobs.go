// ABOUTME: Store methods for the job_queue table backing async work.
// ABOUTME: ClaimJob uses FOR UPDATE SKIP LOCKED so concurrent workers never collide.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Job is one claimed job_queue row.
type Job struct {
	ID          uuid.UUID
	Queue       string
	Payload     json.RawMessage
	Attempts    int
	MaxAttempts int
}

// EnqueueJob inserts a pending job on the named queue.
func (s *Store) EnqueueJob(ctx context.Context, queue string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO job_queue (queue, payload) VALUES ($1, $2)`,
		queue, raw,
	); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// ClaimJob atomically claims the oldest runnable job on queue for workerID.
// Returns (nil, nil) when no job is available.
func (s *Store) ClaimJob(ctx context.Context, queue, workerID string) (*Job, error) {
	j := &Job{}
	err := s.pool.QueryRow(ctx, `
		UPDATE job_queue SET
			status = 'running',
			attempts = attempts + 1,
			locked_by = $2,
			locked_at = now()
		WHERE id = (
			SELECT id FROM job_queue
			WHERE queue = $1 AND status = 'pending' AND run_after <= now()
			ORDER BY run_after
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, queue, payload, attempts, max_attempts`,
		queue, workerID,
	).Scan(&j.ID, &j.Queue, &j.Payload, &j.Attempts, &j.MaxAttempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return j, nil
}

// CompleteJob marks a running job succeeded.
func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE job_queue SET status = 'succeeded', locked_by = NULL, locked_at = NULL
		WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// FailJob records a handler failure. Jobs with attempts remaining go back to
// pending with exponential backoff; exhausted jobs go to dead.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, errMsg string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE job_queue SET
			status = CASE WHEN attempts >= max_attempts THEN 'dead' ELSE 'pending' END,
			run_after = now() + (interval '30 seconds' * power(2, attempts)),
			last_error = $2,
			locked_by = NULL,
			locked_at = NULL
		WHERE id = $1`, id, errMsg,
	); err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// RecoverStaleJobs resets jobs stuck in running longer than threshold back to
// pending and returns how many were reclaimed.
func (s *Store) RecoverStaleJobs(ctx context.Context, threshold time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE job_queue SET status = 'pending', locked_by = NULL, locked_at = NULL
		WHERE status = 'running' AND locked_at < now() - $1::interval`,
		threshold.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
