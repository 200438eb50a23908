// ABOUTME: Integration tests for store/jobs.go — enqueue, claim, complete, fail, backoff.
package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/healertrix/taskmaster/internal/testutil"
)

func TestEnqueueAndClaimJob(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	payload := map[string]string{"key": "value"}
	if err := s.EnqueueJob(ctx, "test_queue", payload); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	job, err := s.ClaimJob(ctx, "test_queue", "worker-1")
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if job == nil {
		t.Fatal("ClaimJob returned nil for pending job")
	}
	if job.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", job.Attempts)
	}
	var decoded map[string]string
	if err := json.Unmarshal(job.Payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded["key"] != "value" {
		t.Errorf("payload = %v", decoded)
	}

	// The same job cannot be claimed twice while running.
	again, err := s.ClaimJob(ctx, "test_queue", "worker-2")
	if err != nil {
		t.Fatalf("ClaimJob(again): %v", err)
	}
	if again != nil {
		t.Error("running job should not be claimable")
	}

	if err := s.CompleteJob(ctx, job.ID); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
}

func TestClaimJob_QueueIsolation(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	if err := s.EnqueueJob(ctx, "queue_a", map[string]string{}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	job, err := s.ClaimJob(ctx, "queue_b", "worker-1")
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if job != nil {
		t.Error("claim on a different queue should return nil")
	}
}

func TestFailJob_BacksOffThenRetries(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	if err := s.EnqueueJob(ctx, "q", map[string]string{}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	job, _ := s.ClaimJob(ctx, "q", "worker-1")
	if job == nil {
		t.Fatal("expected a claimable job")
	}

	if err := s.FailJob(ctx, job.ID, "boom"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	// Back off pushes run_after into the future, so the job is not
	// immediately claimable.
	retry, err := s.ClaimJob(ctx, "q", "worker-1")
	if err != nil {
		t.Fatalf("ClaimJob(after fail): %v", err)
	}
	if retry != nil {
		t.Error("failed job should be backed off, not immediately claimable")
	}
}

func TestRecoverStaleJobs_NoFreshVictims(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	if err := s.EnqueueJob(ctx, "q", map[string]string{}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if _, err := s.ClaimJob(ctx, "q", "worker-1"); err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}

	// The job was locked moments ago; a 5 minute threshold must not touch it.
	n, err := s.RecoverStaleJobs(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("RecoverStaleJobs: %v", err)
	}
	if n != 0 {
		t.Errorf("recovered %d jobs, want 0", n)
	}
}
