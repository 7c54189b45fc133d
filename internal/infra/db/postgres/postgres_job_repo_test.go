//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
)

func newTestJob(ownerID, batchID string) *model.Job {
	j := model.NewJob(uuid.NewString(), ownerID, model.GenerationRequest{
		Keyword:     "email marketing",
		TargetWords: 800,
		Tone:        "professional",
	})
	j.BatchID = batchID
	return j
}

func TestJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewJobRepo(testPool, NewTxManager(testPool))

	t.Run("save and find round trip", func(t *testing.T) {
		cleanup(t)
		job := newTestJob("owner-1", "")
		if err := repo.Save(ctx, nil, job); err != nil {
			t.Fatalf("Save: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, job.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.Status != model.JobStatusPending || got.Request.Keyword != "email marketing" {
			t.Fatalf("round trip mismatch: %+v", got)
		}
		if got.Result != nil || got.Error != nil {
			t.Fatal("fresh job must not carry result or error")
		}
	})

	t.Run("upsert keeps result and error", func(t *testing.T) {
		cleanup(t)
		job := newTestJob("owner-1", "")
		if err := repo.Save(ctx, nil, job); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := job.MarkRunning(); err != nil {
			t.Fatalf("MarkRunning: %v", err)
		}
		if err := job.Complete(model.GenerationResult{
			Content: "article text", WordCount: 2, QualityScore: 85,
			Links: []model.ReferenceLink{{URL: "https://nature.com/a", Title: "A"}},
		}); err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if err := repo.Save(ctx, nil, job); err != nil {
			t.Fatalf("Save update: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, job.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.Status != model.JobStatusCompleted || got.Result == nil {
			t.Fatalf("updated job = %+v", got)
		}
		if got.Result.QualityScore != 85 || len(got.Result.Links) != 1 {
			t.Fatalf("result mismatch: %+v", got.Result)
		}
	})

	t.Run("find missing job", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByID(ctx, nil, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("claim takes oldest pending batch item", func(t *testing.T) {
		cleanup(t)
		older := newTestJob("owner-1", "batch-1")
		older.CreatedAt = time.Now().Add(-time.Minute)
		newer := newTestJob("owner-1", "batch-1")
		standalone := newTestJob("owner-1", "")
		for _, j := range []*model.Job{older, newer, standalone} {
			if err := repo.Save(ctx, nil, j); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}

		claimed, err := repo.ClaimPendingBatchJob(ctx)
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}
		if claimed.ID != older.ID {
			t.Fatalf("claimed %s, want the older item %s", claimed.ID, older.ID)
		}
		if claimed.Status != model.JobStatusRunning {
			t.Fatalf("claimed status = %s, want running", claimed.Status)
		}

		second, err := repo.ClaimPendingBatchJob(ctx)
		if err != nil {
			t.Fatalf("second claim: %v", err)
		}
		if second.ID != newer.ID {
			t.Fatalf("second claim = %s, want %s", second.ID, newer.ID)
		}

		// standalone jobs are never claimed
		if _, err := repo.ClaimPendingBatchJob(ctx); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("third claim err = %v, want ErrNotFound", err)
		}
	})

	t.Run("list by batch", func(t *testing.T) {
		cleanup(t)
		for i := 0; i < 3; i++ {
			j := newTestJob("owner-1", "batch-1")
			j.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
			if err := repo.Save(ctx, nil, j); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}
		if err := repo.Save(ctx, nil, newTestJob("owner-1", "batch-2")); err != nil {
			t.Fatalf("Save: %v", err)
		}

		jobs, err := repo.ListByBatch(ctx, nil, "batch-1")
		if err != nil {
			t.Fatalf("ListByBatch: %v", err)
		}
		if len(jobs) != 3 {
			t.Fatalf("got %d jobs, want 3", len(jobs))
		}
		for i := 1; i < len(jobs); i++ {
			if jobs[i].CreatedAt.Before(jobs[i-1].CreatedAt) {
				t.Fatal("jobs not in creation order")
			}
		}
	})

	t.Run("list stale running", func(t *testing.T) {
		cleanup(t)
		stale := newTestJob("owner-1", "batch-1")
		_ = stale.MarkRunning()
		stale.UpdatedAt = time.Now().Add(-10 * time.Minute)
		fresh := newTestJob("owner-1", "batch-1")
		_ = fresh.MarkRunning()
		for _, j := range []*model.Job{stale, fresh} {
			if err := repo.Save(ctx, nil, j); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}

		got, err := repo.ListStaleRunning(ctx, time.Now().Add(-5*time.Minute))
		if err != nil {
			t.Fatalf("ListStaleRunning: %v", err)
		}
		if len(got) != 1 || got[0].ID != stale.ID {
			t.Fatalf("stale list = %v, want only the stale job", got)
		}
	})
}
