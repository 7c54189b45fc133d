package repository

import (
	"context"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
)

type JobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.Job) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Job, error)
	ListByBatch(ctx context.Context, tx Tx, batchID string) ([]*model.Job, error)

	// ClaimPendingBatchJob atomically fetches the oldest pending batch
	// item and marks it running so no other worker picks it up.
	// Standalone jobs are never claimed here; they run on their own
	// goroutine. Returns domain.ErrNotFound when nothing is pending.
	ClaimPendingBatchJob(ctx context.Context) (*model.Job, error)

	// ListStaleRunning returns running jobs whose last update is older
	// than the given cutoff (worker died mid-run).
	ListStaleRunning(ctx context.Context, olderThan time.Time) ([]*model.Job, error)
}
