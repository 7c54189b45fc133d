package usecase

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/repository"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/metrics"
)

// Compile-time check
var _ BatchUseCase = (*batchUC)(nil)

// BatchUseCase fans a bulk submission out into jobs and tracks
// aggregate completion. One item's failure never blocks or corrupts
// its siblings.
type BatchUseCase interface {
	CreateBatch(ctx context.Context, ownerID string, items []model.GenerationRequest, name string) (*model.Batch, error)
	GetBatch(ctx context.Context, id string) (*model.Batch, error)
	ListBatches(ctx context.Context, ownerID string) ([]*model.Batch, error)

	// OnJobFinished recomputes the owning batch's derived status from
	// its jobs and emits progress/completed events. Called after every
	// member job reaches a terminal state.
	OnJobFinished(ctx context.Context, job *model.Job)
}

type batchUC struct {
	batches  repository.BatchRepository
	jobsRepo repository.JobRepository
	jobs     JobUseCase
	events   *Broadcaster
	maxItems int
	log      *zerolog.Logger
}

func NewBatchUseCase(
	batches repository.BatchRepository,
	jobsRepo repository.JobRepository,
	jobs JobUseCase,
	events *Broadcaster,
	maxItems int,
	log *zerolog.Logger,
) *batchUC {
	if maxItems <= 0 {
		maxItems = 50
	}
	return &batchUC{
		batches:  batches,
		jobsRepo: jobsRepo,
		jobs:     jobs,
		events:   events,
		maxItems: maxItems,
		log:      log,
	}
}

func (b *batchUC) CreateBatch(ctx context.Context, ownerID string, items []model.GenerationRequest, name string) (*model.Batch, error) {
	if ownerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if len(items) > b.maxItems {
		return nil, domain.ErrBatchTooLarge
	}

	// ULIDs sort by creation time, which serves most-recent-first listing.
	batchID := ulid.Make().String()

	// the batch row must exist before any member job becomes claimable
	batch := model.NewBatch(batchID, ownerID, name, nil)
	batch.TotalItems = len(items)
	if err := b.batches.Save(ctx, nil, batch); err != nil {
		return nil, err
	}

	jobIDs := make([]string, 0, len(items))
	for _, item := range items {
		job, err := b.jobs.CreateForBatch(ctx, ownerID, batchID, item)
		if err != nil {
			return nil, err
		}
		jobIDs = append(jobIDs, job.ID)
	}

	batch.JobIDs = jobIDs
	if err := b.batches.Save(ctx, nil, batch); err != nil {
		return nil, err
	}
	metrics.IncBatchCreated(len(items))
	b.log.Info().Str("batch_id", batchID).Str("owner_id", ownerID).
		Int("items", len(items)).Msg("batch created")
	return batch, nil
}

func (b *batchUC) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	return b.batches.FindByID(ctx, nil, id)
}

func (b *batchUC) ListBatches(ctx context.Context, ownerID string) ([]*model.Batch, error) {
	return b.batches.ListByOwner(ctx, nil, ownerID)
}

func (b *batchUC) OnJobFinished(ctx context.Context, job *model.Job) {
	if job == nil || job.BatchID == "" {
		return
	}
	batch, err := b.batches.FindByID(ctx, nil, job.BatchID)
	if err != nil {
		b.log.Error().Err(err).Str("batch_id", job.BatchID).Msg("batch not found on job finish")
		return
	}
	jobs, err := b.jobsRepo.ListByBatch(ctx, nil, batch.ID)
	if err != nil {
		b.log.Error().Err(err).Str("batch_id", batch.ID).Msg("could not list batch jobs")
		return
	}

	// status is always recomputed from the jobs, never mutated on its own
	status, completed, failed := model.DeriveBatchStatus(jobs)
	batch.ApplyDerived(status, completed, failed)
	if err := b.batches.Save(ctx, nil, batch); err != nil {
		b.log.Error().Err(err).Str("batch_id", batch.ID).Msg("could not save batch counters")
		return
	}

	terminal := 0
	for _, j := range jobs {
		if j.Terminal() {
			terminal++
		}
	}
	progress := 0
	if batch.TotalItems > 0 {
		progress = terminal * 100 / batch.TotalItems
	}
	b.publish(EventBatchProgress, batch, progress)
	if batch.Terminal() {
		metrics.IncBatchFinished(string(batch.Status))
		b.publish(EventBatchCompleted, batch, progress)
		b.log.Info().Str("batch_id", batch.ID).Str("status", string(batch.Status)).
			Int("completed", completed).Int("failed", failed).Msg("batch finished")
	}
}

func (b *batchUC) publish(t EventType, batch *model.Batch, progress int) {
	if b.events == nil {
		return
	}
	b.events.Publish(Event{
		Type:     t,
		BatchID:  batch.ID,
		OwnerID:  batch.OwnerID,
		Progress: progress,
		Status:   string(batch.Status),
		At:       time.Now(),
	})
}
