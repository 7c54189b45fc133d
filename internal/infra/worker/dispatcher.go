package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/repository"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/usecase"
)

// Dispatcher feeds the worker pool from persisted pending batch items.
// Because items are claimed from storage rather than an in-memory
// queue, pending work survives a restart and is simply picked up again.
type Dispatcher struct {
	jobs    repository.JobRepository
	runner  usecase.GenerationRunner
	batches usecase.BatchUseCase
	poll    time.Duration
	log     *zerolog.Logger
}

func NewDispatcher(
	jobs repository.JobRepository,
	runner usecase.GenerationRunner,
	batches usecase.BatchUseCase,
	poll time.Duration,
	log *zerolog.Logger,
) *Dispatcher {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &Dispatcher{jobs: jobs, runner: runner, batches: batches, poll: poll, log: log}
}

// Start runs the claim loop until ctx is cancelled.
// This should be run in a goroutine.
func (d *Dispatcher) Start(ctx context.Context, pool *Pool) {
	d.log.Info().Dur("poll", d.poll).Msg("batch dispatcher started")
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("batch dispatcher stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				d.processOne(ctx)
				return nil
			})
		}
	}
}

func (d *Dispatcher) processOne(ctx context.Context) {
	job, err := d.jobs.ClaimPendingBatchJob(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			d.log.Error().Err(err).Msg("failed to claim batch job")
		}
		return
	}

	d.log.Info().Str("job_id", job.ID).Str("batch_id", job.BatchID).Msg("processing batch item")
	d.runner.Run(ctx, job.ID)

	// reload: the runner finalized the job one way or another
	done, err := d.jobs.FindByID(ctx, nil, job.ID)
	if err != nil {
		d.log.Error().Err(err).Str("job_id", job.ID).Msg("could not reload finished job")
		return
	}
	d.batches.OnJobFinished(ctx, done)
}
