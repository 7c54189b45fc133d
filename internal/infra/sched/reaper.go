package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/repository"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/usecase"
)

// StaleJobReaper periodically fails running jobs that stopped making
// progress (their worker died mid-run), so batches can still settle.
type StaleJobReaper struct {
	interval   time.Duration
	staleAfter time.Duration
	repo       repository.JobRepository
	jobs       usecase.JobUseCase
	batches    usecase.BatchUseCase
	log        *zerolog.Logger
}

func NewStaleJobReaper(
	interval, staleAfter time.Duration,
	repo repository.JobRepository,
	jobs usecase.JobUseCase,
	batches usecase.BatchUseCase,
	logger *zerolog.Logger,
) *StaleJobReaper {
	reaperLog := logger.With().Str("component", "StaleJobReaper").Logger()
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	return &StaleJobReaper{
		interval:   interval,
		staleAfter: staleAfter,
		repo:       repo,
		jobs:       jobs,
		batches:    batches,
		log:        &reaperLog,
	}
}

func (w *StaleJobReaper) Run(ctx context.Context) error {
	w.log.Info().Msg("starting stale job reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping stale job reaper")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *StaleJobReaper) sweep(ctx context.Context) {
	stale, err := w.repo.ListStaleRunning(ctx, time.Now().Add(-w.staleAfter))
	if err != nil {
		w.log.Error().Err(err).Msg("reaper sweep failed")
		return
	}
	for _, job := range stale {
		// routed through the use case so worker_lost terminations
		// publish and count like every other terminal transition
		failed, err := w.jobs.Fail(ctx, job.ID, model.ErrKindWorkerLost, "job abandoned by its worker")
		if err != nil {
			w.log.Error().Err(err).Str("job_id", job.ID).Msg("could not fail stale job")
			continue
		}
		w.log.Warn().Str("job_id", job.ID).Msg("stale running job failed by reaper")
		w.batches.OnJobFinished(ctx, failed)
	}
}
