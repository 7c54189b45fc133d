package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/repository"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/metrics"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

// JobUseCase owns the job state machine. All writes to a job go
// through its guarded transitions; observers read snapshots.
type JobUseCase interface {
	Create(ctx context.Context, ownerID string, req model.GenerationRequest) (*model.Job, error)
	CreateForBatch(ctx context.Context, ownerID, batchID string, req model.GenerationRequest) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)

	// Cancel is accepted while pending or running. Against a terminal
	// job it is a no-op that reports the job's actual state.
	Cancel(ctx context.Context, id string) (*model.Job, error)

	Start(ctx context.Context, id string) (*model.Job, error)
	UpdateProgress(ctx context.Context, id string, progress int, stage string) error
	RecordAttempt(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, res model.GenerationResult) (*model.Job, error)
	Fail(ctx context.Context, id, kind, message string) (*model.Job, error)
	// FinalizeCancelled moves a running job whose cancel flag was
	// observed into the cancelled terminal state.
	FinalizeCancelled(ctx context.Context, id string) (*model.Job, error)
}

type jobUC struct {
	repo    repository.JobRepository
	events  *Broadcaster
	batches BatchUseCase
	log     *zerolog.Logger

	// serializes read-modify-write transitions within this process
	mu sync.Mutex
}

func NewJobUseCase(repo repository.JobRepository, events *Broadcaster, log *zerolog.Logger) *jobUC {
	return &jobUC{repo: repo, events: events, log: log}
}

// AttachBatchSettlement lets a cancelled pending member settle its
// batch. Cancelling a pending job is the one terminal transition that
// never passes through the dispatcher or the reaper, so the batch
// would otherwise never be recomputed. Set after construction because
// the batch use case itself depends on JobUseCase.
func (u *jobUC) AttachBatchSettlement(b BatchUseCase) { u.batches = b }

func (u *jobUC) Create(ctx context.Context, ownerID string, req model.GenerationRequest) (*model.Job, error) {
	return u.CreateForBatch(ctx, ownerID, "", req)
}

func (u *jobUC) CreateForBatch(ctx context.Context, ownerID, batchID string, req model.GenerationRequest) (*model.Job, error) {
	if ownerID == "" || strings.TrimSpace(req.Keyword) == "" {
		return nil, domain.ErrInvalidArgument
	}
	if req.TargetWords <= 0 {
		req.TargetWords = 1000
	}
	job := model.NewJob(uuid.NewString(), ownerID, req)
	job.BatchID = batchID
	if err := u.repo.Save(ctx, nil, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (u *jobUC) Get(ctx context.Context, id string) (*model.Job, error) {
	return u.repo.FindByID(ctx, nil, id)
}

func (u *jobUC) Cancel(ctx context.Context, id string) (*model.Job, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	job, err := u.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		// report the actual terminal status instead of erroring
		return job, nil
	}
	finalized := false
	if job.Status == model.JobStatusPending {
		// never claimed, so it can be finalized immediately
		if err := job.Cancel(); err != nil {
			return nil, err
		}
		finalized = true
	} else {
		// cooperative: the attempt loop checks this flag between steps
		job.CancelRequested = true
		job.UpdatedAt = time.Now()
	}
	if err := u.repo.Save(ctx, nil, job); err != nil {
		return nil, err
	}
	if finalized {
		u.publishTerminal(job)
		if job.BatchID != "" && u.batches != nil {
			u.batches.OnJobFinished(ctx, job)
		}
	}
	return job, nil
}

func (u *jobUC) Start(ctx context.Context, id string) (*model.Job, error) {
	return u.transition(ctx, id, func(job *model.Job) error {
		if err := job.MarkRunning(); err != nil {
			return err
		}
		job.Stage = "drafting"
		return nil
	})
}

func (u *jobUC) UpdateProgress(ctx context.Context, id string, progress int, stage string) error {
	job, err := u.transition(ctx, id, func(job *model.Job) error {
		return job.SetProgress(progress, stage)
	})
	if err != nil {
		return err
	}
	u.publish(EventJobProgress, job)
	return nil
}

func (u *jobUC) RecordAttempt(ctx context.Context, id string) error {
	_, err := u.transition(ctx, id, func(job *model.Job) error {
		if job.Status != model.JobStatusRunning {
			return domain.ErrInvalidTransition
		}
		job.Attempt++
		job.UpdatedAt = time.Now()
		return nil
	})
	return err
}

func (u *jobUC) Complete(ctx context.Context, id string, res model.GenerationResult) (*model.Job, error) {
	job, err := u.transition(ctx, id, func(job *model.Job) error {
		return job.Complete(res)
	})
	if err != nil {
		return nil, err
	}
	u.publishTerminal(job)
	return job, nil
}

func (u *jobUC) Fail(ctx context.Context, id, kind, message string) (*model.Job, error) {
	job, err := u.transition(ctx, id, func(job *model.Job) error {
		return job.Fail(kind, message)
	})
	if err != nil {
		return nil, err
	}
	u.publishTerminal(job)
	return job, nil
}

func (u *jobUC) FinalizeCancelled(ctx context.Context, id string) (*model.Job, error) {
	job, err := u.transition(ctx, id, func(job *model.Job) error {
		return job.Cancel()
	})
	if err != nil {
		return nil, err
	}
	u.publishTerminal(job)
	return job, nil
}

func (u *jobUC) transition(ctx context.Context, id string, fn func(job *model.Job) error) (*model.Job, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	job, err := u.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := fn(job); err != nil {
		return nil, err
	}
	if err := u.repo.Save(ctx, nil, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (u *jobUC) publish(t EventType, job *model.Job) {
	if u.events == nil {
		return
	}
	u.events.Publish(Event{
		Type:     t,
		JobID:    job.ID,
		BatchID:  job.BatchID,
		OwnerID:  job.OwnerID,
		Progress: job.Progress,
		Status:   string(job.Status),
	})
}

func (u *jobUC) publishTerminal(job *model.Job) {
	metrics.IncJobProcessed(string(job.Status))
	u.publish(EventJobCompleted, job)
}
