package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/repository"
)

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newFakeJobRepo(jobs ...*model.Job) *fakeJobRepo {
	r := &fakeJobRepo{jobs: make(map[string]*model.Job)}
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return r
}

func (r *fakeJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *fakeJobRepo) ListByBatch(ctx context.Context, tx repository.Tx, batchID string) ([]*model.Job, error) {
	return nil, nil
}

func (r *fakeJobRepo) ClaimPendingBatchJob(ctx context.Context) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *model.Job
	for _, j := range r.jobs {
		if j.Status != model.JobStatusPending || j.BatchID == "" {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	if err := oldest.MarkRunning(); err != nil {
		return nil, err
	}
	cp := *oldest
	return &cp, nil
}

func (r *fakeJobRepo) ListStaleRunning(ctx context.Context, olderThan time.Time) ([]*model.Job, error) {
	return nil, nil
}

// completingRunner finalizes every job it is handed.
type completingRunner struct {
	repo *fakeJobRepo
}

func (c *completingRunner) Run(ctx context.Context, jobID string) {
	job, err := c.repo.FindByID(ctx, nil, jobID)
	if err != nil {
		return
	}
	_ = job.Complete(model.GenerationResult{Content: "done", QualityScore: 82})
	_ = c.repo.Save(ctx, nil, job)
}

type recordingBatches struct {
	finished chan *model.Job
}

func (r *recordingBatches) CreateBatch(ctx context.Context, ownerID string, items []model.GenerationRequest, name string) (*model.Batch, error) {
	return nil, nil
}
func (r *recordingBatches) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	return nil, domain.ErrNotFound
}
func (r *recordingBatches) ListBatches(ctx context.Context, ownerID string) ([]*model.Batch, error) {
	return nil, nil
}
func (r *recordingBatches) OnJobFinished(ctx context.Context, job *model.Job) {
	r.finished <- job
}

func batchItem(id, batchID string, createdAt time.Time) *model.Job {
	j := model.NewJob(id, "owner-1", model.GenerationRequest{Keyword: "seo"})
	j.BatchID = batchID
	j.CreatedAt = createdAt
	return j
}

func TestDispatcher_ProcessesPendingBatchItems(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now()
	repo := newFakeJobRepo(
		batchItem("job-1", "batch-1", now.Add(-2*time.Second)),
		batchItem("job-2", "batch-1", now.Add(-1*time.Second)),
	)
	runner := &completingRunner{repo: repo}
	batches := &recordingBatches{finished: make(chan *model.Job, 4)}

	pool := NewPool(2, &testLogger)
	pool.Start(ctx)
	defer pool.Stop()

	d := NewDispatcher(repo, runner, batches, 5*time.Millisecond, &testLogger)
	go d.Start(ctx, pool)

	seen := map[string]bool{}
	deadline := time.After(3 * time.Second)
	for len(seen) < 2 {
		select {
		case job := <-batches.finished:
			if job.Status != model.JobStatusCompleted {
				t.Fatalf("finished job %s status = %s, want completed", job.ID, job.Status)
			}
			seen[job.ID] = true
		case <-deadline:
			t.Fatalf("timed out; processed %d of 2 items", len(seen))
		}
	}
	if !seen["job-1"] || !seen["job-2"] {
		t.Fatalf("processed %v, want both items", seen)
	}
}

func TestDispatcher_IgnoresStandaloneJobs(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := newFakeJobRepo(batchItem("job-1", "", time.Now()))
	runner := &completingRunner{repo: repo}
	batches := &recordingBatches{finished: make(chan *model.Job, 1)}

	pool := NewPool(1, &testLogger)
	pool.Start(ctx)
	defer pool.Stop()

	d := NewDispatcher(repo, runner, batches, 5*time.Millisecond, &testLogger)
	go d.Start(ctx, pool)

	select {
	case job := <-batches.finished:
		t.Fatalf("standalone job %s was claimed by the dispatcher", job.ID)
	case <-time.After(100 * time.Millisecond):
	}

	got, err := repo.FindByID(ctx, nil, "job-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Status != model.JobStatusPending {
		t.Fatalf("standalone job status = %s, want untouched pending", got.Status)
	}
}
