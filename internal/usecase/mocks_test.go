package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/adapter"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/repository"
)

var testLogger = zerolog.Nop()

// memJobRepo is a small in-memory implementation used by unit tests.
type memJobRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Job
	saveErr error // used by tests to simulate save failures
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.Job)}
}

func cloneJob(j *model.Job) *model.Job {
	cp := *j
	if j.Result != nil {
		res := *j.Result
		cp.Result = &res
	}
	if j.Error != nil {
		e := *j.Error
		cp.Error = &e
	}
	return &cp
}

func (m *memJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[job.ID] = cloneJob(job)
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(j), nil
}

func (m *memJobRepo) ListByBatch(ctx context.Context, tx repository.Tx, batchID string) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.BatchID == batchID {
			out = append(out, cloneJob(j))
		}
	}
	return out, nil
}

func (m *memJobRepo) ClaimPendingBatchJob(ctx context.Context) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *model.Job
	for _, j := range m.store {
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
	oldest.Stage = "queued"
	return cloneJob(oldest), nil
}

func (m *memJobRepo) ListStaleRunning(ctx context.Context, olderThan time.Time) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.Status == model.JobStatusRunning && j.UpdatedAt.Before(olderThan) {
			out = append(out, cloneJob(j))
		}
	}
	return out, nil
}

type memBatchRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Batch
	saveErr error
}

func newMemBatchRepo() *memBatchRepo {
	return &memBatchRepo{store: make(map[string]*model.Batch)}
}

func (m *memBatchRepo) Save(ctx context.Context, tx repository.Tx, batch *model.Batch) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *batch
	cp.JobIDs = append([]string(nil), batch.JobIDs...)
	m.store[batch.ID] = &cp
	return nil
}

func (m *memBatchRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	cp.JobIDs = append([]string(nil), b.JobIDs...)
	return &cp, nil
}

func (m *memBatchRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string) ([]*model.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Batch
	for _, b := range m.store {
		if b.OwnerID == ownerID {
			cp := *b
			out = append(out, &cp)
		}
	}
	// most recent first; ULIDs sort lexicographically by creation time
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ID > out[i].ID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

type memQuotaRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.QuotaRecord
	findErr error
	saveErr error
}

func newMemQuotaRepo() *memQuotaRepo {
	return &memQuotaRepo{store: make(map[string]*model.QuotaRecord)}
}

func (m *memQuotaRepo) Find(ctx context.Context, ownerID string) (*model.QuotaRecord, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.store[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memQuotaRepo) Save(ctx context.Context, rec *model.QuotaRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.store[rec.OwnerID] = &cp
	return nil
}

type memLinkCache struct {
	mu     sync.RWMutex
	store  map[string]*model.LinkCacheEntry
	getErr error
	putErr error
	puts   int
	gets   int
}

func newMemLinkCache() *memLinkCache {
	return &memLinkCache{store: make(map[string]*model.LinkCacheEntry)}
}

func (m *memLinkCache) Get(ctx context.Context, key string) (*model.LinkCacheEntry, error) {
	m.mu.Lock()
	m.gets++
	m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memLinkCache) Put(ctx context.Context, entry *model.LinkCacheEntry) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	cp := *entry
	m.store[entry.Key] = &cp
	return nil
}

// fakeGenerator returns scripted outputs in order. A nil entry in errs
// means that call succeeds.
type fakeGenerator struct {
	mu      sync.Mutex
	outputs []string
	errs    []error
	calls   int
}

func (f *fakeGenerator) ModelName() string { return "fake-model" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.outputs) {
		return f.outputs[i], nil
	}
	return "", domain.ErrGenerationProvider
}

func (f *fakeGenerator) CountTokens(ctx context.Context, text string) (int, error) {
	return len(text) / 4, nil
}

type fakeSearch struct {
	results []adapter.SearchResult
	err     error
	calls   int
}

func (f *fakeSearch) Search(ctx context.Context, query string) ([]adapter.SearchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// unlimitedQuota never denies and never errors.
type unlimitedQuota struct{}

func (unlimitedQuota) TryConsume(ctx context.Context, ownerID string) (bool, error)   { return true, nil }
func (unlimitedQuota) HasRemaining(ctx context.Context, ownerID string) (bool, error) { return true, nil }
func (unlimitedQuota) SetLimit(ctx context.Context, ownerID string, limit int) error  { return nil }
