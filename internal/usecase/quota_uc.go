package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/repository"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/metrics"
)

// Compile-time check
var _ QuotaTracker = (*quotaTracker)(nil)

// QuotaTracker gates external search calls against a per-owner monthly
// budget. Running out of quota is a soft degrade, never an error.
type QuotaTracker interface {
	// TryConsume atomically checks remaining budget for the current
	// period and increments usage on success.
	TryConsume(ctx context.Context, ownerID string) (bool, error)
	// HasRemaining is a read-only budget check.
	HasRemaining(ctx context.Context, ownerID string) (bool, error)
	SetLimit(ctx context.Context, ownerID string, limit int) error
}

type quotaTracker struct {
	repo         repository.QuotaRepository
	defaultLimit int

	mu  sync.Mutex
	now func() time.Time
}

func NewQuotaTracker(repo repository.QuotaRepository, defaultLimit int) *quotaTracker {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &quotaTracker{repo: repo, defaultLimit: defaultLimit, now: time.Now}
}

func (q *quotaTracker) TryConsume(ctx context.Context, ownerID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.load(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if rec.Used >= rec.Limit {
		metrics.IncQuota("denied")
		// persist a lazy rollover even when the call is denied
		_ = q.repo.Save(ctx, rec)
		return false, nil
	}
	rec.Used++
	if err := q.repo.Save(ctx, rec); err != nil {
		return false, err
	}
	metrics.IncQuota("consumed")
	return true, nil
}

func (q *quotaTracker) HasRemaining(ctx context.Context, ownerID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.load(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return rec.Remaining() > 0, nil
}

func (q *quotaTracker) SetLimit(ctx context.Context, ownerID string, limit int) error {
	if limit < 0 {
		return domain.ErrInvalidArgument
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.load(ctx, ownerID)
	if err != nil {
		return err
	}
	rec.Limit = limit
	return q.repo.Save(ctx, rec)
}

// load fetches the record, creating it on first use and rolling the
// period forward when the month changed. Callers hold q.mu.
func (q *quotaTracker) load(ctx context.Context, ownerID string) (*model.QuotaRecord, error) {
	rec, err := q.repo.Find(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return model.NewQuotaRecord(ownerID, q.defaultLimit, q.now()), nil
	}
	if err != nil {
		return nil, err
	}
	rec.RollIfStale(q.now())
	return rec, nil
}
