package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/repository"
)

var _ repository.QuotaRepository = (*quotaRepo)(nil)

type quotaRepo struct {
	pool *pgxpool.Pool
}

func NewQuotaRepo(pool *pgxpool.Pool) *quotaRepo {
	return &quotaRepo{pool: pool}
}

func (r *quotaRepo) Find(ctx context.Context, ownerID string) (*model.QuotaRecord, error) {
	var rec model.QuotaRecord
	err := r.pool.QueryRow(ctx, `
SELECT owner_id, period_start, used, quota_limit
FROM search_quotas WHERE owner_id = $1;`, ownerID).
		Scan(&rec.OwnerID, &rec.PeriodStart, &rec.Used, &rec.Limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &rec, nil
}

func (r *quotaRepo) Save(ctx context.Context, rec *model.QuotaRecord) error {
	const q = `
INSERT INTO search_quotas (owner_id, period_start, used, quota_limit)
VALUES ($1, $2, $3, $4)
ON CONFLICT (owner_id) DO UPDATE SET
  period_start = EXCLUDED.period_start,
  used = EXCLUDED.used,
  quota_limit = EXCLUDED.quota_limit;`

	_, err := r.pool.Exec(ctx, q, rec.OwnerID, rec.PeriodStart, rec.Used, rec.Limit)
	return err
}
