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

var _ repository.BatchRepository = (*batchRepo)(nil)

type batchRepo struct {
	pool *pgxpool.Pool
}

func NewBatchRepo(pool *pgxpool.Pool) *batchRepo {
	return &batchRepo{pool: pool}
}

const batchColumns = `
id, owner_id, name, job_ids, total_items, completed_count, failed_count,
status, created_at, updated_at`

func (r *batchRepo) Save(ctx context.Context, tx repository.Tx, batch *model.Batch) error {
	const q = `
INSERT INTO generation_batches (` + batchColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
  job_ids = EXCLUDED.job_ids,
  completed_count = EXCLUDED.completed_count,
  failed_count = EXCLUDED.failed_count,
  status = EXCLUDED.status,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		batch.ID, batch.OwnerID, batch.Name, batch.JobIDs,
		batch.TotalItems, batch.CompletedCount, batch.FailedCount,
		string(batch.Status), batch.CreatedAt, batch.UpdatedAt)
	return err
}

func (r *batchRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Batch, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+batchColumns+` FROM generation_batches WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanBatch(row)
}

// ListByOwner returns the owner's batches most recent first. Batch IDs
// are ULIDs, so lexicographic order matches creation order.
func (r *batchRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string) ([]*model.Batch, error) {
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT `+batchColumns+` FROM generation_batches WHERE owner_id = $1 ORDER BY id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBatch(row pgx.Row) (*model.Batch, error) {
	var (
		batch  model.Batch
		status string
	)
	err := row.Scan(
		&batch.ID, &batch.OwnerID, &batch.Name, &batch.JobIDs,
		&batch.TotalItems, &batch.CompletedCount, &batch.FailedCount,
		&status, &batch.CreatedAt, &batch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	batch.Status = model.BatchStatus(status)
	return &batch, nil
}
