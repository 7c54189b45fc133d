package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *jobRepo {
	return &jobRepo{pool: pool, tm: tm}
}

const jobColumns = `
id, owner_id, batch_id, status, progress, stage,
keyword, target_words, tone, industry, enable_links, force_refresh,
attempt, result, error_kind, error_message, cancel_requested,
created_at, updated_at`

func (r *jobRepo) Save(ctx context.Context, tx repository.Tx, job *model.Job) error {
	var result []byte
	if job.Result != nil {
		b, err := json.Marshal(job.Result)
		if err != nil {
			return err
		}
		result = b
	}
	var errKind, errMsg *string
	if job.Error != nil {
		errKind, errMsg = &job.Error.Kind, &job.Error.Message
	}

	const q = `
INSERT INTO generation_jobs (` + jobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  progress = EXCLUDED.progress,
  stage = EXCLUDED.stage,
  attempt = EXCLUDED.attempt,
  result = EXCLUDED.result,
  error_kind = EXCLUDED.error_kind,
  error_message = EXCLUDED.error_message,
  cancel_requested = EXCLUDED.cancel_requested,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.OwnerID, job.BatchID, string(job.Status), job.Progress, job.Stage,
		job.Request.Keyword, job.Request.TargetWords, job.Request.Tone, job.Request.Industry,
		job.Request.EnableAugmentation, job.Request.ForceRefreshLinks,
		job.Attempt, result, errKind, errMsg, job.CancelRequested,
		job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *jobRepo) ListByBatch(ctx context.Context, tx repository.Tx, batchID string) ([]*model.Job, error) {
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE batch_id = $1 ORDER BY created_at`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// ClaimPendingBatchJob atomically picks the oldest pending batch item
// and marks it running so no other worker takes it.
func (r *jobRepo) ClaimPendingBatchJob(ctx context.Context) (*model.Job, error) {
	var job *model.Job

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		row, err := pickRow(ctx, r.pool, tx, `
SELECT `+jobColumns+`
FROM generation_jobs
WHERE status = 'pending' AND batch_id <> ''
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`)
		if err != nil {
			return err
		}

		claimed, err := scanJob(row)
		if err != nil {
			return err
		}
		if err := claimed.MarkRunning(); err != nil {
			return err
		}
		claimed.Stage = "queued"
		if err := r.Save(ctx, tx, claimed); err != nil {
			return err
		}
		job = claimed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) ListStaleRunning(ctx context.Context, olderThan time.Time) ([]*model.Job, error) {
	rows, err := pickRows(ctx, r.pool, nil,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE status = 'running' AND updated_at < $1`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		job             model.Job
		status          string
		result          []byte
		errKind, errMsg *string
	)
	err := row.Scan(
		&job.ID, &job.OwnerID, &job.BatchID, &status, &job.Progress, &job.Stage,
		&job.Request.Keyword, &job.Request.TargetWords, &job.Request.Tone, &job.Request.Industry,
		&job.Request.EnableAugmentation, &job.Request.ForceRefreshLinks,
		&job.Attempt, &result, &errKind, &errMsg, &job.CancelRequested,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	job.Status = model.JobStatus(status)
	if len(result) > 0 {
		var res model.GenerationResult
		if err := json.Unmarshal(result, &res); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		job.Result = &res
	}
	if errKind != nil {
		job.Error = &model.JobError{Kind: *errKind}
		if errMsg != nil {
			job.Error.Message = *errMsg
		}
	}
	return &job, nil
}
