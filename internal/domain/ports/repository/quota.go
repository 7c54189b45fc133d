package repository

import (
	"context"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
)

type QuotaRepository interface {
	Find(ctx context.Context, ownerID string) (*model.QuotaRecord, error)
	Save(ctx context.Context, rec *model.QuotaRecord) error
}
