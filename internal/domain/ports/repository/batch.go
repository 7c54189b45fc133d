package repository

import (
	"context"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
)

type BatchRepository interface {
	Save(ctx context.Context, tx Tx, batch *model.Batch) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Batch, error)
	// ListByOwner returns the owner's batches, most recent first.
	ListByOwner(ctx context.Context, tx Tx, ownerID string) ([]*model.Batch, error)
}
