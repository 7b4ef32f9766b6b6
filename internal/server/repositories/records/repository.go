package records

import (
	"context"

	"github.com/dmitrijs2005/companion/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, r *models.Record) error
	Select(ctx context.Context, userID, entity string, f models.RecordFilter) ([]*models.Record, error)
	Delete(ctx context.Context, userID, entity, id string) error
	DeleteByParent(ctx context.Context, userID, entity, parentID string) (int64, error)
}
