package repository

import (
	"context"

	"github.com/BLKOUTUK/comms-blkout-sub001/domain/model"
)

// IPublishRecord keeps the history of publish attempts for the dashboard.
type IPublishRecord interface {
	Create(ctx context.Context, recs []*model.PublishRecord) error
	ListRecent(ctx context.Context, limit int) ([]*model.PublishRecord, error)
}
