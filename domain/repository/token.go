package repository

import (
	"context"

	"github.com/BLKOUTUK/comms-blkout-sub001/domain/model"
)

// IPlatformToken persists per-platform OAuth credentials across restarts.
type IPlatformToken interface {
	UpsertToken(ctx context.Context, t *model.PlatformToken) error
	GetToken(ctx context.Context, platform string) (*model.PlatformToken, error)
	GetAllTokens(ctx context.Context) ([]*model.PlatformToken, error)
	DeleteToken(ctx context.Context, platform string) error
}
