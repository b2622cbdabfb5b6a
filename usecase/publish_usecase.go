package usecase

import (
	"context"
	"errors"

	"github.com/BLKOUTUK/comms-blkout-sub001/domain/model"
	"github.com/BLKOUTUK/comms-blkout-sub001/domain/repository"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/clients/social"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/logger"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/realtime"
)

type IPublishUsecase interface {
	Publish(ctx context.Context, userID string, platforms []string, mediaURL string, mediaType string, opts social.PublishOptions) ([]social.PublishResult, error)
	Statuses(ctx context.Context) []social.PlatformStatus
	ValidateMedia(platform, mediaType, aspectRatio string, sizeBytes int64) (social.MediaValidation, error)
	RecentRecords(ctx context.Context, limit int) ([]*model.PublishRecord, error)
}

type publishUsecase struct {
	manager     *social.Manager
	publishRepo repository.IPublishRecord // optional; nil when the DB is down
	hub         *realtime.Hub             // optional
}

func NewPublishUsecase(manager *social.Manager, publishRepo repository.IPublishRecord, hub *realtime.Hub) IPublishUsecase {
	return &publishUsecase{manager: manager, publishRepo: publishRepo, hub: hub}
}

// Publish fans one payload out to every requested platform and records the
// per-platform outcomes. Exactly one result per requested platform comes back
// even when the history write fails.
func (u *publishUsecase) Publish(ctx context.Context, userID string, platforms []string, mediaURL string, mediaType string, opts social.PublishOptions) ([]social.PublishResult, error) {
	if mediaURL == "" {
		return nil, errors.New("media_url required")
	}
	mt := social.MediaType(mediaType)
	if mt != social.MediaImage && mt != social.MediaVideo {
		return nil, errors.New("media_type must be image or video")
	}
	targets := make([]social.Platform, 0, len(platforms))
	for _, raw := range platforms {
		p, err := social.ParsePlatform(raw)
		if err != nil {
			return nil, err
		}
		targets = append(targets, p)
	}

	byPlatform := u.manager.PublishAll(ctx, targets, mediaURL, mt, opts)

	results := make([]social.PublishResult, 0, len(targets))
	records := make([]*model.PublishRecord, 0, len(targets))
	for _, p := range targets {
		res := byPlatform[p]
		results = append(results, res)
		records = append(records, recordFromResult(userID, mediaURL, mediaType, opts.Caption, res))
	}

	if u.publishRepo != nil {
		if err := u.publishRepo.Create(ctx, records); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while persisting publish records")
		}
	}
	if u.hub != nil {
		for _, rec := range records {
			u.hub.BroadcastPublishStatus(rec)
		}
	}
	return results, nil
}

func (u *publishUsecase) Statuses(ctx context.Context) []social.PlatformStatus {
	byPlatform := u.manager.StatusAll(ctx)
	out := make([]social.PlatformStatus, 0, len(byPlatform))
	for _, p := range u.manager.Platforms() {
		out = append(out, byPlatform[p])
	}
	return out
}

func (u *publishUsecase) ValidateMedia(platform, mediaType, aspectRatio string, sizeBytes int64) (social.MediaValidation, error) {
	p, err := social.ParsePlatform(platform)
	if err != nil {
		return social.MediaValidation{}, err
	}
	c, ok := u.manager.Connector(p)
	if !ok {
		return social.MediaValidation{}, &social.NotConfiguredError{Platform: p}
	}
	return c.ValidateMedia(social.MediaType(mediaType), aspectRatio, sizeBytes), nil
}

func (u *publishUsecase) RecentRecords(ctx context.Context, limit int) ([]*model.PublishRecord, error) {
	if u.publishRepo == nil {
		return nil, nil
	}
	return u.publishRepo.ListRecent(ctx, limit)
}

func recordFromResult(userID, mediaURL, mediaType, caption string, res social.PublishResult) *model.PublishRecord {
	rec := &model.PublishRecord{
		UserID:    userID,
		Platform:  string(res.Platform),
		MediaURL:  mediaURL,
		MediaType: mediaType,
		Caption:   caption,
		Status:    "failed",
	}
	if res.Success {
		rec.Status = "success"
		if res.PostID != "" {
			v := res.PostID
			rec.PostID = &v
		}
		if res.URL != "" {
			v := res.URL
			rec.PostURL = &v
		}
		return rec
	}
	if res.Error != "" {
		v := res.Error
		rec.ErrorMessage = &v
	}
	if res.Kind != "" {
		v := string(res.Kind)
		rec.ErrorKind = &v
	}
	return rec
}
