package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BLKOUTUK/comms-blkout-sub001/domain/model"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/clients/social"
)

type memoryPublishRepo struct {
	created []*model.PublishRecord
	recent  []*model.PublishRecord
}

func (m *memoryPublishRepo) Create(_ context.Context, recs []*model.PublishRecord) error {
	m.created = append(m.created, recs...)
	return nil
}

func (m *memoryPublishRepo) ListRecent(_ context.Context, _ int) ([]*model.PublishRecord, error) {
	return m.recent, nil
}

// emptyManager has no registered connectors, so every platform resolves to a
// configuration failure without any network traffic.
func emptyManager() *social.Manager {
	return social.NewManager(social.ManagerConfig{}, social.NewMemoryStateStore())
}

func TestPublishRecordsEveryOutcome(t *testing.T) {
	repo := &memoryPublishRepo{}
	uc := NewPublishUsecase(emptyManager(), repo, nil)

	results, err := uc.Publish(context.Background(), "admin", []string{"linkedin", "x"}, "https://cdn/x.png", "image", social.PublishOptions{Caption: "hi"})
	require.NoError(t, err)
	require.Len(t, results, 2, "exactly one result per requested platform")
	assert.Equal(t, social.PlatformLinkedIn, results[0].Platform)
	assert.Equal(t, social.PlatformTwitter, results[1].Platform, "x normalizes to twitter")
	for _, res := range results {
		assert.False(t, res.Success)
		assert.Equal(t, social.ErrKindConfiguration, res.Kind)
	}

	require.Len(t, repo.created, 2)
	assert.Equal(t, "admin", repo.created[0].UserID)
	assert.Equal(t, "failed", repo.created[0].Status)
	require.NotNil(t, repo.created[0].ErrorKind)
	assert.Equal(t, "configuration", *repo.created[0].ErrorKind)
}

func TestPublishRejectsBadInput(t *testing.T) {
	uc := NewPublishUsecase(emptyManager(), nil, nil)

	_, err := uc.Publish(context.Background(), "admin", []string{"linkedin"}, "", "image", social.PublishOptions{})
	assert.Error(t, err, "missing media url")

	_, err = uc.Publish(context.Background(), "admin", []string{"linkedin"}, "https://cdn/x.png", "audio", social.PublishOptions{})
	assert.Error(t, err, "unsupported media type")

	_, err = uc.Publish(context.Background(), "admin", []string{"myspace"}, "https://cdn/x.png", "image", social.PublishOptions{})
	assert.Error(t, err, "unknown platform")
}

func TestPublishWithoutRepositoryStillReturnsResults(t *testing.T) {
	uc := NewPublishUsecase(emptyManager(), nil, nil)
	results, err := uc.Publish(context.Background(), "admin", []string{"tiktok"}, "https://cdn/x.mp4", "video", social.PublishOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestStatusesCoverRegisteredPlatforms(t *testing.T) {
	m := social.NewManager(social.ManagerConfig{
		Twitter:  social.AppCredentials{ClientID: "id", ClientSecret: "secret"},
		LinkedIn: social.AppCredentials{ClientID: "id", ClientSecret: "secret"},
	}, social.NewMemoryStateStore())
	uc := NewPublishUsecase(m, nil, nil)

	statuses := uc.Statuses(context.Background())
	require.Len(t, statuses, 2)
	for _, st := range statuses {
		assert.False(t, st.Connected)
	}
}

func TestValidateMedia(t *testing.T) {
	m := social.NewManager(social.ManagerConfig{
		TikTok: social.AppCredentials{ClientID: "id", ClientSecret: "secret"},
	}, social.NewMemoryStateStore())
	uc := NewPublishUsecase(m, nil, nil)

	v, err := uc.ValidateMedia("tiktok", "image", "", 1024)
	require.NoError(t, err)
	assert.False(t, v.Valid)

	v, err = uc.ValidateMedia("tiktok", "video", "", 1024)
	require.NoError(t, err)
	assert.True(t, v.Valid)

	_, err = uc.ValidateMedia("twitter", "image", "", 1024)
	require.Error(t, err, "unregistered platform")

	_, err = uc.ValidateMedia("friendster", "image", "", 1024)
	require.Error(t, err)
}

func TestRecentRecords(t *testing.T) {
	repo := &memoryPublishRepo{recent: []*model.PublishRecord{{ID: 1, Platform: "twitter"}}}
	uc := NewPublishUsecase(emptyManager(), repo, nil)
	recs, err := uc.RecentRecords(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	ucNoRepo := NewPublishUsecase(emptyManager(), nil, nil)
	recs, err = ucNoRepo.RecentRecords(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
