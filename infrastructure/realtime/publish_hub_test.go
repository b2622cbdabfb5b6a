package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BLKOUTUK/comms-blkout-sub001/domain/model"
)

func TestBroadcastReachesOwnerSubscribers(t *testing.T) {
	h := NewPublishHub()
	ch := make(chan PublishEvent, 1)
	h.addSubscriber("admin", ch)
	defer h.removeSubscriber("admin", ch)

	postID := "urn:li:share:1"
	h.BroadcastPublishStatus(&model.PublishRecord{
		UserID:   "admin",
		Platform: "linkedin",
		Status:   "success",
		PostID:   &postID,
	})

	select {
	case evt := <-ch:
		assert.Equal(t, "publish_status", evt.Type)
		assert.Equal(t, "linkedin", evt.Platform)
		assert.Equal(t, "success", evt.Status)
		require.NotNil(t, evt.PostID)
		assert.Equal(t, postID, *evt.PostID)
	case <-time.After(time.Second):
		t.Fatal("expected broadcast event")
	}
}

func TestBroadcastSkipsOtherUsers(t *testing.T) {
	h := NewPublishHub()
	ch := make(chan PublishEvent, 1)
	h.addSubscriber("someone-else", ch)
	defer h.removeSubscriber("someone-else", ch)

	h.BroadcastPublishStatus(&model.PublishRecord{UserID: "admin", Platform: "twitter", Status: "failed"})

	select {
	case <-ch:
		t.Fatal("event must not reach another user's stream")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastNonBlockingOnFullChannel(t *testing.T) {
	h := NewPublishHub()
	ch := make(chan PublishEvent) // unbuffered, no reader
	h.addSubscriber("admin", ch)
	defer h.removeSubscriber("admin", ch)

	done := make(chan struct{})
	go func() {
		h.BroadcastPublishStatus(&model.PublishRecord{UserID: "admin", Platform: "twitter", Status: "failed"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast must not block on a slow subscriber")
	}
}

func TestBroadcastNilRecordIsNoop(t *testing.T) {
	h := NewPublishHub()
	h.BroadcastPublishStatus(nil)
}
