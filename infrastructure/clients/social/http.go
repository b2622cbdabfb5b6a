package social

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/logger"
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// readBody drains and closes the response body.
func readBody(resp *http.Response) []byte {
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return body
}

// safePublish runs one publish attempt and converts a panic into a failed
// result so Publish never raises past the connector boundary.
func safePublish(p Platform, fn func() PublishResult) (res PublishResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithField("platform", p).WithField("panic", r).Error("publish panic recovered")
			res = failure(p, ErrKindUnknown, fmt.Sprintf("unexpected error during publish: %v", r))
		}
	}()
	return fn()
}
