package social

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveCaptionAppendsHashtagLine(t *testing.T) {
	got := effectiveCaption("New event this Friday", []string{"community", "#London"}, 2200)
	assert.Equal(t, "New event this Friday\n\n#community #London", got)
}

func TestEffectiveCaptionDropsHashtagsWhenOverLimit(t *testing.T) {
	caption := strings.Repeat("a", 60)
	got := effectiveCaption(caption, []string{"waytoolongforthislimit"}, 70)
	assert.Equal(t, caption, got, "hashtag block must be dropped whole, never squeezed in")
}

func TestEffectiveCaptionTruncatesByRunes(t *testing.T) {
	caption := strings.Repeat("é", 30)
	got := effectiveCaption(caption, nil, 10)
	assert.Equal(t, strings.Repeat("é", 10), got)
}

func TestEffectiveCaptionNoLimit(t *testing.T) {
	long := strings.Repeat("x", 5000)
	assert.Equal(t, long, effectiveCaption(long, nil, 0))
}

func TestEffectiveCaptionSkipsEmptyTags(t *testing.T) {
	got := effectiveCaption("hello", []string{"", "  ", "one"}, 0)
	assert.Equal(t, "hello\n\n#one", got)
}

func TestTweetTextRespectsCap(t *testing.T) {
	opts := PublishOptions{
		Caption:  strings.Repeat("b", 400),
		Hashtags: []string{"blkout"},
	}
	got := tweetText("https://cdn.example.org/media/very-long-path/image.png", opts)
	// Twitter counts the URL at t.co length regardless of its real length.
	effective := len([]rune(got)) - len("https://cdn.example.org/media/very-long-path/image.png") + tcoURLLength
	assert.LessOrEqual(t, effective, tweetTextLimit)
	assert.True(t, strings.HasSuffix(got, "image.png"))
}

func TestTweetTextShortCaptionKeepsHashtags(t *testing.T) {
	got := tweetText("https://cdn.example.org/a.png", PublishOptions{Caption: "hi", Hashtags: []string{"tag"}})
	assert.Equal(t, "hi\n\n#tag\nhttps://cdn.example.org/a.png", got)
}
