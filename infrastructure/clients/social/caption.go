package social

import "strings"

// effectiveCaption combines the caption with a trailing hashtag line, subject to
// a platform's maximum combined length. When the combination would exceed the
// limit the hashtag block is omitted entirely; the primary caption is never
// truncated mid-sentence to make room for tags. A limit of 0 means no cap.
func effectiveCaption(caption string, hashtags []string, limit int) string {
	tags := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !strings.HasPrefix(h, "#") {
			h = "#" + h
		}
		tags = append(tags, h)
	}
	text := caption
	if len(tags) > 0 {
		candidate := caption
		if candidate != "" {
			candidate += "\n\n"
		}
		candidate += strings.Join(tags, " ")
		if limit <= 0 || len([]rune(candidate)) <= limit {
			text = candidate
		}
	}
	if limit > 0 {
		if r := []rune(text); len(r) > limit {
			text = string(r[:limit])
		}
	}
	return text
}
