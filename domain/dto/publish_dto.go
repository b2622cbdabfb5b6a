package dto

// PublishRequest is the dashboard's publish intent: one payload fanned out to
// one or more platforms.
type PublishRequest struct {
	Platforms   []string `json:"platforms" binding:"required,min=1"`
	MediaURL    string   `json:"media_url" binding:"required"`
	MediaType   string   `json:"media_type" binding:"required,oneof=image video"`
	Caption     string   `json:"caption,omitempty"`
	Hashtags    []string `json:"hashtags,omitempty"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
	// FileSizeBytes is the declared media size, used for pre-flight validation.
	FileSizeBytes int64 `json:"file_size_bytes,omitempty"`
}

// ValidateMediaRequest asks for a dry-run validation without publishing.
type ValidateMediaRequest struct {
	Platform      string `json:"platform" binding:"required"`
	MediaType     string `json:"media_type" binding:"required,oneof=image video"`
	AspectRatio   string `json:"aspect_ratio,omitempty"`
	FileSizeBytes int64  `json:"file_size_bytes,omitempty"`
}
