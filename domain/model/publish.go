package model

import "time"

// PublishRecord is the persisted outcome of one publish attempt on one
// platform. The connector layer produces results; this layer owns keeping them.
type PublishRecord struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Platform     string    `json:"platform"`
	MediaURL     string    `json:"media_url"`
	MediaType    string    `json:"media_type"`
	Caption      string    `json:"caption"`
	Status       string    `json:"status"` // success | failed
	PostID       *string   `json:"post_id,omitempty"`
	PostURL      *string   `json:"post_url,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	ErrorKind    *string   `json:"error_kind,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
