package model

import "time"

// PlatformToken stores one platform connection's OAuth credentials so a
// connection survives process restarts. One row per platform; the dashboard
// publishes from a single organization account.
type PlatformToken struct {
	ID           int64      `json:"id"`
	Platform     string     `json:"platform"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	AccountID    string     `json:"account_id"`
	AccountName  string     `json:"account_name"`
	Scopes       string     `json:"scopes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
