package social

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Platform identifies a supported social network.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
)

// Platforms lists every platform a connector exists for, in display order.
func Platforms() []Platform {
	return []Platform{PlatformInstagram, PlatformTikTok, PlatformLinkedIn, PlatformTwitter}
}

// ParsePlatform normalizes a caller-supplied platform name.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformInstagram:
		return PlatformInstagram, nil
	case PlatformTikTok:
		return PlatformTikTok, nil
	case PlatformLinkedIn:
		return PlatformLinkedIn, nil
	case PlatformTwitter, "x":
		return PlatformTwitter, nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", s)
	}
}

// MediaType declares what kind of asset a publish request references.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// ErrorKind is the closed set of publish/status failure categories.
// Callers and tests branch on the kind; Error keeps the human-readable detail.
type ErrorKind string

const (
	ErrKindNone          ErrorKind = ""
	ErrKindConfiguration ErrorKind = "configuration"
	ErrKindAuth          ErrorKind = "auth"
	ErrKindValidation    ErrorKind = "validation"
	ErrKindNetwork       ErrorKind = "network"
	ErrKindUnknown       ErrorKind = "unknown"
)

// PublishOptions carries the caller's publish intent alongside the media reference.
type PublishOptions struct {
	Caption     string   `json:"caption,omitempty"`
	Hashtags    []string `json:"hashtags,omitempty"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
}

// PublishResult is the outcome of one publish attempt on one platform.
// Publish never raises; every failure path ends up here.
type PublishResult struct {
	Platform Platform  `json:"platform"`
	Success  bool      `json:"success"`
	PostID   string    `json:"post_id,omitempty"`
	URL      string    `json:"url,omitempty"`
	Error    string    `json:"error,omitempty"`
	Kind     ErrorKind `json:"error_kind,omitempty"`
}

func failure(p Platform, kind ErrorKind, msg string) PublishResult {
	return PublishResult{Platform: p, Success: false, Error: msg, Kind: kind}
}

// PlatformStatus is a point-in-time view of one connection's health.
type PlatformStatus struct {
	Platform    Platform   `json:"platform"`
	Connected   bool       `json:"connected"`
	AccountID   string     `json:"account_id,omitempty"`
	AccountName string     `json:"account_name,omitempty"`
	LastSync    *time.Time `json:"last_sync,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// MediaValidation is computed locally from declared media properties; it never
// performs a network call.
type MediaValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Connector is the uniform capability contract every platform implements.
// Authenticate and RefreshAccessToken fail loudly because the caller must react
// (re-authorize); Publish and Status always return a structured value instead.
type Connector interface {
	Platform() Platform
	AuthURL(ctx context.Context, redirectURI string) (string, error)
	Authenticate(ctx context.Context, code string) (*Credentials, error)
	RefreshAccessToken(ctx context.Context) (*Credentials, error)
	IsAuthenticated() bool
	Status(ctx context.Context) PlatformStatus
	ValidateMedia(mediaType MediaType, aspectRatio string, sizeBytes int64) MediaValidation
	Publish(ctx context.Context, mediaURL string, mediaType MediaType, opts PublishOptions) PublishResult
	Disconnect()
}

// AppCredentials holds one platform's OAuth client registration.
type AppCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// Configured reports whether the platform can be registered at all.
func (a AppCredentials) Configured() bool {
	return a.ClientID != "" && a.ClientSecret != ""
}

func validateSize(mediaType MediaType, sizeBytes, imageMax, videoMax int64) []string {
	var errs []string
	switch mediaType {
	case MediaImage:
		if sizeBytes > 0 && sizeBytes > imageMax {
			errs = append(errs, fmt.Sprintf("image size %d bytes exceeds limit of %d bytes", sizeBytes, imageMax))
		}
	case MediaVideo:
		if sizeBytes > 0 && sizeBytes > videoMax {
			errs = append(errs, fmt.Sprintf("video size %d bytes exceeds limit of %d bytes", sizeBytes, videoMax))
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported media type: %s", mediaType))
	}
	return errs
}
