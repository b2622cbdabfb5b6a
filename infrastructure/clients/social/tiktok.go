package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/logger"

	"github.com/google/go-querystring/query"
)

const (
	tiktokCaptionLimit  = 2200
	tiktokVideoMaxBytes = 287 * 1024 * 1024
)

// TikTokConnector publishes videos through the TikTok Open API. TikTok names
// the client identifier "client_key" and rotates the refresh token on every
// refresh grant. Only video media is supported.
type TikTokConnector struct {
	app   AppCredentials
	store StateStore
	http  *http.Client
	guard credentialGuard

	authBase string
	apiBase  string
}

func NewTikTokConnector(app AppCredentials, store StateStore) *TikTokConnector {
	return &TikTokConnector{
		app:      app,
		store:    store,
		http:     newHTTPClient(),
		authBase: "https://www.tiktok.com",
		apiBase:  "https://open.tiktokapis.com",
	}
}

func (c *TikTokConnector) Platform() Platform { return PlatformTikTok }

type tiktokAuthParams struct {
	ClientKey    string `url:"client_key"`
	RedirectURI  string `url:"redirect_uri"`
	Scope        string `url:"scope"`
	ResponseType string `url:"response_type"`
	State        string `url:"state"`
}

func (c *TikTokConnector) AuthURL(ctx context.Context, redirectURI string) (string, error) {
	if redirectURI == "" {
		redirectURI = c.app.RedirectURI
	} else if err := c.store.Put(ctx, redirectKey(PlatformTikTok), redirectURI, stateTTL); err != nil {
		return "", fmt.Errorf("storing redirect uri: %w", err)
	}
	state := randomState()
	if err := c.store.Put(ctx, stateKey(PlatformTikTok, state), "1", stateTTL); err != nil {
		return "", fmt.Errorf("storing oauth state: %w", err)
	}
	scopes := c.app.Scopes
	if len(scopes) == 0 {
		scopes = []string{"user.info.basic", "video.publish"}
	}
	v, err := query.Values(tiktokAuthParams{
		ClientKey:    c.app.ClientID,
		RedirectURI:  redirectURI,
		Scope:        strings.Join(scopes, ","),
		ResponseType: "code",
		State:        state,
	})
	if err != nil {
		return "", err
	}
	return c.authBase + "/v2/auth/authorize/?" + v.Encode(), nil
}

type tiktokTokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	OpenID           string `json:"open_id"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func (c *TikTokConnector) tokenGrant(ctx context.Context, form url.Values) (*tiktokTokenResponse, error) {
	form.Set("client_key", c.app.ClientID)
	form.Set("client_secret", c.app.ClientSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v2/oauth/token/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiktok token request: %w", err)
	}
	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tiktok token grant failed: %s", string(body))
	}
	var out tiktokTokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parsing tiktok token response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("tiktok token grant rejected: %s (%s)", out.Error, out.ErrorDescription)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("tiktok token response missing access_token")
	}
	return &out, nil
}

func (c *TikTokConnector) Authenticate(ctx context.Context, code string) (*Credentials, error) {
	redirect := c.app.RedirectURI
	if v, err := c.store.Consume(ctx, redirectKey(PlatformTikTok)); err == nil && v != "" {
		redirect = v
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirect)
	tok, err := c.tokenGrant(ctx, form)
	if err != nil {
		return nil, err
	}

	openID, displayName, err := c.identity(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("tiktok identity lookup: %w", err)
	}
	if openID == "" {
		openID = tok.OpenID
	}

	expiresAt := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second).UTC()
	creds := &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    &expiresAt,
		AccountID:    openID,
		AccountName:  displayName,
	}
	c.guard.set(creds)
	cp := *creds
	return &cp, nil
}

func (c *TikTokConnector) identity(ctx context.Context, token string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v2/user/info/?fields=open_id,display_name", nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", err
	}
	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("user info fetch failed: %s", string(body))
	}
	var out struct {
		Data struct {
			User struct {
				OpenID      string `json:"open_id"`
				DisplayName string `json:"display_name"`
			} `json:"user"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", "", err
	}
	if out.Error.Code != "" && out.Error.Code != "ok" {
		return "", "", fmt.Errorf("user info error: %s (%s)", out.Error.Message, out.Error.Code)
	}
	return out.Data.User.OpenID, out.Data.User.DisplayName, nil
}

func (c *TikTokConnector) refresh(ctx context.Context) func(cur *Credentials) (*Credentials, error) {
	return func(cur *Credentials) (*Credentials, error) {
		if cur == nil || cur.RefreshToken == "" {
			return nil, fmt.Errorf("tiktok: no refresh token available; re-authorization required")
		}
		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", cur.RefreshToken)
		tok, err := c.tokenGrant(ctx, form)
		if err != nil {
			return nil, err
		}
		expiresAt := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second).UTC()
		refreshToken := tok.RefreshToken
		if refreshToken == "" {
			refreshToken = cur.RefreshToken
		}
		return &Credentials{
			AccessToken:  tok.AccessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    &expiresAt,
			AccountID:    cur.AccountID,
			AccountName:  cur.AccountName,
		}, nil
	}
}

func (c *TikTokConnector) RefreshAccessToken(ctx context.Context) (*Credentials, error) {
	return c.guard.forceRefresh(c.refresh(ctx))
}

func (c *TikTokConnector) IsAuthenticated() bool {
	return c.guard.authenticated(time.Now())
}

func (c *TikTokConnector) Status(ctx context.Context) PlatformStatus {
	status := PlatformStatus{Platform: PlatformTikTok}
	creds := c.guard.snapshot()
	if creds == nil || creds.AccessToken == "" {
		status.Error = "not connected"
		return status
	}
	openID, displayName, err := c.identity(ctx, creds.AccessToken)
	if err != nil {
		status.AccountID = creds.AccountID
		status.AccountName = creds.AccountName
		status.Error = err.Error()
		return status
	}
	now := time.Now().UTC()
	status.Connected = true
	status.AccountID = openID
	status.AccountName = displayName
	status.LastSync = &now
	return status
}

func (c *TikTokConnector) ValidateMedia(mediaType MediaType, _ string, sizeBytes int64) MediaValidation {
	var errs []string
	if mediaType != MediaVideo {
		errs = append(errs, "tiktok only supports video media")
	} else if sizeBytes > 0 && sizeBytes > tiktokVideoMaxBytes {
		errs = append(errs, fmt.Sprintf("video size %d bytes exceeds limit of %d bytes", sizeBytes, tiktokVideoMaxBytes))
	}
	return MediaValidation{Valid: len(errs) == 0, Errors: errs}
}

func (c *TikTokConnector) Publish(ctx context.Context, mediaURL string, mediaType MediaType, opts PublishOptions) PublishResult {
	return safePublish(PlatformTikTok, func() PublishResult {
		if v := c.ValidateMedia(mediaType, opts.AspectRatio, 0); !v.Valid {
			return failure(PlatformTikTok, ErrKindValidation, strings.Join(v.Errors, "; "))
		}
		creds, err := c.guard.withRefresh(c.refresh(ctx))
		if err != nil {
			return failure(PlatformTikTok, ErrKindAuth, err.Error())
		}
		caption := effectiveCaption(opts.Caption, opts.Hashtags, tiktokCaptionLimit)

		payload := map[string]any{
			"post_info": map[string]any{
				"title":         caption,
				"privacy_level": "PUBLIC_TO_EVERYONE",
			},
			"source_info": map[string]any{
				"source":    "PULL_FROM_URL",
				"video_url": mediaURL,
			},
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return failure(PlatformTikTok, ErrKindUnknown, err.Error())
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v2/post/publish/video/init/", bytes.NewReader(data))
		if err != nil {
			return failure(PlatformTikTok, ErrKindUnknown, err.Error())
		}
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return failure(PlatformTikTok, ErrKindNetwork, fmt.Sprintf("publish request: %v", err))
		}
		body := readBody(resp)
		if resp.StatusCode != http.StatusOK {
			return failure(PlatformTikTok, ErrKindNetwork, fmt.Sprintf("tiktok publish returned %d: %s", resp.StatusCode, string(body)))
		}
		var out struct {
			Data struct {
				PublishID string `json:"publish_id"`
			} `json:"data"`
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return failure(PlatformTikTok, ErrKindNetwork, fmt.Sprintf("parsing publish response: %v", err))
		}
		if out.Error.Code != "" && out.Error.Code != "ok" {
			return failure(PlatformTikTok, ErrKindNetwork, fmt.Sprintf("tiktok publish rejected: %s (%s)", out.Error.Message, out.Error.Code))
		}
		if out.Data.PublishID == "" {
			return failure(PlatformTikTok, ErrKindNetwork, "tiktok publish response missing publish_id")
		}

		logger.GetLogger().WithField("publish_id", out.Data.PublishID).Info("tiktok publish succeeded")
		return PublishResult{
			Platform: PlatformTikTok,
			Success:  true,
			PostID:   out.Data.PublishID,
			URL:      fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", creds.AccountName, out.Data.PublishID),
		}
	})
}

func (c *TikTokConnector) Disconnect() { c.guard.clear() }

func (c *TikTokConnector) Seed(creds *Credentials) { c.guard.set(creds) }

// CurrentCredentials returns a copy of the held credentials, or nil when the
// connector is unauthenticated.
func (c *TikTokConnector) CurrentCredentials() *Credentials { return c.guard.snapshot() }
