package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const (
	linkedinCaptionLimit  = 3000
	linkedinImageMaxBytes = 8 * 1024 * 1024
	linkedinVideoMaxBytes = 200 * 1024 * 1024
)

// LinkedInConnector uses the plain authorization-code grant (state only, no
// PKCE) and posts UGC shares on behalf of the authenticated member.
type LinkedInConnector struct {
	cfg   *oauth2.Config
	store StateStore
	http  *http.Client
	guard credentialGuard

	apiBase string
}

func NewLinkedInConnector(app AppCredentials, store StateStore) *LinkedInConnector {
	scopes := app.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "w_member_social"}
	}
	return &LinkedInConnector{
		cfg: &oauth2.Config{
			ClientID:     app.ClientID,
			ClientSecret: app.ClientSecret,
			RedirectURL:  app.RedirectURI,
			Scopes:       scopes,
			Endpoint:     linkedin.Endpoint,
		},
		store:   store,
		http:    newHTTPClient(),
		apiBase: "https://api.linkedin.com",
	}
}

func (c *LinkedInConnector) Platform() Platform { return PlatformLinkedIn }

// AuthURL parks any caller-supplied redirect URI in the state store so the
// token exchange replays the same value. The shared config is never mutated.
func (c *LinkedInConnector) AuthURL(ctx context.Context, redirectURI string) (string, error) {
	cfg := *c.cfg
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
		if err := c.store.Put(ctx, redirectKey(PlatformLinkedIn), redirectURI, stateTTL); err != nil {
			return "", fmt.Errorf("storing redirect uri: %w", err)
		}
	}
	state := randomState()
	if err := c.store.Put(ctx, stateKey(PlatformLinkedIn, state), "1", stateTTL); err != nil {
		return "", fmt.Errorf("storing oauth state: %w", err)
	}
	return cfg.AuthCodeURL(state), nil
}

func (c *LinkedInConnector) Authenticate(ctx context.Context, code string) (*Credentials, error) {
	cfg := *c.cfg
	if redirect, err := c.store.Consume(ctx, redirectKey(PlatformLinkedIn)); err == nil && redirect != "" {
		cfg.RedirectURL = redirect
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("linkedin token exchange: %w", err)
	}

	accountID, accountName, err := c.identity(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("linkedin identity lookup: %w", err)
	}

	creds := &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		AccountID:    accountID,
		AccountName:  accountName,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		creds.ExpiresAt = &exp
	}
	c.guard.set(creds)
	cp := *creds
	return &cp, nil
}

// identity calls the OpenID userinfo endpoint; used at authentication time and
// for connection status checks.
func (c *LinkedInConnector) identity(ctx context.Context, token string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v2/userinfo", nil)
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
		return "", "", fmt.Errorf("userinfo fetch failed: %s", string(body))
	}
	var me struct {
		Sub  string `json:"sub"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return "", "", err
	}
	return me.Sub, me.Name, nil
}

func (c *LinkedInConnector) refresh(ctx context.Context) func(cur *Credentials) (*Credentials, error) {
	return func(cur *Credentials) (*Credentials, error) {
		if cur == nil || cur.RefreshToken == "" {
			return nil, fmt.Errorf("linkedin: no refresh token available; re-authorization required")
		}
		ctx := context.WithValue(ctx, oauth2.HTTPClient, c.http)
		src := c.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cur.RefreshToken})
		tok, err := src.Token()
		if err != nil {
			return nil, fmt.Errorf("linkedin token refresh: %w", err)
		}
		refreshToken := tok.RefreshToken
		if refreshToken == "" {
			refreshToken = cur.RefreshToken
		}
		fresh := &Credentials{
			AccessToken:  tok.AccessToken,
			RefreshToken: refreshToken,
			AccountID:    cur.AccountID,
			AccountName:  cur.AccountName,
		}
		if !tok.Expiry.IsZero() {
			exp := tok.Expiry.UTC()
			fresh.ExpiresAt = &exp
		}
		return fresh, nil
	}
}

func (c *LinkedInConnector) RefreshAccessToken(ctx context.Context) (*Credentials, error) {
	return c.guard.forceRefresh(c.refresh(ctx))
}

func (c *LinkedInConnector) IsAuthenticated() bool {
	return c.guard.authenticated(time.Now())
}

func (c *LinkedInConnector) Status(ctx context.Context) PlatformStatus {
	status := PlatformStatus{Platform: PlatformLinkedIn}
	creds := c.guard.snapshot()
	if creds == nil || creds.AccessToken == "" {
		status.Error = "not connected"
		return status
	}
	accountID, accountName, err := c.identity(ctx, creds.AccessToken)
	if err != nil {
		status.AccountID = creds.AccountID
		status.AccountName = creds.AccountName
		status.Error = err.Error()
		return status
	}
	now := time.Now().UTC()
	status.Connected = true
	status.AccountID = accountID
	status.AccountName = accountName
	status.LastSync = &now
	return status
}

func (c *LinkedInConnector) ValidateMedia(mediaType MediaType, _ string, sizeBytes int64) MediaValidation {
	errs := validateSize(mediaType, sizeBytes, linkedinImageMaxBytes, linkedinVideoMaxBytes)
	return MediaValidation{Valid: len(errs) == 0, Errors: errs}
}

func (c *LinkedInConnector) Publish(ctx context.Context, mediaURL string, mediaType MediaType, opts PublishOptions) PublishResult {
	return safePublish(PlatformLinkedIn, func() PublishResult {
		if v := c.ValidateMedia(mediaType, opts.AspectRatio, 0); !v.Valid {
			return failure(PlatformLinkedIn, ErrKindValidation, strings.Join(v.Errors, "; "))
		}
		creds, err := c.guard.withRefresh(c.refresh(ctx))
		if err != nil {
			return failure(PlatformLinkedIn, ErrKindAuth, err.Error())
		}
		caption := effectiveCaption(opts.Caption, opts.Hashtags, linkedinCaptionLimit)

		mediaCategory := "IMAGE"
		if mediaType == MediaVideo {
			mediaCategory = "VIDEO"
		}
		payload := map[string]any{
			"author":         "urn:li:person:" + creds.AccountID,
			"lifecycleState": "PUBLISHED",
			"specificContent": map[string]any{
				"com.linkedin.ugc.ShareContent": map[string]any{
					"shareCommentary":    map[string]any{"text": caption},
					"shareMediaCategory": mediaCategory,
					"media": []map[string]any{
						{"status": "READY", "originalUrl": mediaURL},
					},
				},
			},
			"visibility": map[string]any{
				"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
			},
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return failure(PlatformLinkedIn, ErrKindUnknown, err.Error())
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v2/ugcPosts", bytes.NewReader(data))
		if err != nil {
			return failure(PlatformLinkedIn, ErrKindUnknown, err.Error())
		}
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
		resp, err := c.http.Do(req)
		if err != nil {
			return failure(PlatformLinkedIn, ErrKindNetwork, fmt.Sprintf("publish request: %v", err))
		}
		body := readBody(resp)
		if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
			return failure(PlatformLinkedIn, ErrKindNetwork, fmt.Sprintf("linkedin publish returned %d: %s", resp.StatusCode, string(body)))
		}
		var out struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return failure(PlatformLinkedIn, ErrKindNetwork, fmt.Sprintf("parsing publish response: %v", err))
		}
		postID := out.ID
		if postID == "" {
			postID = resp.Header.Get("X-RestLi-Id")
		}
		if postID == "" {
			return failure(PlatformLinkedIn, ErrKindNetwork, "linkedin publish response missing post id")
		}

		logger.GetLogger().WithField("post_id", postID).Info("linkedin publish succeeded")
		return PublishResult{
			Platform: PlatformLinkedIn,
			Success:  true,
			PostID:   postID,
			URL:      fmt.Sprintf("https://www.linkedin.com/feed/update/%s", postID),
		}
	})
}

func (c *LinkedInConnector) Disconnect() { c.guard.clear() }

func (c *LinkedInConnector) Seed(creds *Credentials) { c.guard.set(creds) }

// CurrentCredentials returns a copy of the held credentials, or nil when the
// connector is unauthenticated.
func (c *LinkedInConnector) CurrentCredentials() *Credentials { return c.guard.snapshot() }
