package social

import (
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
	instagramCaptionLimit  = 2200
	instagramImageMaxBytes = 8 * 1024 * 1024
	instagramVideoMaxBytes = 100 * 1024 * 1024
)

var instagramAspectRatios = map[string]struct{}{
	"1:1": {}, "4:5": {}, "1.91:1": {}, "9:16": {},
}

// InstagramConnector publishes to Instagram business accounts through the
// Graph API. Token exchange is two-step: the authorization code buys a
// short-lived token which is immediately traded for a long-lived one. The
// long-lived token refreshes by presenting itself (ig_refresh_token grant), so
// no separate refresh token is stored.
type InstagramConnector struct {
	app   AppCredentials
	store StateStore
	http  *http.Client
	guard credentialGuard

	authBase  string
	tokenBase string
	apiBase   string
}

func NewInstagramConnector(app AppCredentials, store StateStore) *InstagramConnector {
	return &InstagramConnector{
		app:       app,
		store:     store,
		http:      newHTTPClient(),
		authBase:  "https://www.instagram.com",
		tokenBase: "https://api.instagram.com",
		apiBase:   "https://graph.instagram.com",
	}
}

func (c *InstagramConnector) Platform() Platform { return PlatformInstagram }

type instagramAuthParams struct {
	ClientID     string `url:"client_id"`
	RedirectURI  string `url:"redirect_uri"`
	Scope        string `url:"scope"`
	ResponseType string `url:"response_type"`
	State        string `url:"state"`
}

func (c *InstagramConnector) AuthURL(ctx context.Context, redirectURI string) (string, error) {
	if redirectURI == "" {
		redirectURI = c.app.RedirectURI
	} else if err := c.store.Put(ctx, redirectKey(PlatformInstagram), redirectURI, stateTTL); err != nil {
		return "", fmt.Errorf("storing redirect uri: %w", err)
	}
	state := randomState()
	if err := c.store.Put(ctx, stateKey(PlatformInstagram, state), "1", stateTTL); err != nil {
		return "", fmt.Errorf("storing oauth state: %w", err)
	}
	scopes := c.app.Scopes
	if len(scopes) == 0 {
		scopes = []string{"instagram_business_basic", "instagram_business_content_publish"}
	}
	v, err := query.Values(instagramAuthParams{
		ClientID:     c.app.ClientID,
		RedirectURI:  redirectURI,
		Scope:        strings.Join(scopes, ","),
		ResponseType: "code",
		State:        state,
	})
	if err != nil {
		return "", err
	}
	return c.authBase + "/oauth/authorize?" + v.Encode(), nil
}

func (c *InstagramConnector) Authenticate(ctx context.Context, code string) (*Credentials, error) {
	redirect := c.app.RedirectURI
	if v, err := c.store.Consume(ctx, redirectKey(PlatformInstagram)); err == nil && v != "" {
		redirect = v
	}

	// 1. Authorization code -> short-lived token
	form := url.Values{}
	form.Set("client_id", c.app.ClientID)
	form.Set("client_secret", c.app.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", redirect)
	form.Set("code", code)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenBase+"/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("instagram token exchange request: %w", err)
	}
	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram token exchange failed: %s", string(body))
	}
	var short struct {
		AccessToken string      `json:"access_token"`
		UserID      json.Number `json:"user_id"`
	}
	if err := json.Unmarshal(body, &short); err != nil {
		return nil, fmt.Errorf("parsing instagram token response: %w", err)
	}

	// 2. Short-lived -> long-lived token
	llURL := fmt.Sprintf("%s/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		c.apiBase, url.QueryEscape(c.app.ClientSecret), url.QueryEscape(short.AccessToken))
	llReq, err := http.NewRequestWithContext(ctx, http.MethodGet, llURL, nil)
	if err != nil {
		return nil, err
	}
	llResp, err := c.http.Do(llReq)
	if err != nil {
		return nil, fmt.Errorf("instagram long-lived exchange request: %w", err)
	}
	llBody := readBody(llResp)
	if llResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram long-lived exchange failed: %s", string(llBody))
	}
	var ll struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(llBody, &ll); err != nil {
		return nil, fmt.Errorf("parsing instagram long-lived token: %w", err)
	}

	// 3. Identity lookup; a failure here fails the whole authentication so no
	// partially-authenticated state is retained.
	accountID, accountName, err := c.identity(ctx, ll.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("instagram identity lookup: %w", err)
	}
	if accountID == "" {
		accountID = short.UserID.String()
	}

	expiresAt := time.Now().Add(time.Duration(ll.ExpiresIn) * time.Second).UTC()
	creds := &Credentials{
		AccessToken: ll.AccessToken,
		ExpiresAt:   &expiresAt,
		AccountID:   accountID,
		AccountName: accountName,
	}
	c.guard.set(creds)
	cp := *creds
	return &cp, nil
}

func (c *InstagramConnector) identity(ctx context.Context, token string) (string, string, error) {
	meURL := fmt.Sprintf("%s/me?fields=id,username&access_token=%s", c.apiBase, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", err
	}
	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("profile fetch failed: %s", string(body))
	}
	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return "", "", err
	}
	return me.ID, me.Username, nil
}

// refresh trades the current long-lived token for a fresh one.
func (c *InstagramConnector) refresh(ctx context.Context) func(cur *Credentials) (*Credentials, error) {
	return func(cur *Credentials) (*Credentials, error) {
		if cur == nil || cur.AccessToken == "" {
			return nil, fmt.Errorf("instagram: no token available to refresh; re-authorization required")
		}
		refreshURL := fmt.Sprintf("%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
			c.apiBase, url.QueryEscape(cur.AccessToken))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, refreshURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("instagram token refresh request: %w", err)
		}
		body := readBody(resp)
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("instagram token refresh failed: %s", string(body))
		}
		var out struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int64  `json:"expires_in"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("parsing instagram refresh response: %w", err)
		}
		expiresAt := time.Now().Add(time.Duration(out.ExpiresIn) * time.Second).UTC()
		return &Credentials{
			AccessToken: out.AccessToken,
			ExpiresAt:   &expiresAt,
			AccountID:   cur.AccountID,
			AccountName: cur.AccountName,
		}, nil
	}
}

func (c *InstagramConnector) RefreshAccessToken(ctx context.Context) (*Credentials, error) {
	return c.guard.forceRefresh(c.refresh(ctx))
}

func (c *InstagramConnector) IsAuthenticated() bool {
	return c.guard.authenticated(time.Now())
}

func (c *InstagramConnector) Status(ctx context.Context) PlatformStatus {
	status := PlatformStatus{Platform: PlatformInstagram}
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

func (c *InstagramConnector) ValidateMedia(mediaType MediaType, aspectRatio string, sizeBytes int64) MediaValidation {
	errs := validateSize(mediaType, sizeBytes, instagramImageMaxBytes, instagramVideoMaxBytes)
	if aspectRatio != "" {
		if _, ok := instagramAspectRatios[aspectRatio]; !ok {
			errs = append(errs, fmt.Sprintf("aspect ratio %s not supported by instagram", aspectRatio))
		}
	}
	return MediaValidation{Valid: len(errs) == 0, Errors: errs}
}

// Publish creates a media container then publishes it; both steps are one
// Graph API POST each.
func (c *InstagramConnector) Publish(ctx context.Context, mediaURL string, mediaType MediaType, opts PublishOptions) PublishResult {
	return safePublish(PlatformInstagram, func() PublishResult {
		if v := c.ValidateMedia(mediaType, opts.AspectRatio, 0); !v.Valid {
			return failure(PlatformInstagram, ErrKindValidation, strings.Join(v.Errors, "; "))
		}
		creds, err := c.guard.withRefresh(c.refresh(ctx))
		if err != nil {
			return failure(PlatformInstagram, ErrKindAuth, err.Error())
		}
		caption := effectiveCaption(opts.Caption, opts.Hashtags, instagramCaptionLimit)

		form := url.Values{}
		form.Set("caption", caption)
		form.Set("access_token", creds.AccessToken)
		if mediaType == MediaVideo {
			form.Set("media_type", "REELS")
			form.Set("video_url", mediaURL)
		} else {
			form.Set("image_url", mediaURL)
		}
		containerID, err := c.graphPost(ctx, fmt.Sprintf("%s/%s/media", c.apiBase, url.PathEscape(creds.AccountID)), form)
		if err != nil {
			return failure(PlatformInstagram, ErrKindNetwork, fmt.Sprintf("creating media container: %v", err))
		}

		publishForm := url.Values{}
		publishForm.Set("creation_id", containerID)
		publishForm.Set("access_token", creds.AccessToken)
		mediaID, err := c.graphPost(ctx, fmt.Sprintf("%s/%s/media_publish", c.apiBase, url.PathEscape(creds.AccountID)), publishForm)
		if err != nil {
			return failure(PlatformInstagram, ErrKindNetwork, fmt.Sprintf("publishing media container: %v", err))
		}

		logger.GetLogger().WithField("media_id", mediaID).Info("instagram publish succeeded")
		return PublishResult{
			Platform: PlatformInstagram,
			Success:  true,
			PostID:   mediaID,
			URL:      fmt.Sprintf("https://www.instagram.com/p/%s", mediaID),
		}
	})
}

func (c *InstagramConnector) graphPost(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("instagram api returned %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("instagram api response missing id: %s", string(body))
	}
	return out.ID, nil
}

func (c *InstagramConnector) Disconnect() { c.guard.clear() }

// Seed loads previously persisted credentials into the connector.
func (c *InstagramConnector) Seed(creds *Credentials) { c.guard.set(creds) }

// CurrentCredentials returns a copy of the held credentials, or nil when the
// connector is unauthenticated.
func (c *InstagramConnector) CurrentCredentials() *Credentials { return c.guard.snapshot() }
