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

	"golang.org/x/oauth2"
)

const (
	tweetTextLimit       = 280
	twitterImageMaxBytes = 5 * 1024 * 1024
	twitterVideoMaxBytes = 512 * 1024 * 1024
	// Twitter wraps every URL with t.co at a fixed length.
	tcoURLLength = 23
)

// TwitterConnector implements the OAuth2 + PKCE flow for X/Twitter. The code
// verifier is generated per authorization attempt and parked in the injected
// StateStore so it survives the redirect round-trip; refresh tokens rotate on
// every refresh grant.
type TwitterConnector struct {
	cfg   *oauth2.Config
	store StateStore
	http  *http.Client
	guard credentialGuard

	apiBase string
}

func NewTwitterConnector(app AppCredentials, store StateStore) *TwitterConnector {
	scopes := app.Scopes
	if len(scopes) == 0 {
		scopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}
	}
	return &TwitterConnector{
		cfg: &oauth2.Config{
			ClientID:     app.ClientID,
			ClientSecret: app.ClientSecret,
			RedirectURL:  app.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://twitter.com/i/oauth2/authorize",
				TokenURL: "https://api.twitter.com/2/oauth2/token",
			},
		},
		store:   store,
		http:    newHTTPClient(),
		apiBase: "https://api.twitter.com",
	}
}

func (c *TwitterConnector) Platform() Platform { return PlatformTwitter }

// AuthURL derives an S256 code challenge from a fresh verifier and parks the
// verifier, and any caller-supplied redirect URI, in the state store until the
// callback comes back. The shared config is never mutated.
func (c *TwitterConnector) AuthURL(ctx context.Context, redirectURI string) (string, error) {
	cfg := *c.cfg
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
		if err := c.store.Put(ctx, redirectKey(PlatformTwitter), redirectURI, stateTTL); err != nil {
			return "", fmt.Errorf("storing redirect uri: %w", err)
		}
	}
	state := randomState()
	if err := c.store.Put(ctx, stateKey(PlatformTwitter, state), "1", stateTTL); err != nil {
		return "", fmt.Errorf("storing oauth state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()
	if err := c.store.Put(ctx, verifierKey(PlatformTwitter), verifier, stateTTL); err != nil {
		return "", fmt.Errorf("storing pkce verifier: %w", err)
	}
	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

func (c *TwitterConnector) Authenticate(ctx context.Context, code string) (*Credentials, error) {
	verifier, err := c.store.Consume(ctx, verifierKey(PlatformTwitter))
	if err != nil {
		return nil, fmt.Errorf("twitter pkce verifier: %w", err)
	}
	cfg := *c.cfg
	if redirect, err := c.store.Consume(ctx, redirectKey(PlatformTwitter)); err == nil && redirect != "" {
		cfg.RedirectURL = redirect
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("twitter token exchange: %w", err)
	}

	accountID, username, err := c.identity(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("twitter identity lookup: %w", err)
	}

	creds := &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		AccountID:    accountID,
		AccountName:  username,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		creds.ExpiresAt = &exp
	}
	c.guard.set(creds)
	cp := *creds
	return &cp, nil
}

func (c *TwitterConnector) identity(ctx context.Context, token string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/2/users/me", nil)
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
		return "", "", fmt.Errorf("users/me fetch failed: %s", string(body))
	}
	var out struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", "", err
	}
	return out.Data.ID, out.Data.Username, nil
}

// refresh posts a refresh_token grant directly; Twitter rotates the refresh
// token and expects the confidential client to authenticate with basic auth.
func (c *TwitterConnector) refresh(ctx context.Context) func(cur *Credentials) (*Credentials, error) {
	return func(cur *Credentials) (*Credentials, error) {
		if cur == nil || cur.RefreshToken == "" {
			return nil, fmt.Errorf("twitter: no refresh token available; re-authorization required")
		}
		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", cur.RefreshToken)
		form.Set("client_id", c.cfg.ClientID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("twitter token refresh request: %w", err)
		}
		body := readBody(resp)
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("twitter token refresh failed: %s", string(body))
		}
		var out struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			ExpiresIn    int64  `json:"expires_in"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("parsing twitter refresh response: %w", err)
		}
		if out.AccessToken == "" {
			return nil, fmt.Errorf("twitter refresh response missing access_token")
		}
		refreshToken := out.RefreshToken
		if refreshToken == "" {
			refreshToken = cur.RefreshToken
		}
		expiresAt := time.Now().Add(time.Duration(out.ExpiresIn) * time.Second).UTC()
		return &Credentials{
			AccessToken:  out.AccessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    &expiresAt,
			AccountID:    cur.AccountID,
			AccountName:  cur.AccountName,
		}, nil
	}
}

func (c *TwitterConnector) RefreshAccessToken(ctx context.Context) (*Credentials, error) {
	return c.guard.forceRefresh(c.refresh(ctx))
}

func (c *TwitterConnector) IsAuthenticated() bool {
	return c.guard.authenticated(time.Now())
}

func (c *TwitterConnector) Status(ctx context.Context) PlatformStatus {
	status := PlatformStatus{Platform: PlatformTwitter}
	creds := c.guard.snapshot()
	if creds == nil || creds.AccessToken == "" {
		status.Error = "not connected"
		return status
	}
	accountID, username, err := c.identity(ctx, creds.AccessToken)
	if err != nil {
		status.AccountID = creds.AccountID
		status.AccountName = creds.AccountName
		status.Error = err.Error()
		return status
	}
	now := time.Now().UTC()
	status.Connected = true
	status.AccountID = accountID
	status.AccountName = username
	status.LastSync = &now
	return status
}

func (c *TwitterConnector) ValidateMedia(mediaType MediaType, _ string, sizeBytes int64) MediaValidation {
	errs := validateSize(mediaType, sizeBytes, twitterImageMaxBytes, twitterVideoMaxBytes)
	return MediaValidation{Valid: len(errs) == 0, Errors: errs}
}

// tweetText budgets the 280-character cap across the caption, the hashtag line
// and the media link (counted at t.co length). Hashtags are dropped whole when
// they would push the combined text over the cap.
func tweetText(mediaURL string, opts PublishOptions) string {
	budget := tweetTextLimit
	if mediaURL != "" {
		budget -= tcoURLLength + 1
	}
	text := effectiveCaption(opts.Caption, opts.Hashtags, budget)
	if mediaURL != "" {
		if text != "" {
			text += "\n"
		}
		text += mediaURL
	}
	return text
}

func (c *TwitterConnector) Publish(ctx context.Context, mediaURL string, mediaType MediaType, opts PublishOptions) PublishResult {
	return safePublish(PlatformTwitter, func() PublishResult {
		if v := c.ValidateMedia(mediaType, opts.AspectRatio, 0); !v.Valid {
			return failure(PlatformTwitter, ErrKindValidation, strings.Join(v.Errors, "; "))
		}
		creds, err := c.guard.withRefresh(c.refresh(ctx))
		if err != nil {
			return failure(PlatformTwitter, ErrKindAuth, err.Error())
		}

		payload := map[string]any{"text": tweetText(mediaURL, opts)}
		data, err := json.Marshal(payload)
		if err != nil {
			return failure(PlatformTwitter, ErrKindUnknown, err.Error())
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/2/tweets", bytes.NewReader(data))
		if err != nil {
			return failure(PlatformTwitter, ErrKindUnknown, err.Error())
		}
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return failure(PlatformTwitter, ErrKindNetwork, fmt.Sprintf("publish request: %v", err))
		}
		body := readBody(resp)
		if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
			return failure(PlatformTwitter, ErrKindNetwork, fmt.Sprintf("twitter publish returned %d: %s", resp.StatusCode, string(body)))
		}
		var out struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return failure(PlatformTwitter, ErrKindNetwork, fmt.Sprintf("parsing publish response: %v", err))
		}
		if out.Data.ID == "" {
			return failure(PlatformTwitter, ErrKindNetwork, "twitter publish response missing tweet id")
		}

		logger.GetLogger().WithField("tweet_id", out.Data.ID).Info("twitter publish succeeded")
		return PublishResult{
			Platform: PlatformTwitter,
			Success:  true,
			PostID:   out.Data.ID,
			URL:      fmt.Sprintf("https://twitter.com/%s/status/%s", creds.AccountName, out.Data.ID),
		}
	})
}

func (c *TwitterConnector) Disconnect() { c.guard.clear() }

func (c *TwitterConnector) Seed(creds *Credentials) { c.guard.set(creds) }

// CurrentCredentials returns a copy of the held credentials, or nil when the
// connector is unauthenticated.
func (c *TwitterConnector) CurrentCredentials() *Credentials { return c.guard.snapshot() }
