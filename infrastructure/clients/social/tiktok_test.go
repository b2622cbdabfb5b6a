package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTikTokTest(t *testing.T, handler http.Handler) *TikTokConnector {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewTikTokConnector(AppCredentials{
		ClientID:     "tt-key",
		ClientSecret: "tt-secret",
		RedirectURI:  "https://app.example.org/auth/tiktok/callback",
	}, NewMemoryStateStore())
	c.authBase = srv.URL
	c.apiBase = srv.URL
	return c
}

func TestTikTokAuthURLUsesClientKey(t *testing.T) {
	c := NewTikTokConnector(AppCredentials{ClientID: "tt-key", ClientSecret: "s"}, NewMemoryStateStore())
	raw, err := c.AuthURL(context.Background(), "https://app.example.org/cb")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "tt-key", q.Get("client_key"), "tiktok names the client identifier client_key")
	assert.Empty(t, q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "video.publish")
	assert.NotEmpty(t, q.Get("state"))
}

func TestTikTokAuthenticate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tt-key", r.PostFormValue("client_key"))
		assert.Equal(t, "authorization_code", r.PostFormValue("grant_type"))
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":86400,"open_id":"open-1"}`))
	})
	mux.HandleFunc("/v2/user/info/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"user":{"open_id":"open-1","display_name":"blkoutuk"}},"error":{"code":"ok"}}`))
	})
	c := newTikTokTest(t, mux)

	creds, err := c.Authenticate(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "at-1", creds.AccessToken)
	assert.Equal(t, "rt-1", creds.RefreshToken)
	assert.Equal(t, "open-1", creds.AccountID)
	assert.Equal(t, "blkoutuk", creds.AccountName)
}

func TestTikTokRefreshRotatesRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostFormValue("grant_type"))
		assert.Equal(t, "rt-old", r.PostFormValue("refresh_token"))
		w.Write([]byte(`{"access_token":"at-new","refresh_token":"rt-new","expires_in":86400}`))
	})
	c := newTikTokTest(t, mux)
	c.Seed(&Credentials{AccessToken: "at-old", RefreshToken: "rt-old", AccountID: "open-1"})

	creds, err := c.RefreshAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-new", creds.AccessToken)
	assert.Equal(t, "rt-new", creds.RefreshToken, "rotated refresh token must replace the old one")
}

func TestTikTokRefreshKeepsOldTokenWhenNotRotated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"at-new","expires_in":86400}`))
	})
	c := newTikTokTest(t, mux)
	c.Seed(&Credentials{AccessToken: "at-old", RefreshToken: "rt-keep"})

	creds, err := c.RefreshAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rt-keep", creds.RefreshToken)
}

func TestTikTokRefreshRejectedGrant(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
	})
	c := newTikTokTest(t, mux)
	c.Seed(&Credentials{AccessToken: "at", RefreshToken: "rt"})

	_, err := c.RefreshAccessToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestTikTokValidateMediaVideoOnly(t *testing.T) {
	c := NewTikTokConnector(AppCredentials{ClientID: "a", ClientSecret: "b"}, NewMemoryStateStore())

	v := c.ValidateMedia(MediaImage, "", 1024)
	assert.False(t, v.Valid)
	assert.Contains(t, v.Errors[0], "only supports video")

	assert.True(t, c.ValidateMedia(MediaVideo, "", 100*1024*1024).Valid)
	assert.False(t, c.ValidateMedia(MediaVideo, "", tiktokVideoMaxBytes+1).Valid)
}

func TestTikTokPublish(t *testing.T) {
	var payload map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/post/publish/video/init/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Write([]byte(`{"data":{"publish_id":"pub-7"},"error":{"code":"ok"}}`))
	})
	c := newTikTokTest(t, mux)
	c.Seed(&Credentials{AccessToken: "at-1", RefreshToken: "rt", AccountID: "open-1", AccountName: "blkoutuk"})

	res := c.Publish(context.Background(), "https://cdn.example.org/clip.mp4", MediaVideo, PublishOptions{Caption: "New drop"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "pub-7", res.PostID)
	assert.Equal(t, "https://www.tiktok.com/@blkoutuk/video/pub-7", res.URL)

	source := payload["source_info"].(map[string]any)
	assert.Equal(t, "PULL_FROM_URL", source["source"])
	assert.Equal(t, "https://cdn.example.org/clip.mp4", source["video_url"])
	post := payload["post_info"].(map[string]any)
	assert.Equal(t, "New drop", post["title"])
}

func TestTikTokPublishRejectsImages(t *testing.T) {
	c := newTikTokTest(t, http.NewServeMux())
	c.Seed(&Credentials{AccessToken: "at", RefreshToken: "rt"})

	res := c.Publish(context.Background(), "https://cdn/x.png", MediaImage, PublishOptions{})
	assert.False(t, res.Success)
	assert.Equal(t, ErrKindValidation, res.Kind)
}

func TestTikTokPublishApiError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/post/publish/video/init/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{},"error":{"code":"spam_risk","message":"too many posts"}}`))
	})
	c := newTikTokTest(t, mux)
	c.Seed(&Credentials{AccessToken: "at", RefreshToken: "rt"})

	res := c.Publish(context.Background(), "https://cdn/x.mp4", MediaVideo, PublishOptions{})
	assert.False(t, res.Success)
	assert.Equal(t, ErrKindNetwork, res.Kind)
	assert.Contains(t, res.Error, "too many posts")
}

func TestTikTokPublishRefreshesExpiredToken(t *testing.T) {
	refreshed := false
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token/", func(w http.ResponseWriter, r *http.Request) {
		refreshed = true
		w.Write([]byte(`{"access_token":"at-fresh","refresh_token":"rt-2","expires_in":86400}`))
	})
	mux.HandleFunc("/v2/post/publish/video/init/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-fresh", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"publish_id":"pub-8"},"error":{"code":"ok"}}`))
	})
	c := newTikTokTest(t, mux)
	stale := time.Now().Add(-time.Minute)
	c.Seed(&Credentials{AccessToken: "at-stale", RefreshToken: "rt-1", ExpiresAt: &stale, AccountName: "blkoutuk"})

	res := c.Publish(context.Background(), "https://cdn/x.mp4", MediaVideo, PublishOptions{})
	require.True(t, res.Success, res.Error)
	assert.True(t, refreshed, "expired token must be refreshed before the publish call")
	assert.Equal(t, "rt-2", c.CurrentCredentials().RefreshToken)
}

func TestTikTokAuthenticateReplaysAuthURLRedirect(t *testing.T) {
	var gotRedirect string
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotRedirect = r.PostFormValue("redirect_uri")
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":86400,"open_id":"open-1"}`))
	})
	mux.HandleFunc("/v2/user/info/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"user":{"open_id":"open-1","display_name":"blkoutuk"}},"error":{"code":"ok"}}`))
	})
	c := newTikTokTest(t, mux)

	_, err := c.AuthURL(context.Background(), "https://app.example.org/popup-cb")
	require.NoError(t, err)

	_, err = c.Authenticate(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.org/popup-cb", gotRedirect,
		"token grant presents the redirect the authorization request carried")
}
