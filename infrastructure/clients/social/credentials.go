package social

import (
	"sync"
	"time"
)

// Credentials is the authentication state one connector holds for its platform.
// Each connector owns its credentials exclusively; nothing is shared across
// connectors.
type Credentials struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	AccountID    string     `json:"account_id"`
	AccountName  string     `json:"account_name"`
}

// Valid reports whether the access token can still be presented: present, and
// either without a recorded expiry or not yet expired.
func (c *Credentials) Valid(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	if c.ExpiresAt == nil {
		return true
	}
	return c.ExpiresAt.After(now)
}

// refreshSkew is how close to expiry a token may get before an authenticated
// call refreshes it first.
const refreshSkew = 60 * time.Second

// credentialGuard wraps a connector's credentials in a mutex so concurrent
// publishes on the same connector never race a token refresh. Refresh callers
// must hold the guard for the whole check-then-refresh sequence.
type credentialGuard struct {
	mu    sync.Mutex
	creds *Credentials
}

// snapshot returns a copy of the current credentials, or nil when none are held.
func (g *credentialGuard) snapshot() *Credentials {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.creds == nil {
		return nil
	}
	cp := *g.creds
	return &cp
}

func (g *credentialGuard) set(c *Credentials) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creds = c
}

func (g *credentialGuard) clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creds = nil
}

func (g *credentialGuard) authenticated(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creds.Valid(now)
}

// withRefresh runs refresh under the guard when the held token is missing its
// validity window (expired or inside the skew). A second caller that blocked on
// the lock while a refresh was in flight observes the fresh token and skips the
// redundant call. Refresh failure leaves the previous credentials in place; the
// caller decides whether to re-authorize.
func (g *credentialGuard) withRefresh(refresh func(cur *Credentials) (*Credentials, error)) (*Credentials, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if g.creds != nil && g.creds.AccessToken != "" {
		if g.creds.ExpiresAt == nil || g.creds.ExpiresAt.After(now.Add(refreshSkew)) {
			cp := *g.creds
			return &cp, nil
		}
	}
	fresh, err := refresh(g.creds)
	if err != nil {
		return nil, err
	}
	g.creds = fresh
	cp := *fresh
	return &cp, nil
}

// forceRefresh always runs the refresh call, serialized with every other
// credential access on the connector.
func (g *credentialGuard) forceRefresh(refresh func(cur *Credentials) (*Credentials, error)) (*Credentials, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fresh, err := refresh(g.creds)
	if err != nil {
		return nil, err
	}
	g.creds = fresh
	cp := *fresh
	return &cp, nil
}
