package social

import (
	"context"
	"strings"
	"sync"

	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/logger"

	"golang.org/x/sync/errgroup"
)

// ManagerConfig carries the OAuth client registrations for every platform.
// Platforms without client credentials are simply not registered.
type ManagerConfig struct {
	Instagram AppCredentials
	TikTok    AppCredentials
	LinkedIn  AppCredentials
	Twitter   AppCredentials
}

// CredentialSink is notified whenever a connector obtains fresh credentials
// (authenticate or refresh) so the caller can persist them. Optional.
type CredentialSink func(p Platform, creds *Credentials)

// Manager is the registry and unified publish/auth surface over all configured
// connectors. The registry is built once at startup and read-only afterwards.
type Manager struct {
	connectors map[Platform]Connector
	store      StateStore
	sink       CredentialSink
}

// NewManager conditionally instantiates a connector for each platform whose
// client credentials are present in the configuration.
func NewManager(cfg ManagerConfig, store StateStore) *Manager {
	m := &Manager{connectors: make(map[Platform]Connector), store: store}
	if cfg.Instagram.Configured() {
		m.connectors[PlatformInstagram] = NewInstagramConnector(cfg.Instagram, store)
	}
	if cfg.TikTok.Configured() {
		m.connectors[PlatformTikTok] = NewTikTokConnector(cfg.TikTok, store)
	}
	if cfg.LinkedIn.Configured() {
		m.connectors[PlatformLinkedIn] = NewLinkedInConnector(cfg.LinkedIn, store)
	}
	if cfg.Twitter.Configured() {
		m.connectors[PlatformTwitter] = NewTwitterConnector(cfg.Twitter, store)
	}
	logger.GetLogger().WithField("platforms", m.Platforms()).Info("social platform registry built")
	return m
}

// WithCredentialSink registers the persistence hook; call before serving.
func (m *Manager) WithCredentialSink(sink CredentialSink) *Manager {
	m.sink = sink
	return m
}

// Connector returns the registered connector for a platform, if any.
func (m *Manager) Connector(p Platform) (Connector, bool) {
	c, ok := m.connectors[p]
	return c, ok
}

// Platforms lists the registered platforms in stable display order.
func (m *Manager) Platforms() []Platform {
	out := make([]Platform, 0, len(m.connectors))
	for _, p := range Platforms() {
		if _, ok := m.connectors[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// SeedCredentials loads persisted credentials into a registered connector,
// typically at startup from the token repository.
func (m *Manager) SeedCredentials(p Platform, creds *Credentials) {
	type seeder interface{ Seed(*Credentials) }
	if c, ok := m.connectors[p]; ok {
		if s, ok := c.(seeder); ok {
			s.Seed(creds)
		}
	}
}

// AuthURL builds the authorization redirect for one platform.
func (m *Manager) AuthURL(ctx context.Context, p Platform, redirectURI string) (string, error) {
	c, ok := m.connectors[p]
	if !ok {
		return "", &NotConfiguredError{Platform: p}
	}
	return c.AuthURL(ctx, redirectURI)
}

// ValidateState consumes a one-time anti-forgery state value; false means the
// value is unknown, expired, or replayed.
func (m *Manager) ValidateState(ctx context.Context, p Platform, state string) bool {
	if state == "" {
		return false
	}
	_, err := m.store.Consume(ctx, stateKey(p, state))
	return err == nil
}

// HandleAuthCallback bridges the OAuth redirect back into the connector's
// authenticate. Only a boolean outcome crosses this boundary; error detail is
// logged for the operator.
func (m *Manager) HandleAuthCallback(ctx context.Context, p Platform, code string) bool {
	c, ok := m.connectors[p]
	if !ok {
		logger.GetLogger().WithField("platform", p).Warn("auth callback for unconfigured platform")
		return false
	}
	creds, err := c.Authenticate(ctx, code)
	if err != nil {
		logger.GetLogger().WithField("platform", p).WithField("error", err.Error()).Error("authentication failed")
		return false
	}
	logger.GetLogger().WithField("platform", p).WithField("account", creds.AccountName).Info("platform connected")
	if m.sink != nil {
		m.sink(p, creds)
	}
	return true
}

// Publish validates preconditions and forwards to the connector. Connectors
// re-check defensively because they are independently callable, but by the time
// their publish runs the basic preconditions already hold.
func (m *Manager) Publish(ctx context.Context, p Platform, mediaURL string, mediaType MediaType, opts PublishOptions) PublishResult {
	c, ok := m.connectors[p]
	if !ok {
		return failure(p, ErrKindConfiguration, string(p)+" platform not configured")
	}
	if !c.IsAuthenticated() {
		return failure(p, ErrKindAuth, string(p)+" not authenticated")
	}
	if v := c.ValidateMedia(mediaType, opts.AspectRatio, 0); !v.Valid {
		return failure(p, ErrKindValidation, strings.Join(v.Errors, "; "))
	}
	res := c.Publish(ctx, mediaURL, mediaType, opts)
	if res.Success && m.sink != nil {
		// Publish may have refreshed the token; persist whatever is current.
		if snap, ok := c.(interface{ CurrentCredentials() *Credentials }); ok {
			if creds := snap.CurrentCredentials(); creds != nil {
				m.sink(p, creds)
			}
		}
	}
	return res
}

// PublishAll fans one payload out to every requested platform concurrently.
// The result map always holds exactly one entry per requested platform; no
// platform's failure cancels another's attempt.
func (m *Manager) PublishAll(ctx context.Context, platforms []Platform, mediaURL string, mediaType MediaType, opts PublishOptions) map[Platform]PublishResult {
	results := make(map[Platform]PublishResult, len(platforms))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range platforms {
		p := p
		g.Go(func() error {
			res := m.Publish(ctx, p, mediaURL, mediaType, opts)
			mu.Lock()
			results[p] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// StatusAll checks every registered connector concurrently.
func (m *Manager) StatusAll(ctx context.Context) map[Platform]PlatformStatus {
	statuses := make(map[Platform]PlatformStatus, len(m.connectors))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for p, c := range m.connectors {
		p, c := p, c
		g.Go(func() error {
			st := c.Status(ctx)
			mu.Lock()
			statuses[p] = st
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}

// Disconnect clears a platform's held credentials.
func (m *Manager) Disconnect(p Platform) bool {
	c, ok := m.connectors[p]
	if !ok {
		return false
	}
	c.Disconnect()
	return true
}

// NotConfiguredError marks a request against a platform absent from the
// registry (missing client credentials).
type NotConfiguredError struct {
	Platform Platform
}

func (e *NotConfiguredError) Error() string {
	return string(e.Platform) + " platform not configured"
}
