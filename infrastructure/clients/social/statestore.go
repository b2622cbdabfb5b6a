package social

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrStateNotFound is returned when a one-time OAuth value (anti-forgery state
// or PKCE verifier) is absent or already consumed.
var ErrStateNotFound = errors.New("oauth state not found or expired")

// stateTTL bounds how long a redirect round-trip may take.
const stateTTL = 10 * time.Minute

// StateStore is the short-lived key/value storage the OAuth flows need across
// the redirect round-trip: anti-forgery state values for every platform and the
// PKCE code verifier for platforms that use it. The store is injected by the
// caller; connectors do not own its lifetime.
type StateStore interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Consume returns the value and deletes it; one-shot semantics keep codes
	// and verifiers from being replayed.
	Consume(ctx context.Context, key string) (string, error)
}

func stateKey(p Platform, state string) string {
	return fmt.Sprintf("social:state:%s:%s", p, state)
}

func verifierKey(p Platform) string {
	return fmt.Sprintf("social:pkce:%s", p)
}

// redirectKey holds a caller-supplied redirect URI between AuthURL and the
// token exchange, so both legs of the flow present the same value.
func redirectKey(p Platform) string {
	return fmt.Sprintf("social:redirect:%s", p)
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStateStore is the in-process fallback used when Redis is not available.
// Entries expire lazily on access.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{entries: map[string]memoryEntry{}}
}

func (s *MemoryStateStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	if !ok || time.Now().After(e.expiresAt) {
		return "", ErrStateNotFound
	}
	return e.value, nil
}
