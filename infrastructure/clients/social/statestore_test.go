package social

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateStoreConsumeIsOneShot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStateStore()
	require.NoError(t, s.Put(ctx, stateKey(PlatformTwitter, "abc"), "1", stateTTL))

	val, err := s.Consume(ctx, stateKey(PlatformTwitter, "abc"))
	require.NoError(t, err)
	assert.Equal(t, "1", val)

	_, err = s.Consume(ctx, stateKey(PlatformTwitter, "abc"))
	assert.ErrorIs(t, err, ErrStateNotFound, "replayed state must be rejected")
}

func TestMemoryStateStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStateStore()
	require.NoError(t, s.Put(ctx, "k", "v", -time.Second))
	_, err := s.Consume(ctx, "k")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestMemoryStateStoreUnknownKey(t *testing.T) {
	s := NewMemoryStateStore()
	_, err := s.Consume(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateKeysArePerPlatform(t *testing.T) {
	assert.NotEqual(t, stateKey(PlatformTikTok, "s"), stateKey(PlatformTwitter, "s"))
	assert.Equal(t, "social:pkce:twitter", verifierKey(PlatformTwitter))
}

func TestRandomStateIsUnique(t *testing.T) {
	assert.NotEqual(t, randomState(), randomState())
	assert.Len(t, randomState(), 32)
}
