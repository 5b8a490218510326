//go:build integration

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakedesk/pkg/platform/middleware/auth"
	"intakedesk/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	cache := NewRedisCache(rc.Client)

	t.Run("miss on an absent key", func(t *testing.T) {
		_, err := cache.Get(ctx, "identity:token:absent")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("entries carry their TTL", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "identity:token:k", []byte(`{"user_id":"u-1"}`), 30*time.Second))

		got, err := cache.Get(ctx, "identity:token:k")
		require.NoError(t, err)
		assert.JSONEq(t, `{"user_id":"u-1"}`, string(got))

		ttl, err := rc.Client.TTL(ctx, "identity:token:k").Result()
		require.NoError(t, err)
		assert.InDelta(t, 30*time.Second, ttl, float64(2*time.Second))
	})

	t.Run("verifier reuses the redis entry", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		calls := 0
		inner := auth.VerifierFunc(func(context.Context, string) (*auth.Identity, error) {
			calls++
			return &auth.Identity{UserID: "u-1", Email: "owner@startuplab.example"}, nil
		})
		v := NewCachedVerifier(inner, cache, time.Minute)

		for range 3 {
			id, err := v.VerifyToken(ctx, "opaque-session")
			require.NoError(t, err)
			assert.Equal(t, "owner@startuplab.example", id.Email)
		}
		assert.Equal(t, 1, calls)
	})
}
