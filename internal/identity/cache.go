package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"intakedesk/pkg/platform/middleware/auth"
)

// tokenKeyPrefix namespaces verified tokens; the token itself is never stored.
const tokenKeyPrefix = "identity:token:"

// ErrCacheMiss is returned by Cache.Get for an absent key.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the key/value store behind CachedVerifier.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache stores verified identities in Redis with a per-key TTL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps a connected client. Its lifecycle stays with the caller.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CacheMetrics counts cache lookups by result.
type CacheMetrics struct {
	Lookups *prometheus.CounterVec
}

// NewCacheMetrics registers the cache counters on reg.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	return &CacheMetrics{
		Lookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "identity_token_cache_lookups_total",
			Help: "Identity token cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}
}

func (m *CacheMetrics) inc(result string) {
	if m != nil {
		m.Lookups.WithLabelValues(result).Inc()
	}
}

// CachedVerifier answers repeat verifications of the same bearer token from a
// cache. An entry never outlives the token's own exp claim nor maxTTL; failed
// verifications are not cached. Cache errors fall through to the wrapped
// verifier.
type CachedVerifier struct {
	next    auth.Verifier
	cache   Cache
	maxTTL  time.Duration
	logger  *slog.Logger
	metrics *CacheMetrics
	now     func() time.Time
}

// CachedVerifierOption configures a CachedVerifier.
type CachedVerifierOption func(*CachedVerifier)

func WithCacheLogger(logger *slog.Logger) CachedVerifierOption {
	return func(v *CachedVerifier) {
		v.logger = logger
	}
}

func WithCacheMetrics(m *CacheMetrics) CachedVerifierOption {
	return func(v *CachedVerifier) {
		v.metrics = m
	}
}

func WithClock(now func() time.Time) CachedVerifierOption {
	return func(v *CachedVerifier) {
		v.now = now
	}
}

// NewCachedVerifier wraps next with cache.
func NewCachedVerifier(next auth.Verifier, cache Cache, maxTTL time.Duration, opts ...CachedVerifierOption) *CachedVerifier {
	v := &CachedVerifier{
		next:   next,
		cache:  cache,
		maxTTL: maxTTL,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type cachedIdentity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// VerifyToken implements auth.Verifier.
func (v *CachedVerifier) VerifyToken(ctx context.Context, token string) (*auth.Identity, error) {
	key := tokenKey(token)

	raw, err := v.cache.Get(ctx, key)
	switch {
	case err == nil:
		var c cachedIdentity
		if jsonErr := json.Unmarshal(raw, &c); jsonErr == nil && c.UserID != "" {
			v.metrics.inc("hit")
			return &auth.Identity{UserID: c.UserID, Email: c.Email}, nil
		}
		v.metrics.inc("error")
	case errors.Is(err, ErrCacheMiss):
		v.metrics.inc("miss")
	default:
		v.metrics.inc("error")
		v.logger.WarnContext(ctx, "identity cache read failed", "error", err)
	}

	identity, err := v.next.VerifyToken(ctx, token)
	if err != nil || identity == nil {
		return identity, err
	}

	if ttl := v.ttl(token); ttl > 0 {
		raw, _ := json.Marshal(cachedIdentity{UserID: identity.UserID, Email: identity.Email})
		if err := v.cache.Set(ctx, key, raw, ttl); err != nil {
			v.logger.WarnContext(ctx, "identity cache write failed", "error", err)
		}
	}
	return identity, nil
}

// ttl bounds the entry by the token's exp claim when it has one. The signature
// is not checked here; the identity service already vouched for the token.
func (v *CachedVerifier) ttl(token string) time.Duration {
	ttl := v.maxTTL
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ttl
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return ttl
	}
	if remaining := exp.Sub(v.now()); remaining < ttl {
		ttl = remaining
	}
	return ttl
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return tokenKeyPrefix + hex.EncodeToString(sum[:])
}
