package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-redis/redis/v8"
)

const tokenCachePrefix = "auth_token:"

// TokenCache remembers which bearer tokens already verified and to which
// email, so hot callers skip a round trip to the OIDC provider. Entries are
// keyed by token digest, never by the raw token.
type TokenCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewTokenCache(client *redis.Client, ttl time.Duration) *TokenCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenCache{Client: client, TTL: ttl}
}

func (c *TokenCache) Lookup(ctx context.Context, token string) (string, bool) {
	email, err := c.Client.Get(ctx, cacheKey(token)).Result()
	if err != nil {
		return "", false
	}
	return email, true
}

func (c *TokenCache) Store(ctx context.Context, token, email string) {
	// Best effort: a failed cache write only costs the next verification.
	_ = c.Client.Set(ctx, cacheKey(token), email, c.TTL).Err()
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return tokenCachePrefix + hex.EncodeToString(sum[:])
}
