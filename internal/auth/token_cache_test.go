package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func setupTestCache(t *testing.T) (*TokenCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewTokenCache(client, time.Minute), mr
}

func TestTokenCacheRoundTrip(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	ctx := context.Background()
	cache.Store(ctx, "bearer-token", "user@example.com")

	email, ok := cache.Lookup(ctx, "bearer-token")
	assert.True(t, ok)
	assert.Equal(t, "user@example.com", email)
}

func TestTokenCacheMiss(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	_, ok := cache.Lookup(context.Background(), "never-stored")
	assert.False(t, ok)
}

func TestTokenCacheExpiry(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	ctx := context.Background()
	cache.Store(ctx, "bearer-token", "user@example.com")

	mr.FastForward(2 * time.Minute)

	_, ok := cache.Lookup(ctx, "bearer-token")
	assert.False(t, ok)
}

func TestTokenCacheNeverStoresRawToken(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	cache.Store(context.Background(), "super-secret-token", "user@example.com")

	for _, key := range mr.Keys() {
		assert.False(t, strings.Contains(key, "super-secret-token"))
	}
}
