package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-marketplace/internal/logger"
)

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return client, mr
}

func TestSetCreatesHoldWithTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	holds := NewHolds(client, &logger.Logger{})
	ctx := context.Background()

	require.NoError(t, holds.Set(ctx, "booking-1"))

	key := HoldKeyPrefix + "booking-1"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 15*time.Minute, mr.TTL(key))
}

func TestClearRemovesHold(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	holds := NewHolds(client, &logger.Logger{})
	ctx := context.Background()

	require.NoError(t, holds.Set(ctx, "booking-1"))
	require.NoError(t, holds.Clear(ctx, "booking-1"))

	assert.False(t, mr.Exists(HoldKeyPrefix+"booking-1"))
}

func TestClearMissingHoldIsHarmless(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	holds := NewHolds(client, &logger.Logger{})

	assert.NoError(t, holds.Clear(context.Background(), "never-set"))
}

func TestBookingIDFromExpiredKey(t *testing.T) {
	id, ok := BookingIDFromExpiredKey("booking_hold:booking-1")
	assert.True(t, ok)
	assert.Equal(t, "booking-1", id)

	_, ok = BookingIDFromExpiredKey("auth_token:abc")
	assert.False(t, ok)

	_, ok = BookingIDFromExpiredKey("")
	assert.False(t, ok)
}
