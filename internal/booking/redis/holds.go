package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-marketplace/internal/logger"
)

// HoldKeyPrefix namespaces reservation hold keys so the keyspace-expiry
// subscriber can tell them apart from other expiring keys.
const HoldKeyPrefix = "booking_hold:"

// Holds keeps one TTL key per pending booking. The key is advisory only: the
// subscriber uses its expiry as a signal to cancel stale pending bookings,
// while consistency itself lives in the database.
type Holds struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewHolds(client *redis.Client, log *logger.Logger) *Holds {
	return &Holds{Client: client, Logger: log}
}

// holdTTL returns the reservation hold duration, defaulting to 15 minutes
// when BOOKING_HOLD_TTL_MINUTES is unset or malformed.
func (h *Holds) holdTTL() time.Duration {
	defaultTTL := 15 * time.Minute

	ttlStr := os.Getenv("BOOKING_HOLD_TTL_MINUTES")
	if ttlStr == "" {
		return defaultTTL
	}
	minutes, err := strconv.Atoi(ttlStr)
	if err != nil || minutes <= 0 {
		h.Logger.Warn("REDIS", fmt.Sprintf("invalid BOOKING_HOLD_TTL_MINUTES value %q, using default 15 minutes", ttlStr))
		return defaultTTL
	}
	return time.Duration(minutes) * time.Minute
}

func (h *Holds) Set(ctx context.Context, bookingID string) error {
	key := HoldKeyPrefix + bookingID
	return h.Client.Set(ctx, key, bookingID, h.holdTTL()).Err()
}

func (h *Holds) Clear(ctx context.Context, bookingID string) error {
	key := HoldKeyPrefix + bookingID
	return h.Client.Del(ctx, key).Err()
}

// BookingIDFromExpiredKey extracts the booking id from an expired-key event
// payload, returning false for keys outside the hold namespace.
func BookingIDFromExpiredKey(key string) (string, bool) {
	if !strings.HasPrefix(key, HoldKeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, HoldKeyPrefix), true
}
