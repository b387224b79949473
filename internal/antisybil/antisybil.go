// Package antisybil provides the oracle layer's Sybil-resistance primitives:
// HMAC-based IP hashing (so a raw client IP is never persisted) and a
// Store-backed sliding-window rate limiter, generalized from the teacher's
// in-memory per-user order-rate check in internal/compliance/surveillance.go
// into a per-ip-hash, Store-persisted window suited to anonymous oracle
// voting.
package antisybil

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ccmarkets/engine/internal/store"
)

// HashIP returns the HMAC-SHA256 hex digest of ip keyed by secret. The raw
// IP is discarded immediately after this call; only the digest is stored.
func HashIP(secret, ip string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))
}

// RateLimiter caps how many oracle votes a single hashed IP may cast within
// a rolling window.
type RateLimiter struct {
	store       store.Store
	maxPerHour  int
	window      time.Duration
}

func NewRateLimiter(s store.Store) *RateLimiter {
	return &RateLimiter{store: s, maxPerHour: 5, window: time.Hour}
}

// Allow reports whether ipHash may cast another vote right now.
func (r *RateLimiter) Allow(ctx context.Context, ipHash string) (bool, error) {
	if ipHash == "" {
		// No IP available (e.g. trusted internal caller); nothing to limit.
		return true, nil
	}
	since := time.Now().UTC().Add(-r.window)
	count, err := r.store.CountVotesSince(ctx, ipHash, since)
	if err != nil {
		return false, err
	}
	return count < r.maxPerHour, nil
}
