package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lumenhotels/onboarding-app/utils"
)

// Token revocation store. Capability tokens are stateless, so tokens for
// sessions that ended early (HR reject, manual revoke) are blocked here by
// jti until their natural expiry. Redis-backed when configured so revocation
// survives restarts and spans instances; in-process map otherwise.

const revocationPrefix = "revoked_token:"

var (
	revocationRedis *redis.Client

	revokedTokens = make(map[string]time.Time)
	revokedMu     sync.RWMutex
	janitorOnce   sync.Once
)

// InitRevocationStore switches the store to redis. Pass nil to stay on the
// in-process map.
func InitRevocationStore(rdb *redis.Client) {
	revocationRedis = rdb
}

func RevokeToken(jti string, until time.Time) {
	ttl := time.Until(until)
	if ttl <= 0 {
		return // already past expiry, nothing to block
	}

	if revocationRedis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := revocationRedis.Set(ctx, revocationPrefix+jti, "1", ttl).Err(); err == nil {
			return
		}
		utils.ErrorLogger.Printf("redis revocation write failed for %s, falling back to memory", jti)
	}

	revokedMu.Lock()
	revokedTokens[jti] = until
	revokedMu.Unlock()
	janitorOnce.Do(func() { go revocationJanitor() })
}

func IsTokenRevoked(jti string) bool {
	if revocationRedis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		n, err := revocationRedis.Exists(ctx, revocationPrefix+jti).Result()
		if err == nil && n > 0 {
			return true
		}
	}

	revokedMu.RLock()
	defer revokedMu.RUnlock()
	until, ok := revokedTokens[jti]
	return ok && time.Now().Before(until)
}

func revocationJanitor() {
	for {
		time.Sleep(1 * time.Hour)
		revokedMu.Lock()
		now := time.Now()
		for jti, until := range revokedTokens {
			if now.After(until) {
				delete(revokedTokens, jti)
			}
		}
		revokedMu.Unlock()
	}
}
