package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCreditTTL bounds how long a credit reference is remembered. Affiliate
// networks stop redelivering postbacks well within this window.
const DefaultCreditTTL = 30 * 24 * time.Hour

// CreditDedup remembers which sale references have already been credited.
// Key format: credit:<user_id>:<reference>
type CreditDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCreditDedup wraps client. ttl <= 0 uses DefaultCreditTTL.
func NewCreditDedup(client *redis.Client, ttl time.Duration) *CreditDedup {
	if ttl <= 0 {
		ttl = DefaultCreditTTL
	}
	return &CreditDedup{client: client, ttl: ttl}
}

// Claim atomically records the reference and reports whether it was new.
func (d *CreditDedup) Claim(ctx context.Context, userID, reference string) (bool, error) {
	ok, err := d.client.SetNX(ctx, creditKey(userID, reference), time.Now().UTC().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("credit dedup claim: %w", err)
	}
	return ok, nil
}

// Release drops a claim so a failed credit can be retried.
func (d *CreditDedup) Release(ctx context.Context, userID, reference string) error {
	if err := d.client.Del(ctx, creditKey(userID, reference)).Err(); err != nil {
		return fmt.Errorf("credit dedup release: %w", err)
	}
	return nil
}

func creditKey(userID, reference string) string {
	return fmt.Sprintf("credit:%s:%s", userID, reference)
}
