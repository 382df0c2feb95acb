package counter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/coinkart/CoinKart/internal/pkg/cache"
)

const webhookOutcomesKey = "webhook:counters:outcomes"

// WebhookCounters tallies per-provider processing outcomes in a Redis hash.
// The counters are operational data read live by the ops endpoint; they are
// never part of any correctness decision.
type WebhookCounters struct{}

// Add increments the counter for one (provider, outcome) pair.
func (WebhookCounters) Add(provider, outcome string) {
	ctx := context.Background()
	field := fmt.Sprintf("%s:%s", provider, outcome)
	// Counting is best effort; processing never fails on a metrics write.
	_ = cache.GetClient().HIncrBy(ctx, webhookOutcomesKey, field, 1).Err()
}

// Snapshot returns all outcome counters keyed "provider:outcome".
func Snapshot() (map[string]int64, error) {
	ctx := context.Background()
	data, err := cache.GetClient().HGetAll(ctx, webhookOutcomesKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for field, raw := range data {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			out[field] = n
		}
	}
	return out, nil
}

// Reset clears all outcome counters.
func Reset() error {
	ctx := context.Background()
	return cache.GetClient().Del(ctx, webhookOutcomesKey).Err()
}
