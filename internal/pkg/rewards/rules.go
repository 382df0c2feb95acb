package rewards

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coinkart/CoinKart/app/models"
	"github.com/coinkart/CoinKart/internal/pkg/cache"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

const (
	ruleCachePrefix = "reward_rule:"
	ruleCacheTTL    = 60 * time.Second
	ruleCacheMiss   = "__none__"
)

// CachedRuleSource is a read-through cache over a RuleSource. Rules are
// read-mostly admin config; 60 seconds of staleness is acceptable and saves a
// database round trip per grant attempt.
type CachedRuleSource struct {
	source RuleSource
}

// NewCachedRuleSource wraps a rule source with the redis cache.
func NewCachedRuleSource(source RuleSource) *CachedRuleSource {
	return &CachedRuleSource{source: source}
}

func (c *CachedRuleSource) FindActiveRule(eventID uint, action string, at time.Time) (*models.RewardRule, error) {
	key := fmt.Sprintf("%s%d:%s", ruleCachePrefix, eventID, action)

	if cached, err := cache.Get(key); err == nil {
		if cached == ruleCacheMiss {
			return nil, gorm.ErrRecordNotFound
		}
		var rule models.RewardRule
		if err := json.Unmarshal([]byte(cached), &rule); err == nil {
			if !rule.ValidAt(at) {
				return nil, gorm.ErrRecordNotFound
			}
			return &rule, nil
		}
	}

	rule, err := c.source.FindActiveRule(eventID, action, at)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if cacheErr := cache.Set(key, ruleCacheMiss, ruleCacheTTL); cacheErr != nil {
				log.Debugf("[Rewards] rule cache set failed: %v", cacheErr)
			}
		}
		return nil, err
	}

	if data, marshalErr := json.Marshal(rule); marshalErr == nil {
		if cacheErr := cache.Set(key, string(data), ruleCacheTTL); cacheErr != nil {
			log.Debugf("[Rewards] rule cache set failed: %v", cacheErr)
		}
	}
	return rule, nil
}

// InvalidateRule drops cached resolutions after an admin rule change. Both the
// scoped and the global key are cleared since either may have answered.
func InvalidateRule(eventID *uint, action string) {
	keys := []string{fmt.Sprintf("%s0:%s", ruleCachePrefix, action)}
	if eventID != nil {
		keys = append(keys, fmt.Sprintf("%s%d:%s", ruleCachePrefix, *eventID, action))
	}
	for _, key := range keys {
		if err := cache.Delete(key); err != nil {
			log.Debugf("[Rewards] rule cache invalidate failed: %v", err)
		}
	}
}
