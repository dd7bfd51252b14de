package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// RuleCache holds a snapshot of the enabled rules, refreshed from durable
// storage when older than the TTL. Rule mutations through the management API
// call Invalidate so the next read forces a reload; stale-rule windows are
// bounded by the TTL, never longer.
type RuleCache struct {
	repo    repository.RuleRepository
	clock   Clock
	ttl     time.Duration
	log     logger.Logger
	metrics EngineMetrics

	mu        sync.RWMutex
	rules     []*models.LimitRule
	fetchedAt time.Time

	group singleflight.Group
}

// NewRuleCache creates a rule cache with the given refresh interval.
func NewRuleCache(repo repository.RuleRepository, ttl time.Duration, clock Clock, metrics EngineMetrics, log logger.Logger) *RuleCache {
	if clock == nil {
		clock = NewSystemClock()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &RuleCache{
		repo:    repo,
		clock:   clock,
		ttl:     ttl,
		log:     log.WithComponent("rule_cache"),
		metrics: metrics,
	}
}

// GetRules returns the current rule snapshot, refreshing it when stale or
// empty. On refresh failure the previous snapshot is served so a storage
// hiccup never drops enforcement entirely.
func (c *RuleCache) GetRules(ctx context.Context) []*models.LimitRule {
	c.mu.RLock()
	rules, fetchedAt := c.rules, c.fetchedAt
	c.mu.RUnlock()

	if rules != nil && c.clock.Now().Sub(fetchedAt) < c.ttl {
		return rules
	}

	// Concurrent refreshes collapse into one repository query.
	fresh, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		loaded, err := c.repo.FindEnabled(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.rules = loaded
		c.fetchedAt = c.clock.Now()
		c.mu.Unlock()

		c.metrics.RecordCacheRefresh("rules")
		return loaded, nil
	})
	if err != nil {
		c.log.Error(ctx, "rule cache refresh failed, serving stale snapshot", err)
		return rules
	}

	return fresh.([]*models.LimitRule)
}

// Invalidate forces the next GetRules call to reload from storage. Called on
// every rule mutation.
func (c *RuleCache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
