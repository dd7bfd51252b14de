// Package service contains the decision engine's domain services: the sliding
// window counters, rule and block caches, escalation policy and the decision
// pipeline itself.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/pkg/constants"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewSystemClock returns a Clock backed by time.Now.
func NewSystemClock() Clock { return systemClock{} }

// Sampler decides whether an event at a given 1-in-N rate should be recorded.
// Implementations must be safe for concurrent use.
type Sampler interface {
	// Sample returns true approximately once per rate calls. A rate of 1 or
	// less always samples.
	Sample(rate int) bool
}

// counterSampler samples deterministically: exactly one in every rate calls
// per rate value. Deterministic so tests can assert sampling behavior.
type counterSampler struct {
	mu     sync.Mutex
	counts map[int]uint64
}

// NewCounterSampler returns a deterministic modulo-counter sampler.
func NewCounterSampler() Sampler {
	return &counterSampler{counts: make(map[int]uint64)}
}

func (s *counterSampler) Sample(rate int) bool {
	if rate <= 1 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[rate]++
	return s.counts[rate]%uint64(rate) == 1
}

// AlertService dispatches block notifications. Notify must not block the
// decision path; implementations enqueue and deliver in the background.
type AlertService interface {
	Notify(ctx context.Context, event models.AlertEvent)
}

// NoopAlertService discards alerts. Used when alerting is not configured.
type NoopAlertService struct{}

func (NoopAlertService) Notify(ctx context.Context, event models.AlertEvent) {}

// BlockMirror propagates blocks across instances faster than the block
// cache's refresh interval. It is a hint layer only; durable storage remains
// the source of truth. Implementations are best-effort.
type BlockMirror interface {
	// MirrorBlock records the IP as blocked for the given TTL.
	MirrorBlock(ctx context.Context, ip string, ttl time.Duration) error

	// DropMirror removes the IP from the mirror after an unblock.
	DropMirror(ctx context.Context, ip string) error

	// IsBlocked reports whether the mirror considers the IP blocked.
	IsBlocked(ctx context.Context, ip string) (bool, error)
}

// EngineMetrics records engine-level metrics. Implemented by the prometheus
// recorder in internal/infrastructure/monitoring; a no-op keeps the domain
// layer usable without it.
type EngineMetrics interface {
	RecordDecision(status constants.DecisionStatus, path constants.TriggerPath, duration time.Duration)
	RecordRuleTrigger(ruleName string, path constants.TriggerPath)
	RecordFallbackQuery(success bool)
	RecordCacheRefresh(cache string)
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) RecordDecision(status constants.DecisionStatus, path constants.TriggerPath, duration time.Duration) {
}
func (NoopMetrics) RecordRuleTrigger(ruleName string, path constants.TriggerPath) {}
func (NoopMetrics) RecordFallbackQuery(success bool)                              {}
func (NoopMetrics) RecordCacheRefresh(cache string)                               {}
