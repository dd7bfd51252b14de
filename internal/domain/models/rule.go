// Package models defines the domain models for the Gatewarden decision engine.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/errors"
)

// LimitRule is a rate-limiting or brute-force policy evaluated by the decision
// pipeline. Cached copies are snapshots and must never be mutated in place;
// mutation happens only through the management API, which invalidates the cache.
type LimitRule struct {
	// RuleID is the unique identifier for the rule.
	RuleID string `json:"rule_id" gorm:"primaryKey;column:rule_id"`

	// Name is the human-readable rule label, also returned to blocked clients.
	Name string `json:"name" gorm:"column:name"`

	// Kind selects the traffic class: rate_limit or brute_force.
	Kind constants.RuleKind `json:"kind" gorm:"column:kind"`

	// MaxRequests is the count threshold within the window. Must be positive.
	MaxRequests uint `json:"max_requests" gorm:"column:max_requests"`

	// WindowSeconds is the sliding window length. Must be positive.
	WindowSeconds uint `json:"window_seconds" gorm:"column:window_seconds"`

	// BlockMinutes is the base block duration before escalation.
	BlockMinutes uint `json:"block_minutes" gorm:"column:block_minutes"`

	// TargetEndpoints restricts the rule to specific paths. Empty means all.
	// Stored as a comma-separated list.
	TargetEndpoints string `json:"target_endpoints" gorm:"column:target_endpoints;type:text"`

	// Scope narrows evaluation to sensitive endpoints when sensitive_only.
	Scope constants.RuleScope `json:"scope" gorm:"column:scope"`

	// Enabled rules are the only ones loaded into the rule cache.
	Enabled bool `json:"enabled" gorm:"column:enabled"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName overrides the gorm table name.
func (LimitRule) TableName() string {
	return "limit_rules"
}

// NewLimitRule creates a rule with a fresh ID.
func NewLimitRule(name string, kind constants.RuleKind, maxRequests, windowSeconds, blockMinutes uint) *LimitRule {
	return &LimitRule{
		RuleID:        uuid.NewString(),
		Name:          name,
		Kind:          kind,
		MaxRequests:   maxRequests,
		WindowSeconds: windowSeconds,
		BlockMinutes:  blockMinutes,
		Scope:         constants.RuleScopeAll,
		Enabled:       true,
	}
}

// Validate rejects malformed rules at management-API write time so they never
// reach the cache.
func (r *LimitRule) Validate() error {
	if r.Name == "" {
		return errors.ErrInvalidRequest.WithMessage("rule name is required")
	}
	if r.Kind != constants.RuleKindRateLimit && r.Kind != constants.RuleKindBruteForce {
		return errors.ErrInvalidRequest.WithMessage("rule kind must be rate_limit or brute_force")
	}
	if r.MaxRequests == 0 {
		return errors.ErrInvalidRequest.WithMessage("max_requests must be positive")
	}
	if r.WindowSeconds == 0 {
		return errors.ErrInvalidRequest.WithMessage("window_seconds must be positive")
	}
	if r.Scope != constants.RuleScopeAll && r.Scope != constants.RuleScopeSensitiveOnly {
		return errors.ErrInvalidRequest.WithMessage("rule scope must be all or sensitive_only")
	}
	return nil
}

// Window returns the rule window as a duration.
func (r *LimitRule) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// BaseBlockDuration returns the pre-escalation block duration.
func (r *LimitRule) BaseBlockDuration() time.Duration {
	return time.Duration(r.BlockMinutes) * time.Minute
}

// AppliesToEndpoint reports whether the rule targets the given path. Rules
// with no target list apply everywhere.
func (r *LimitRule) AppliesToEndpoint(path string) bool {
	if r.TargetEndpoints == "" {
		return true
	}
	for _, target := range strings.Split(r.TargetEndpoints, ",") {
		target = strings.TrimSpace(target)
		if target != "" && strings.HasPrefix(path, target) {
			return true
		}
	}
	return false
}
