// Package repository defines the persistence contracts for the decision engine.
// Implementations live in internal/infrastructure/persistence.
package repository

import (
	"context"

	"github.com/gatewarden/gatewarden/internal/domain/models"
)

// RuleRepository defines the interface for limit-rule storage.
type RuleRepository interface {
	// FindEnabled retrieves all enabled rules in a stable order. The rule
	// cache loads snapshots through this method; first applicable rule wins
	// during evaluation, so the order must not change between calls.
	FindEnabled(ctx context.Context) ([]*models.LimitRule, error)

	// FindAll retrieves every rule, enabled or not, for the management API.
	FindAll(ctx context.Context) ([]*models.LimitRule, error)

	// FindByID retrieves a rule by its identifier.
	FindByID(ctx context.Context, ruleID string) (*models.LimitRule, error)

	// Save persists a new rule.
	Save(ctx context.Context, rule *models.LimitRule) error

	// Update modifies an existing rule.
	Update(ctx context.Context, rule *models.LimitRule) error

	// Delete removes a rule.
	Delete(ctx context.Context, ruleID string) error
}
