package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// RuleRepoImpl implements RuleRepository using gorm.
type RuleRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewRuleRepository creates a gorm-backed rule repository.
func NewRuleRepository(db *gorm.DB, log logger.Logger) repository.RuleRepository {
	return &RuleRepoImpl{db: db, logger: log}
}

// FindEnabled retrieves enabled rules ordered by creation time then ID, so
// the evaluation order is stable across refreshes.
func (r *RuleRepoImpl) FindEnabled(ctx context.Context) ([]*models.LimitRule, error) {
	var rules []*models.LimitRule
	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("created_at, rule_id").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return rules, nil
}

func (r *RuleRepoImpl) FindAll(ctx context.Context) ([]*models.LimitRule, error) {
	var rules []*models.LimitRule
	err := r.db.WithContext(ctx).
		Order("created_at, rule_id").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return rules, nil
}

func (r *RuleRepoImpl) FindByID(ctx context.Context, ruleID string) (*models.LimitRule, error) {
	var rule models.LimitRule
	err := r.db.WithContext(ctx).
		Where("rule_id = ?", ruleID).
		First(&rule).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrRuleNotFound(ruleID)
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return &rule, nil
}

func (r *RuleRepoImpl) Save(ctx context.Context, rule *models.LimitRule) error {
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		r.logger.Error(ctx, "failed to create rule", err, logger.String("name", rule.Name))
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}

	r.logger.Info(ctx, "rule created",
		logger.String("rule_id", rule.RuleID),
		logger.String("name", rule.Name),
		logger.String("kind", string(rule.Kind)),
	)
	return nil
}

func (r *RuleRepoImpl) Update(ctx context.Context, rule *models.LimitRule) error {
	rule.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.LimitRule{}).
		Where("rule_id = ?", rule.RuleID).
		Select("name", "kind", "max_requests", "window_seconds", "block_minutes",
			"target_endpoints", "scope", "enabled", "updated_at").
		Updates(rule)
	if result.Error != nil {
		r.logger.Error(ctx, "failed to update rule", result.Error, logger.String("rule_id", rule.RuleID))
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrRuleNotFound(rule.RuleID)
	}
	return nil
}

func (r *RuleRepoImpl) Delete(ctx context.Context, ruleID string) error {
	result := r.db.WithContext(ctx).
		Where("rule_id = ?", ruleID).
		Delete(&models.LimitRule{})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrRuleNotFound(ruleID)
	}
	return nil
}
